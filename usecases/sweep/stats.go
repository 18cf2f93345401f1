//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package sweep

import (
	"sort"
	"time"

	"github.com/go-openapi/strfmt"
	"gonum.org/v1/gonum/stat"

	"github.com/weaviate/chaos-harness/entities/ids"
	"github.com/weaviate/chaos-harness/entities/sweep"
)

// queryOutcome is the measurement of a single query on one path.
type queryOutcome struct {
	ids  []strfmt.UUID
	took time.Duration
	err  error
}

// MatchesInLists counts the entries of results that are also in control.
func MatchesInLists(control, results []strfmt.UUID) int {
	lookup := make(map[strfmt.UUID]struct{}, len(control))
	for _, id := range control {
		lookup[id] = struct{}{}
	}
	matches := 0
	for _, id := range results {
		if _, ok := lookup[id]; ok {
			matches++
			delete(lookup, id)
		}
	}
	return matches
}

// Recall is the share of the k nearest ground truth rows found among the
// first k results.
func Recall(truth []int, results []strfmt.UUID, k int) float64 {
	if k > len(truth) {
		k = len(truth)
	}
	if k == 0 {
		return 0
	}
	control := make([]strfmt.UUID, k)
	for i, row := range truth[:k] {
		control[i] = ids.Row(row)
	}
	if len(results) > k {
		results = results[:k]
	}
	return float64(MatchesInLists(control, results)) / float64(k)
}

// Overlap is the share of ids two result lists have in common. Two empty
// lists agree fully.
func Overlap(a, b []strfmt.UUID) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return float64(MatchesInLists(a, b)) / float64(longest)
}

// summarize aggregates the outcomes of one path. wall is the time the whole
// batch of queries took.
func summarize(outcomes []queryOutcome, truth [][]int, k int, wall time.Duration) sweep.PathStats {
	ps := sweep.PathStats{Queries: len(outcomes)}

	latencies := make([]float64, 0, len(outcomes))
	recalls := make([]float64, 0, len(outcomes))
	for i, o := range outcomes {
		if o.err != nil {
			ps.Failures++
			continue
		}
		latencies = append(latencies, o.took.Seconds())
		recalls = append(recalls, Recall(truth[i], o.ids, k))
	}
	if len(latencies) == 0 {
		return ps
	}

	sort.Float64s(latencies)
	ps.MeanLatency = seconds(stat.Mean(latencies, nil))
	ps.P50Latency = seconds(stat.Quantile(0.5, stat.Empirical, latencies, nil))
	ps.P90Latency = seconds(stat.Quantile(0.9, stat.Empirical, latencies, nil))
	ps.P99Latency = seconds(stat.Quantile(0.99, stat.Empirical, latencies, nil))
	ps.Recall = stat.Mean(recalls, nil)
	if wall > 0 {
		ps.QPS = float64(len(latencies)) / wall.Seconds()
	}
	return ps
}

// agreement is the mean overlap of the queries both paths answered.
func agreement(a, b []queryOutcome) float64 {
	var overlaps []float64
	for i := range a {
		if i >= len(b) || a[i].err != nil || b[i].err != nil {
			continue
		}
		overlaps = append(overlaps, Overlap(a[i].ids, b[i].ids))
	}
	if len(overlaps) == 0 {
		return 0
	}
	return stat.Mean(overlaps, nil)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
