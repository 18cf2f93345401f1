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
	"errors"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"

	"github.com/weaviate/chaos-harness/entities/ids"
)

func rows(indexes ...int) []strfmt.UUID {
	out := make([]strfmt.UUID, len(indexes))
	for i, idx := range indexes {
		out[i] = ids.Row(idx)
	}
	return out
}

func TestRecall(t *testing.T) {
	tests := []struct {
		name     string
		truth    []int
		results  []strfmt.UUID
		k        int
		expected float64
	}{
		{name: "all found", truth: []int{1, 2, 3}, results: rows(3, 2, 1), k: 3, expected: 1},
		{name: "half found", truth: []int{1, 2, 3, 4}, results: rows(1, 9, 2, 8), k: 4, expected: 0.5},
		{name: "only first k results count", truth: []int{1, 2}, results: rows(7, 8, 1, 2), k: 2, expected: 0},
		{name: "duplicates count once", truth: []int{1, 2}, results: rows(1, 1), k: 2, expected: 0.5},
		{name: "k larger than truth", truth: []int{5}, results: rows(5), k: 10, expected: 1},
		{name: "no truth", truth: nil, results: rows(5), k: 10, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Recall(tt.truth, tt.results, tt.k), 1e-9)
		})
	}
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 1.0, Overlap(nil, nil))
	assert.Equal(t, 1.0, Overlap(rows(1, 2), rows(2, 1)))
	assert.Equal(t, 0.5, Overlap(rows(1, 2), rows(1)))
	assert.Equal(t, 0.0, Overlap(rows(1), rows(2)))
}

func TestSummarize(t *testing.T) {
	truth := [][]int{{1}, {2}, {3}, {4}}
	outcomes := []queryOutcome{
		{ids: rows(1), took: 10 * time.Millisecond},
		{ids: rows(9), took: 20 * time.Millisecond},
		{ids: rows(3), took: 30 * time.Millisecond},
		{err: errors.New("timeout")},
	}

	ps := summarize(outcomes, truth, 1, time.Second)
	assert.Equal(t, 4, ps.Queries)
	assert.Equal(t, 1, ps.Failures)
	assert.InDelta(t, float64(20*time.Millisecond), float64(ps.MeanLatency), float64(time.Microsecond))
	assert.InDelta(t, float64(20*time.Millisecond), float64(ps.P50Latency), float64(time.Microsecond))
	assert.InDelta(t, float64(30*time.Millisecond), float64(ps.P99Latency), float64(time.Microsecond))
	assert.InDelta(t, 2.0/3.0, ps.Recall, 1e-9)
	assert.InDelta(t, 3.0, ps.QPS, 1e-9)

	empty := summarize([]queryOutcome{{err: errors.New("down")}}, truth, 1, time.Second)
	assert.Equal(t, 1, empty.Failures)
	assert.Zero(t, empty.Recall)
	assert.Zero(t, empty.QPS)
}

func TestAgreement(t *testing.T) {
	a := []queryOutcome{{ids: rows(1, 2)}, {ids: rows(3)}, {err: errors.New("x")}}
	b := []queryOutcome{{ids: rows(1, 2)}, {ids: rows(4)}, {ids: rows(5)}}
	assert.InDelta(t, 0.5, agreement(a, b), 1e-9)
	assert.Zero(t, agreement(a[2:], b[2:]))
}
