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
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/chaos-harness/entities/ids"
	"github.com/weaviate/chaos-harness/entities/schema"
	"github.com/weaviate/chaos-harness/entities/sweep"
	"github.com/weaviate/chaos-harness/usecases/dataset"
)

type fakeSchema struct {
	mu        sync.Mutex
	calls     []string
	efErr     map[int]error
	createErr error
}

func (f *fakeSchema) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSchema) DeleteCollection(ctx context.Context, name string) error {
	f.record("delete " + name)
	return nil
}

func (f *fakeSchema) CreateCollection(ctx context.Context, c schema.Collection) error {
	f.record(fmt.Sprintf("create %s shards=%d m=%d", c.Name, c.Sharding.DesiredCount, c.VectorIndex.MaxConnections))
	if _, err := c.Model(); err != nil {
		return err
	}
	return f.createErr
}

func (f *fakeSchema) SetSearchEffort(ctx context.Context, name string, ef int) error {
	f.record(fmt.Sprintf("ef %s %d", name, ef))
	return f.efErr[ef]
}

type fakeImporter struct {
	mu      sync.Mutex
	batches []int
	failID  strfmt.UUID
	reqErr  error
}

func (f *fakeImporter) BatchCreate(ctx context.Context, recs []dataset.Record) ([]error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, len(recs))
	if f.reqErr != nil {
		return nil, f.reqErr
	}
	errs := make([]error, len(recs))
	for i, rec := range recs {
		if rec.ID == f.failID {
			errs[i] = errors.New("vector dimension mismatch")
		}
	}
	return errs, nil
}

func (f *fakeImporter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += b
	}
	return n
}

// truthSearcher answers every query with its ground truth rows, optionally
// dropping the tail so that recall falls below one.
type truthSearcher struct {
	data  *dataset.Vectors
	keep  int
	err   error
	delay time.Duration
}

func (s *truthSearcher) NearVector(ctx context.Context, class string, vector []float32, limit int) ([]strfmt.UUID, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	for i, q := range s.data.Queries {
		if &q[0] != &vector[0] {
			continue
		}
		keep := s.keep
		if keep == 0 || keep > limit {
			keep = limit
		}
		var out []strfmt.UUID
		for _, row := range s.data.Neighbors[i][:keep] {
			out = append(out, ids.Row(row))
		}
		return out, nil
	}
	return nil, errors.New("unknown query")
}

type memResults struct {
	saved map[string][]sweep.CellResult
}

func (m *memResults) Save(run string, cell sweep.CellResult) error {
	if m.saved == nil {
		m.saved = map[string][]sweep.CellResult{}
	}
	m.saved[run] = append(m.saved[run], cell)
	return nil
}

func testVectors() *dataset.Vectors {
	data := &dataset.Vectors{}
	for i := 0; i < 25; i++ {
		data.Base = append(data.Base, []float32{float32(i), 1})
	}
	for i := 0; i < 6; i++ {
		data.Queries = append(data.Queries, []float32{float32(i) + 0.1, 1})
		data.Neighbors = append(data.Neighbors, []int{i, i + 1, i + 2, i + 3})
	}
	return data
}

func newTestHarness(admin SchemaAdmin, importer *fakeImporter, http, grpc Searcher, store ResultStore) *Harness {
	logger, _ := test.NewNullLogger()
	return NewHarness(Params{
		Schema:      admin,
		Importer:    importer,
		HTTP:        http,
		GRPC:        grpc,
		Store:       store,
		Logger:      logger,
		Class:       "Benchmark",
		BatchSize:   10,
		K:           4,
		Limit:       4,
		Parallelism: 3,
	})
}

func TestRunSweepCoversEveryCombination(t *testing.T) {
	data := testVectors()
	grid := sweep.Grid{
		ShardCounts:    []int{1, 2},
		MaxConnections: []int{8},
		EfConstruction: 64,
		Distance:       "l2-squared",
		SearchEfforts:  []int{16, 32},
	}
	admin := &fakeSchema{}
	importer := &fakeImporter{}
	http := &truthSearcher{data: data}
	grpc := &truthSearcher{data: data, keep: 2}
	store := &memResults{}
	h := newTestHarness(admin, importer, http, grpc, store)

	results, err := h.RunSweep(context.Background(), "run", grid.Cells(), data)
	require.NoError(t, err)
	require.Len(t, results, 2)

	type combination struct{ shards, ef int }
	seen := map[combination]int{}
	for _, cell := range results {
		assert.Equal(t, len(data.Base), cell.Imported)
		for _, p := range cell.Points {
			seen[combination{cell.Cell.ShardCount, p.Ef}]++
			assert.False(t, p.Failed(), p.Err)
			assert.Equal(t, 1.0, p.Paths[sweep.PathHTTP].Recall)
			assert.Equal(t, 0.5, p.Paths[sweep.PathGRPC].Recall)
			assert.Equal(t, 0.5, p.Agreement)
			assert.Equal(t, len(data.Queries), p.Paths[sweep.PathHTTP].Queries)
			assert.Zero(t, p.Paths[sweep.PathGRPC].Failures)
		}
	}
	assert.Equal(t, map[combination]int{{1, 16}: 1, {1, 32}: 1, {2, 16}: 1, {2, 32}: 1}, seen)

	// 25 records in batches of 10: two full batches plus the flushed rest, per cell
	assert.Equal(t, []int{10, 10, 5, 10, 10, 5}, importer.batches)
	assert.Equal(t, []string{
		"delete Benchmark", "create Benchmark shards=1 m=8", "ef Benchmark 16", "ef Benchmark 32",
		"delete Benchmark", "create Benchmark shards=2 m=8", "ef Benchmark 16", "ef Benchmark 32",
	}, admin.calls)
	assert.Len(t, store.saved["run"], 2)
}

func TestRunSweepRecordsPointFailures(t *testing.T) {
	data := testVectors()
	cells := []sweep.Config{{ShardCount: 1, MaxConnections: 8, EfConstruction: 64,
		Distance: "cosine", SearchEfforts: []int{16, 32, 64}}}
	admin := &fakeSchema{efErr: map[int]error{16: errors.New("update rejected")}}
	grpc := &truthSearcher{data: data, err: errors.New("unavailable")}
	h := newTestHarness(admin, &fakeImporter{}, &truthSearcher{data: data}, grpc, nil)

	results, err := h.RunSweep(context.Background(), "run", cells, data)
	require.NoError(t, err)
	require.Len(t, results, 1)
	points := results[0].Points
	require.Len(t, points, 3)

	assert.True(t, points[0].Failed())
	assert.Contains(t, points[0].Err, "update rejected")
	assert.Empty(t, points[0].Paths)

	for _, p := range points[1:] {
		assert.True(t, p.Failed())
		assert.Contains(t, p.Err, "grpc path: all 6 queries failed")
		assert.Equal(t, 1.0, p.Paths[sweep.PathHTTP].Recall)
		assert.Equal(t, 6, p.Paths[sweep.PathGRPC].Failures)
		assert.Zero(t, p.Agreement)
	}
}

func TestRunSweepRecordsPointDuration(t *testing.T) {
	data := testVectors()
	cells := []sweep.Config{{ShardCount: 1, MaxConnections: 8, EfConstruction: 64,
		Distance: "cosine", SearchEfforts: []int{16, 32}}}
	store := &memResults{}
	slow := &truthSearcher{data: data, delay: 5 * time.Millisecond}
	h := newTestHarness(&fakeSchema{}, &fakeImporter{}, slow, nil, store)

	results, err := h.RunSweep(context.Background(), "run", cells, data)
	require.NoError(t, err)
	require.Len(t, store.saved["run"], 1)

	// six queries at a parallelism of three take at least two delays
	for _, cell := range [][]sweep.PointResult{results[0].Points, store.saved["run"][0].Points} {
		require.Len(t, cell, 2)
		for _, p := range cell {
			assert.GreaterOrEqual(t, p.Took, 10*time.Millisecond, "ef %d", p.Ef)
			assert.False(t, p.Started.IsZero())
		}
	}

	t.Run("failed point", func(t *testing.T) {
		admin := &fakeSchema{efErr: map[int]error{16: errors.New("update rejected")}}
		h := newTestHarness(admin, &fakeImporter{}, slow, nil, nil)

		results, err := h.RunSweep(context.Background(), "run", cells, data)
		require.NoError(t, err)
		points := results[0].Points
		require.True(t, points[0].Failed())
		assert.Positive(t, points[0].Took)
		assert.GreaterOrEqual(t, points[1].Took, 10*time.Millisecond)
	})
}

func TestRunSweepImportFailureIsFatal(t *testing.T) {
	data := testVectors()
	cells := sweep.Grid{ShardCounts: []int{1, 2}, MaxConnections: []int{8}, EfConstruction: 64,
		Distance: "cosine", SearchEfforts: []int{16}}.Cells()

	t.Run("failed record", func(t *testing.T) {
		importer := &fakeImporter{failID: ids.Row(24)}
		h := newTestHarness(&fakeSchema{}, importer, &truthSearcher{data: data}, nil, nil)

		results, err := h.RunSweep(context.Background(), "run", cells, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cell 0")
		assert.Contains(t, err.Error(), "1 of 25 objects failed")
		assert.Empty(t, results)
		// the last record sits in the flushed batch
		assert.Equal(t, 25, importer.total())
	})

	t.Run("failed request", func(t *testing.T) {
		importer := &fakeImporter{reqErr: errors.New("connection refused")}
		h := newTestHarness(&fakeSchema{}, importer, &truthSearcher{data: data}, nil, nil)

		_, err := h.RunSweep(context.Background(), "run", cells, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("failed reset", func(t *testing.T) {
		admin := &fakeSchema{createErr: errors.New("schema locked")}
		h := newTestHarness(admin, &fakeImporter{}, &truthSearcher{data: data}, nil, nil)

		_, err := h.RunSweep(context.Background(), "run", cells, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reset")
		assert.Len(t, admin.calls, 2)
	})
}

func TestRunSweepCancelled(t *testing.T) {
	data := testVectors()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newTestHarness(&fakeSchema{}, &fakeImporter{}, &truthSearcher{data: data}, nil, nil)

	_, err := h.RunSweep(ctx, "run", []sweep.Config{{ShardCount: 1}}, data)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunSweepNeedsAPath(t *testing.T) {
	h := newTestHarness(&fakeSchema{}, &fakeImporter{}, nil, nil, nil)
	_, err := h.RunSweep(context.Background(), "run", nil, testVectors())
	require.Error(t, err)
}
