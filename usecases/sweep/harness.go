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

// Package sweep drives a parameter sweep against a remote instance: per grid
// cell it resets the collection, imports a vector dataset and measures
// queries for every search effort on the HTTP and the gRPC path.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
	"github.com/weaviate/chaos-harness/entities/schema"
	"github.com/weaviate/chaos-harness/entities/sweep"
	"github.com/weaviate/chaos-harness/usecases/dataset"
	"github.com/weaviate/chaos-harness/usecases/ingest"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

type SchemaAdmin interface {
	DeleteCollection(ctx context.Context, name string) error
	CreateCollection(ctx context.Context, collection schema.Collection) error
	SetSearchEffort(ctx context.Context, name string, ef int) error
}

type Searcher interface {
	NearVector(ctx context.Context, class string, vector []float32, limit int) ([]strfmt.UUID, error)
}

type ResultStore interface {
	Save(run string, cell sweep.CellResult) error
}

type Params struct {
	Schema   SchemaAdmin
	Importer ingest.BatchCreator
	HTTP     Searcher
	GRPC     Searcher
	// Store is optional
	Store   ResultStore
	Logger  logrus.FieldLogger
	Metrics *monitoring.Metrics

	Class     string
	BatchSize int
	// K is the depth of recall@k, Limit the number of results requested
	// per query. Limit is raised to K when smaller.
	K           int
	Limit       int
	Parallelism int
	// QPS paces the queries of one path, zero means unpaced.
	QPS float64
}

type Harness struct {
	schema      SchemaAdmin
	importer    ingest.BatchCreator
	paths       []pathSearcher
	store       ResultStore
	logger      logrus.FieldLogger
	metrics     *monitoring.Metrics
	class       string
	batchSize   int
	k           int
	limit       int
	parallelism int
	qps         float64
}

type pathSearcher struct {
	path     sweep.Path
	searcher Searcher
}

func NewHarness(p Params) *Harness {
	h := &Harness{
		schema:      p.Schema,
		importer:    p.Importer,
		store:       p.Store,
		logger:      p.Logger,
		metrics:     p.Metrics,
		class:       p.Class,
		batchSize:   p.BatchSize,
		k:           p.K,
		limit:       p.Limit,
		parallelism: p.Parallelism,
		qps:         p.QPS,
	}
	if h.k < 1 {
		h.k = 10
	}
	if h.limit < h.k {
		h.limit = h.k
	}
	if h.parallelism < 1 {
		h.parallelism = 1
	}
	if p.HTTP != nil {
		h.paths = append(h.paths, pathSearcher{path: sweep.PathHTTP, searcher: p.HTTP})
	}
	if p.GRPC != nil {
		h.paths = append(h.paths, pathSearcher{path: sweep.PathGRPC, searcher: p.GRPC})
	}
	return h
}

// RunSweep executes cells one after another. A failed reset or import
// aborts the sweep and returns the cells finished so far together with the
// error; a failed point is recorded in its PointResult and the sweep goes on.
func (h *Harness) RunSweep(ctx context.Context, run string, cells []sweep.Config,
	data *dataset.Vectors,
) ([]sweep.CellResult, error) {
	if len(h.paths) == 0 {
		return nil, errors.New("sweep: no query path configured")
	}
	if len(data.Queries) == 0 {
		return nil, errors.New("sweep: dataset has no queries")
	}
	records := data.Records(h.class)

	results := make([]sweep.CellResult, 0, len(cells))
	for i, cell := range cells {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrap(err, "sweep interrupted")
		}
		res, err := h.runCell(ctx, i, cell, records, data)
		if err != nil {
			return results, errors.Wrapf(err, "cell %d (%s)", i, cell)
		}
		if h.store != nil {
			if err := h.store.Save(run, res); err != nil {
				return results, errors.Wrapf(err, "cell %d (%s)", i, cell)
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (h *Harness) runCell(ctx context.Context, index int, cell sweep.Config,
	records []dataset.Record, data *dataset.Vectors,
) (sweep.CellResult, error) {
	log := h.logger.WithFields(logrus.Fields{
		"class":  h.class,
		"shards": cell.ShardCount,
		"m":      cell.MaxConnections,
		"cell":   index,
	})
	res := sweep.CellResult{Index: index, Cell: cell}

	if err := h.reset(ctx, cell); err != nil {
		log.WithField("action", "sweep_reset").WithError(err).Error("reset failed")
		return res, errors.Wrap(err, "reset")
	}
	log.WithField("action", "sweep_reset").Info("collection reset")

	started := time.Now()
	imported, err := h.importRecords(ctx, records)
	if err != nil {
		log.WithField("action", "sweep_import").WithError(err).Error("import failed")
		return res, errors.Wrap(err, "import")
	}
	res.Imported = imported
	res.ImportDuration = time.Since(started)
	h.metrics.SweepImport(cell.ShardCount, cell.MaxConnections, res.ImportDuration)
	log.WithFields(logrus.Fields{
		"action":   "sweep_import",
		"imported": imported,
		"took":     res.ImportDuration,
	}).Info("import finished")

	// ef is a collection level setting, so points run one at a time
	for _, ef := range cell.SearchEfforts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		point := h.runPoint(ctx, cell, ef, data)
		plog := log.WithFields(logrus.Fields{"action": "sweep_point", "ef": ef})
		if point.Failed() {
			h.metrics.SweepPointFailed(cell.ShardCount, ef)
			plog.WithField("error", point.Err).Warn("point failed")
		} else {
			plog.WithField("agreement", point.Agreement).Info("point finished")
		}
		res.Points = append(res.Points, point)
	}
	return res, nil
}

func (h *Harness) reset(ctx context.Context, cell sweep.Config) error {
	if err := h.schema.DeleteCollection(ctx, h.class); err != nil {
		return err
	}
	collection := schema.VectorBenchmark(h.class, cell.ShardCount, cell.EfConstruction,
		cell.MaxConnections, cell.Distance)
	return h.schema.CreateCollection(ctx, collection)
}

// importRecords writes every record and flushes the batch buffer once at
// the end. Any record that fails makes the import fail.
func (h *Harness) importRecords(ctx context.Context, records []dataset.Record) (int, error) {
	writer := ingest.NewBatchWriter(h.importer, h.batchSize, h.logger, h.metrics)

	var (
		imported int
		failures *multierror.Error
	)
	collect := func(results []ingest.WriteResult) {
		for _, r := range results {
			if r.Err != nil {
				failures = multierror.Append(failures, errors.Wrapf(r.Err, "object %s", r.ID))
				continue
			}
			imported++
		}
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		collect(writer.Add(ctx, rec))
	}
	collect(writer.Flush(ctx))

	if failures != nil {
		return imported, errors.Wrapf(failures.ErrorOrNil(), "%d of %d objects failed",
			len(failures.Errors), len(records))
	}
	return imported, nil
}

func (h *Harness) runPoint(ctx context.Context, cell sweep.Config, ef int,
	data *dataset.Vectors,
) (point sweep.PointResult) {
	point = sweep.PointResult{
		Cell:    cell,
		Ef:      ef,
		Limit:   h.limit,
		Paths:   map[sweep.Path]sweep.PathStats{},
		Started: time.Now(),
	}
	defer func() { point.Took = time.Since(point.Started) }()

	if err := h.schema.SetSearchEffort(ctx, h.class, ef); err != nil {
		point.Err = errors.Wrap(err, "set search effort").Error()
		return point
	}

	var errs *multierror.Error
	outcomes := make(map[sweep.Path][]queryOutcome, len(h.paths))
	for _, p := range h.paths {
		started := time.Now()
		out, err := h.queryPath(ctx, p.searcher, data.Queries)
		wall := time.Since(started)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "%s path", p.path))
			continue
		}
		stats := summarize(out, data.Neighbors, h.k, wall)
		point.Paths[p.path] = stats
		outcomes[p.path] = out
		for _, o := range out {
			if o.err == nil {
				h.metrics.SweepQuery(string(p.path), cell.ShardCount, ef, o.took)
			}
		}
		if stats.Failures == stats.Queries {
			errs = multierror.Append(errs, fmt.Errorf("%s path: all %d queries failed, first error: %w",
				p.path, stats.Queries, firstError(out)))
			continue
		}
		h.metrics.SweepPoint(string(p.path), cell.ShardCount, ef, stats.Recall)
	}

	if httpOut, ok := outcomes[sweep.PathHTTP]; ok {
		if grpcOut, ok := outcomes[sweep.PathGRPC]; ok {
			point.Agreement = agreement(httpOut, grpcOut)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		point.Err = err.Error()
	}
	return point
}

// queryPath issues every query on one path with bounded parallelism.
// Outcomes are stored at the index of their query. Failed queries are
// recorded in their outcome; only cancellation fails the batch.
func (h *Harness) queryPath(ctx context.Context, searcher Searcher, queries [][]float32) ([]queryOutcome, error) {
	var limiter *rate.Limiter
	if h.qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.qps), 1)
	}

	out := make([]queryOutcome, len(queries))
	eg, gctx := enterrors.NewErrorGroupWithContext(ctx, h.logger)
	eg.SetLimit(h.parallelism)
	for i := range queries {
		i := i
		eg.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			found, err := searcher.NearVector(gctx, h.class, queries[i], h.limit)
			out[i] = queryOutcome{ids: found, took: time.Since(started), err: err}
			return nil
		}, i)
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func firstError(out []queryOutcome) error {
	for _, o := range out {
		if o.err != nil {
			return o.err
		}
	}
	return nil
}
