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

package ingest

import (
	"context"

	"github.com/go-openapi/strfmt"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/chaos-harness/usecases/dataset"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

// WriteResult reports the fate of one record that was sent to the remote
// service. Err is nil if the object was created.
type WriteResult struct {
	ID  strfmt.UUID
	Err error
}

// Writer sends records to the remote service. Add may buffer; Flush sends
// everything that is still buffered. Both report every record they sent.
type Writer interface {
	Add(ctx context.Context, rec dataset.Record) []WriteResult
	Flush(ctx context.Context) []WriteResult
}

// ObjectCreator creates single objects.
type ObjectCreator interface {
	CreateObject(ctx context.Context, rec dataset.Record) error
}

// BatchCreator creates many objects in one call. The returned slice is
// aligned with recs and holds the per-object errors; the error return is
// set when the call as a whole failed.
type BatchCreator interface {
	BatchCreate(ctx context.Context, recs []dataset.Record) ([]error, error)
}

// ObjectWriter creates every record right away. Flush has nothing to do.
type ObjectWriter struct {
	creator ObjectCreator
}

func NewObjectWriter(creator ObjectCreator) *ObjectWriter {
	return &ObjectWriter{creator: creator}
}

func (w *ObjectWriter) Add(ctx context.Context, rec dataset.Record) []WriteResult {
	return []WriteResult{{ID: rec.ID, Err: w.creator.CreateObject(ctx, rec)}}
}

func (w *ObjectWriter) Flush(ctx context.Context) []WriteResult {
	return nil
}

// BatchWriter buffers records and sends them in batches of size.
type BatchWriter struct {
	creator BatchCreator
	size    int
	buf     []dataset.Record
	logger  logrus.FieldLogger
	metrics *monitoring.Metrics
}

func NewBatchWriter(creator BatchCreator, size int, logger logrus.FieldLogger,
	metrics *monitoring.Metrics,
) *BatchWriter {
	if size < 1 {
		size = 1
	}
	return &BatchWriter{
		creator: creator,
		size:    size,
		buf:     make([]dataset.Record, 0, size),
		logger:  logger,
		metrics: metrics,
	}
}

func (w *BatchWriter) Add(ctx context.Context, rec dataset.Record) []WriteResult {
	w.buf = append(w.buf, rec)
	if len(w.buf) < w.size {
		return nil
	}
	return w.send(ctx)
}

func (w *BatchWriter) Flush(ctx context.Context) []WriteResult {
	if len(w.buf) == 0 {
		return nil
	}
	return w.send(ctx)
}

func (w *BatchWriter) send(ctx context.Context) []WriteResult {
	batch := w.buf
	w.buf = make([]dataset.Record, 0, w.size)

	results := make([]WriteResult, len(batch))
	errs, err := w.creator.BatchCreate(ctx, batch)
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"action": "import_batch",
			"size":   len(batch),
		}).WithError(err).Error("batch request failed")
	}
	for i, rec := range batch {
		results[i].ID = rec.ID
		switch {
		case err != nil:
			results[i].Err = err
		case i < len(errs):
			results[i].Err = errs[i]
		}
	}
	if len(batch) > 0 {
		w.metrics.ImportBatch(batch[0].Class)
	}
	return results
}
