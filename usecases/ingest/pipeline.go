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

// Package ingest imports datasets into the remote service and validates
// the result: existence checks, deduplication, deletion and sampling of
// object identifiers.
package ingest

import (
	"context"
	"io"

	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
	"github.com/weaviate/chaos-harness/entities/ids"
	"github.com/weaviate/chaos-harness/usecases/dataset"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

// Status is the outcome of a single record.
type Status string

const (
	StatusCreated        Status = "created"
	StatusAlreadyExisted Status = "already_existed"
	StatusFailed         Status = "failed"
)

// Result is the outcome of one record. Records of a malformed line have
// no RecordID.
type Result struct {
	Line     int
	ItemID   strfmt.UUID
	RecordID strfmt.UUID
	Status   Status
	Err      error
}

// Outcome aggregates the results of an import. Failed holds the ids of
// the top-level items that had at least one failing record.
type Outcome struct {
	Results  []Result
	Failures []*enterrors.PartialImportFailure
	Skipped  int

	failed map[strfmt.UUID]struct{}
}

// SucceededIDs returns the ids of every created or already existing
// record in import order. Duplicates are kept, see Dedupe.
func (o *Outcome) SucceededIDs() []strfmt.UUID {
	out := make([]strfmt.UUID, 0, len(o.Results))
	for _, r := range o.Results {
		if r.Status == StatusCreated || r.Status == StatusAlreadyExisted {
			out = append(out, r.RecordID)
		}
	}
	return out
}

func (o *Outcome) CountSucceeded() int {
	n := 0
	for _, r := range o.Results {
		if r.Status == StatusCreated || r.Status == StatusAlreadyExisted {
			n++
		}
	}
	return n
}

func (o *Outcome) Count(status Status) int {
	n := 0
	for _, r := range o.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// FailedIDs returns the ids of the failed top-level items in the order
// they failed.
func (o *Outcome) FailedIDs() []strfmt.UUID {
	out := make([]strfmt.UUID, 0, len(o.Failures))
	for _, f := range o.Failures {
		out = append(out, strfmt.UUID(f.ID))
	}
	return out
}

func (o *Outcome) fail(line int, item strfmt.UUID, err error) {
	if o.failed == nil {
		o.failed = map[strfmt.UUID]struct{}{}
	}
	if _, ok := o.failed[item]; ok {
		return
	}
	o.failed[item] = struct{}{}
	o.Failures = append(o.Failures, &enterrors.PartialImportFailure{
		Line: line,
		ID:   item.String(),
		Err:  err,
	})
}

// LineSource yields raw input lines until io.EOF.
type LineSource interface {
	Next() (dataset.Line, error)
}

// Expander turns a raw line into a top-level item.
type Expander interface {
	Expand(raw []byte) (dataset.Item, error)
}

// ExistenceChecker tells whether an object exists.
type ExistenceChecker interface {
	Exists(ctx context.Context, class string, id strfmt.UUID) (bool, error)
}

type Importer struct {
	store   ExistenceChecker
	writer  Writer
	logger  logrus.FieldLogger
	metrics *monitoring.Metrics
}

func NewImporter(store ExistenceChecker, writer Writer, logger logrus.FieldLogger,
	metrics *monitoring.Metrics,
) *Importer {
	return &Importer{store: store, writer: writer, logger: logger, metrics: metrics}
}

type pending struct {
	line  int
	item  strfmt.UUID
	id    strfmt.UUID
	class string
}

// PerformImport reads every line of source, skips items without records
// and creates each record that does not exist yet. A failing line is
// recorded and the import continues with the next one. The writer is
// flushed exactly once after the last line. Only a failing source or a
// cancelled context abort the import.
func (i *Importer) PerformImport(ctx context.Context, source LineSource, expander Expander) (*Outcome, error) {
	outcome := &Outcome{}
	// writers report sent records in the order they were added
	var inflight []pending

	for {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		line, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return outcome, errors.Wrap(err, "read import source")
		}

		item, err := expander.Expand(line.Raw)
		if err != nil {
			id := ids.FromKey(string(line.Raw))
			outcome.Results = append(outcome.Results, Result{
				Line: line.Number, ItemID: id, Status: StatusFailed, Err: err,
			})
			outcome.fail(line.Number, id, err)
			i.logFailure(line.Number, id, err)
			continue
		}
		if len(item.Records) == 0 {
			outcome.Skipped++
			continue
		}

		for _, rec := range item.Records {
			exists, err := i.store.Exists(ctx, rec.Class, rec.ID)
			if err != nil {
				err = errors.Wrapf(err, "check existence of %s", rec.ID)
				i.record(outcome, Result{
					Line: line.Number, ItemID: item.ID, RecordID: rec.ID, Status: StatusFailed, Err: err,
				}, rec.Class)
				break
			}
			if exists {
				i.record(outcome, Result{
					Line: line.Number, ItemID: item.ID, RecordID: rec.ID, Status: StatusAlreadyExisted,
				}, rec.Class)
				continue
			}

			inflight = append(inflight, pending{line: line.Number, item: item.ID, id: rec.ID, class: rec.Class})
			inflight = i.settle(outcome, inflight, i.writer.Add(ctx, rec))
		}
	}

	inflight = i.settle(outcome, inflight, i.writer.Flush(ctx))
	if len(inflight) > 0 {
		return outcome, errors.Errorf("writer did not report %d records after flush", len(inflight))
	}

	i.logger.WithFields(logrus.Fields{
		"action":          "import_done",
		"created":         outcome.Count(StatusCreated),
		"already_existed": outcome.Count(StatusAlreadyExisted),
		"failed_records":  outcome.Count(StatusFailed),
		"failed_items":    len(outcome.Failures),
		"skipped":         outcome.Skipped,
	}).Info("import finished")
	return outcome, nil
}

func (i *Importer) settle(outcome *Outcome, inflight []pending, results []WriteResult) []pending {
	for _, res := range results {
		if len(inflight) == 0 || inflight[0].id != res.ID {
			i.logger.WithFields(logrus.Fields{
				"action": "import_record",
				"id":     res.ID,
			}).Warn("writer reported a record that was not added")
			continue
		}
		p := inflight[0]
		inflight = inflight[1:]
		status := StatusCreated
		if res.Err != nil {
			status = StatusFailed
		}
		i.record(outcome, Result{
			Line: p.line, ItemID: p.item, RecordID: res.ID, Status: status, Err: res.Err,
		}, p.class)
	}
	return inflight
}

func (i *Importer) record(outcome *Outcome, r Result, class string) {
	outcome.Results = append(outcome.Results, r)
	i.metrics.ImportObject(class, string(r.Status))
	if r.Status == StatusFailed {
		outcome.fail(r.Line, r.ItemID, r.Err)
		i.logFailure(r.Line, r.ItemID, r.Err)
	}
}

func (i *Importer) logFailure(line int, id strfmt.UUID, err error) {
	i.logger.WithFields(logrus.Fields{
		"action": "import_record",
		"line":   line,
		"id":     id,
	}).WithError(err).Error("issue adding record")
}
