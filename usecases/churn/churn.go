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

// Package churn runs the two phase import and deletion scenario: a first
// collection is imported, validated and backed up, a random sample of it is
// deleted, and a second collection is imported, validated and backed up
// while the deletions are cleaned up.
package churn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/chaos-harness/entities/schema"
	"github.com/weaviate/chaos-harness/usecases/backup"
	"github.com/weaviate/chaos-harness/usecases/dataset"
	"github.com/weaviate/chaos-harness/usecases/ingest"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

const (
	metricCleanupThreads = "vector_index_tombstone_cleanup_threads"
	metricCleaned        = "vector_index_tombstone_cleaned"
	metricTombstones     = "vector_index_tombstones"
	labelClass           = "class_name"
)

type Admin interface {
	DeleteAllCollections(ctx context.Context) error
	CreateCollection(ctx context.Context, collection schema.Collection) error
	ListIDs(ctx context.Context, class string, limit int) ([]strfmt.UUID, error)
}

// Source is a dataset that can be read once.
type Source interface {
	ingest.LineSource
	Close() error
}

type Params struct {
	Admin     Admin
	Deleter   ingest.BatchDeleter
	Importer  *ingest.Importer
	Validator *ingest.Validator
	Backups   *backup.Creator
	// Scraper is only needed when WaitTombstones is set.
	Scraper *monitoring.Scraper
	Open    func() (Source, error)
	Logger  logrus.FieldLogger
	Clock   clockwork.Clock

	Class             string
	SecondClass       string
	ChunkSize         int
	DeleteCount       int
	ListLimit         int
	Seed              int64
	Settle            time.Duration
	WaitTombstones    bool
	TombstoneTimeout  time.Duration
	TombstoneInterval time.Duration
}

// Report summarizes a finished run.
type Report struct {
	First   *ingest.Outcome
	Second  *ingest.Outcome
	Listed  int
	Deleted int64
	Backups []string
}

type Scenario struct {
	Params
}

func New(p Params) *Scenario {
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	return &Scenario{Params: p}
}

func (s *Scenario) Run(ctx context.Context) (*Report, error) {
	if s.WaitTombstones && s.Scraper == nil {
		return nil, errors.New("churn: waiting for tombstones needs a metrics scraper")
	}
	report := &Report{}

	if err := s.Admin.DeleteAllCollections(ctx); err != nil {
		return report, errors.Wrap(err, "delete all collections")
	}

	first, imported, err := s.phase(ctx, s.Class, report)
	report.First = first
	if err != nil {
		return report, err
	}

	if err := s.sleep(ctx, s.Settle); err != nil {
		return report, err
	}

	// the listing is informational, the sample is drawn from the imported
	// ids so that ListLimit does not bound it
	listed, err := s.Admin.ListIDs(ctx, s.Class, s.ListLimit)
	if err != nil {
		return report, errors.Wrapf(err, "list ids of %s", s.Class)
	}
	report.Listed = len(listed)
	sample := ingest.Sample(imported, s.DeleteCount, s.Seed)
	s.Logger.WithFields(logrus.Fields{
		"action":   "delete_objects",
		"class":    s.Class,
		"listed":   len(listed),
		"imported": len(imported),
		"sample":   len(sample),
		"seed":     s.Seed,
	}).Info("deleting random sample")
	deleted, err := ingest.DeleteByIDs(ctx, s.Deleter, s.Class, sample, s.Logger)
	report.Deleted = deleted
	if err != nil {
		return report, err
	}

	second, _, err := s.phase(ctx, s.SecondClass, report)
	report.Second = second
	if err != nil {
		return report, err
	}

	if s.WaitTombstones {
		if err := s.waitForCleanup(ctx, s.Class); err != nil {
			return report, err
		}
	}
	return report, nil
}

// phase creates class, imports the dataset into it, checks that every
// imported object exists and backs up every collection. It returns the
// deduplicated ids of the import.
func (s *Scenario) phase(ctx context.Context, class string, report *Report) (*ingest.Outcome, []strfmt.UUID, error) {
	if err := s.Admin.CreateCollection(ctx, schema.Paragraph(class)); err != nil {
		return nil, nil, errors.Wrapf(err, "create collection %s", class)
	}

	src, err := s.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "open dataset")
	}
	defer src.Close()

	wiki := dataset.NewWiki(class)
	if s.ChunkSize > 0 {
		wiki.ChunkSize = s.ChunkSize
	}
	outcome, err := s.Importer.PerformImport(ctx, src, wiki)
	if err != nil {
		return outcome, nil, errors.Wrapf(err, "import into %s", class)
	}
	ids := ingest.Dedupe(outcome.SucceededIDs(), s.Logger)
	if err := s.Validator.AssertAllExist(ctx, class, ids); err != nil {
		return outcome, ids, err
	}

	// the backup after the second phase must include the churned first
	// collection, so no collection is left out
	id := fmt.Sprintf("%s-%s", backup.ID(s.Clock.Now()), strings.ToLower(class))
	if err := s.Backups.CreateBackup(ctx, id); err != nil {
		return outcome, ids, err
	}
	report.Backups = append(report.Backups, id)
	return outcome, ids, nil
}

func (s *Scenario) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	s.Logger.WithFields(logrus.Fields{"action": "settle", "period": d}).Info("waiting for the cluster to settle")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.Clock.After(d):
		return nil
	}
}

// waitForCleanup waits for a tombstone cleanup cycle of class to start and
// finish and for its tombstones to be gone. A cycle counts as started when
// cleanup threads are running or tombstones have already been cleaned,
// since a short cycle may begin and end between two scrapes.
func (s *Scenario) waitForCleanup(ctx context.Context, class string) error {
	positive := func(v float64) bool { return v > 0 }
	zero := func(v float64) bool { return v == 0 }
	steps := []struct {
		metrics []string
		desc    string
		until   func(float64) bool
	}{
		{[]string{metricCleanupThreads, metricCleaned}, "cleanup started", positive},
		{[]string{metricCleanupThreads}, "cleanup finished", zero},
		{[]string{metricTombstones}, "tombstones removed", zero},
	}
	for _, step := range steps {
		metric, v, err := s.Scraper.WaitForAny(ctx, step.metrics, labelClass, class,
			s.TombstoneInterval, s.TombstoneTimeout, step.until)
		if err != nil {
			return errors.Wrap(err, step.desc)
		}
		s.Logger.WithFields(logrus.Fields{
			"action": "metric_wait",
			"metric": metric,
			"class":  class,
			"value":  v,
		}).Info(step.desc)
	}
	return nil
}
