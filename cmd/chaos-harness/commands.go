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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/chaos-harness/adapters/clients/rest"
	"github.com/weaviate/chaos-harness/adapters/clients/rpc"
	"github.com/weaviate/chaos-harness/adapters/repos/results"
	"github.com/weaviate/chaos-harness/usecases/backup"
	"github.com/weaviate/chaos-harness/usecases/churn"
	"github.com/weaviate/chaos-harness/usecases/convergence"
	"github.com/weaviate/chaos-harness/usecases/dataset"
	"github.com/weaviate/chaos-harness/usecases/ingest"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
	"github.com/weaviate/chaos-harness/usecases/sweep"
)

type convergeCommand struct {
	h *harness
}

func (c *convergeCommand) Execute(args []string) error {
	return c.h.run("converge", func(ctx context.Context) error {
		cfg := c.h.config
		monitor := convergence.NewMonitor(convergence.Params{
			Nodes:            c.h.rest,
			Statistics:       c.h.rest,
			Logger:           c.h.logger,
			Metrics:          c.h.metrics,
			PollInterval:     cfg.Convergence.PollInterval,
			Timeout:          cfg.Convergence.Timeout,
			CallTimeout:      cfg.Weaviate.RequestTimeout,
			ExpectedReplicas: cfg.Convergence.ExpectedReplicas,
		})
		ok, err := monitor.CheckConvergence(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("cluster did not converge")
		}
		return nil
	})
}

type sweepCommand struct {
	h   *harness
	Run string `long:"run" description:"name the results of this sweep are stored under (default: start time)"`
}

func (c *sweepCommand) Execute(args []string) error {
	return c.h.run("sweep", func(ctx context.Context) error {
		cfg := c.h.config.Sweep
		log := c.h.logger

		data, err := dataset.LoadVectors(cfg.DatasetDir, 0)
		if err != nil {
			return errors.Wrap(err, "load vectors")
		}
		log.WithFields(logrus.Fields{
			"action":  "sweep_dataset",
			"base":    len(data.Base),
			"queries": len(data.Queries),
		}).Info("dataset loaded")

		grpcClient, err := rpc.New(rpc.Config{
			Host:   c.h.config.Weaviate.GRPCHost,
			Secure: c.h.config.Weaviate.GRPCSecure,
			APIKey: c.h.config.Weaviate.APIKey,
		}, log, c.h.metrics)
		if err != nil {
			return err
		}
		defer grpcClient.Close()

		store := results.NewStore(cfg.ResultsPath, log)
		if err := store.Open(); err != nil {
			return err
		}
		defer store.Close()

		run := c.Run
		if run == "" {
			run = time.Now().UTC().Format(time.RFC3339)
		}
		sweeper := sweep.NewHarness(sweep.Params{
			Schema:      c.h.rest,
			Importer:    c.h.rest,
			HTTP:        c.h.rest,
			GRPC:        grpcClient,
			Store:       store,
			Logger:      log,
			Metrics:     c.h.metrics,
			Class:       cfg.Class,
			BatchSize:   cfg.BatchSize,
			K:           cfg.K,
			Limit:       cfg.QueryLimit,
			Parallelism: cfg.QueryParallelism,
			QPS:         cfg.QPS,
		})
		cells, err := sweeper.RunSweep(ctx, run, cfg.Grid.Cells(), data)
		failed := 0
		for _, cell := range cells {
			for _, p := range cell.Points {
				if p.Failed() {
					failed++
				}
			}
		}
		log.WithFields(logrus.Fields{
			"action":        "sweep_done",
			"run":           run,
			"cells":         len(cells),
			"failed_points": failed,
			"results":       cfg.ResultsPath,
		}).Info("sweep finished")
		return err
	})
}

type churnCommand struct {
	h *harness
}

func (c *churnCommand) Execute(args []string) error {
	return c.h.run("churn", func(ctx context.Context) error {
		cfg := c.h.config
		log := c.h.logger
		client := c.h.rest

		var scraper *monitoring.Scraper
		if cfg.Churn.WaitTombstones {
			endpoint, err := rest.NewMetricsEndpoint(cfg.Monitoring.MetricsOrigin, cfg.Weaviate.RequestTimeout)
			if err != nil {
				return err
			}
			scraper = monitoring.NewScraper(endpoint, log)
		}

		writer := ingest.NewBatchWriter(client, cfg.Churn.BatchSize, log, c.h.metrics)
		scenario := churn.New(churn.Params{
			Admin:     client,
			Deleter:   client,
			Importer:  ingest.NewImporter(client, writer, log, c.h.metrics),
			Validator: ingest.NewValidator(client, log, 16),
			Backups: backup.NewCreator(client, cfg.Churn.BackupBackend, cfg.Churn.BackupPoll,
				cfg.Churn.BackupTimeout, log, c.h.metrics),
			Scraper: scraper,
			Open: func() (churn.Source, error) {
				lines, err := dataset.OpenLines(cfg.Churn.DatasetPath)
				if err != nil {
					return nil, err
				}
				return lines, nil
			},
			Logger:            log,
			Class:             cfg.Churn.Class,
			SecondClass:       cfg.Churn.SecondClass,
			DeleteCount:       cfg.Churn.DeleteCount,
			ListLimit:         cfg.Churn.ListLimit,
			Seed:              cfg.Churn.Seed,
			Settle:            cfg.Churn.Settle,
			WaitTombstones:    cfg.Churn.WaitTombstones,
			TombstoneTimeout:  cfg.Churn.TombstoneTimeout,
			TombstoneInterval: cfg.Churn.TombstoneInterval,
		})
		report, err := scenario.Run(ctx)
		if report != nil {
			log.WithFields(logrus.Fields{
				"action":  "churn_done",
				"listed":  report.Listed,
				"deleted": report.Deleted,
				"backups": fmt.Sprint(report.Backups),
			}).Info("churn finished")
		}
		return err
	})
}
