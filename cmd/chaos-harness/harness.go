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
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/chaos-harness/adapters/clients/rest"
	enterrors "github.com/weaviate/chaos-harness/entities/errors"
	"github.com/weaviate/chaos-harness/usecases/config"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

// readRetries bounds retries of idempotent reads such as the liveness check
// and the raft statistics, which flap while nodes restart.
const readRetries = 3

// harness holds what every command needs once the config is loaded.
type harness struct {
	ctx     context.Context
	flags   *config.Flags
	config  config.Config
	logger  *logrus.Logger
	metrics *monitoring.Metrics
	rest    *rest.Client
}

func (h *harness) log() logrus.FieldLogger {
	if h.logger == nil {
		return logrus.New()
	}
	return h.logger
}

// run loads the config, sets up logging, metrics and the REST client,
// checks that the instance is live and then calls fn.
func (h *harness) run(command string, fn func(ctx context.Context) error) error {
	bootLogger := logrus.New()
	cfg, err := config.LoadConfig(h.flags, bootLogger)
	if err != nil {
		return err
	}
	h.config = cfg
	h.logger = newLogger(cfg.Logging)
	log := h.logger.WithField("command", command)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	h.metrics = monitoring.NewMetrics(reg)
	if cfg.Monitoring.Listen != "" {
		srv := serveMetrics(cfg.Monitoring.Listen, reg, h.logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	h.rest, err = rest.New(rest.Config{
		Origin:  cfg.Weaviate.Origin,
		APIKey:  cfg.Weaviate.APIKey,
		Timeout: cfg.Weaviate.RequestTimeout,
		Retries: readRetries,
	}, h.logger)
	if err != nil {
		return err
	}

	if err := h.rest.Live(h.ctx); err != nil {
		return errors.Wrapf(err, "instance at %s is not live", cfg.Weaviate.Origin)
	}

	log.WithField("action", "startup").Info("instance is live, starting")
	start := time.Now()
	if err := fn(h.ctx); err != nil {
		return errors.Wrap(err, command)
	}
	log.WithFields(logrus.Fields{
		"action": "finished",
		"took":   time.Since(start).String(),
	}).Info("command finished")
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	enterrors.GoWrapper(func() {
		logger.WithField("action", "metrics_listen").WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithField("action", "metrics_listen").WithError(err).Error("metrics server stopped")
		}
	}, logger)
	return srv
}
