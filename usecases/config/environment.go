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

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those that
// are set
func FromEnv(config *Config) error {
	if v := os.Getenv("CHAOS_WEAVIATE_ORIGIN"); v != "" {
		config.Weaviate.Origin = v
	}

	if v := os.Getenv("CHAOS_GRPC_HOST"); v != "" {
		config.Weaviate.GRPCHost = v
	}

	if enabled(os.Getenv("CHAOS_GRPC_SECURE")) {
		config.Weaviate.GRPCSecure = true
	}

	if v := os.Getenv("CHAOS_API_KEY"); v != "" {
		config.Weaviate.APIKey = v
	}

	if err := parseDuration("CHAOS_REQUEST_TIMEOUT", func(d time.Duration) {
		config.Weaviate.RequestTimeout = d
	}); err != nil {
		return err
	}

	if err := parseDuration("CHAOS_CONVERGENCE_POLL_INTERVAL", func(d time.Duration) {
		config.Convergence.PollInterval = d
	}); err != nil {
		return err
	}

	if err := parseDuration("CHAOS_CONVERGENCE_TIMEOUT", func(d time.Duration) {
		config.Convergence.Timeout = d
	}); err != nil {
		return err
	}

	if err := parsePositiveInt("CHAOS_EXPECTED_REPLICAS", func(n int) {
		config.Convergence.ExpectedReplicas = n
	}); err != nil {
		return err
	}

	if v := os.Getenv("CHAOS_SWEEP_CLASS"); v != "" {
		config.Sweep.Class = v
	}

	if v := os.Getenv("CHAOS_SWEEP_DATASET_DIR"); v != "" {
		config.Sweep.DatasetDir = v
	}

	if v := os.Getenv("CHAOS_SWEEP_RESULTS_PATH"); v != "" {
		config.Sweep.ResultsPath = v
	}

	if v := os.Getenv("CHAOS_SWEEP_DISTANCE"); v != "" {
		config.Sweep.Grid.Distance = v
	}

	if v := os.Getenv("CHAOS_SWEEP_SHARDS"); v != "" {
		shards, err := parseIntList(v)
		if err != nil {
			return errors.Wrap(err, "parse CHAOS_SWEEP_SHARDS")
		}
		config.Sweep.Grid.ShardCounts = shards
	}

	if v := os.Getenv("CHAOS_SWEEP_EF"); v != "" {
		efs, err := parseIntList(v)
		if err != nil {
			return errors.Wrap(err, "parse CHAOS_SWEEP_EF")
		}
		config.Sweep.Grid.SearchEfforts = efs
	}

	if err := parsePositiveInt("CHAOS_SWEEP_QUERY_PARALLELISM", func(n int) {
		config.Sweep.QueryParallelism = n
	}); err != nil {
		return err
	}

	if v := os.Getenv("CHAOS_SWEEP_QPS"); v != "" {
		qps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "parse CHAOS_SWEEP_QPS as float")
		}
		config.Sweep.QPS = qps
	}

	if v := os.Getenv("CHAOS_CHURN_DATASET"); v != "" {
		config.Churn.DatasetPath = v
	}

	if v := os.Getenv("CHAOS_BACKUP_BACKEND"); v != "" {
		config.Churn.BackupBackend = v
	}

	if err := parsePositiveInt("CHAOS_CHURN_DELETE_COUNT", func(n int) {
		config.Churn.DeleteCount = n
	}); err != nil {
		return err
	}

	if v := os.Getenv("CHAOS_CHURN_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "parse CHAOS_CHURN_SEED as int")
		}
		config.Churn.Seed = seed
	}

	if err := parseDuration("CHAOS_CHURN_SETTLE", func(d time.Duration) {
		config.Churn.Settle = d
	}); err != nil {
		return err
	}

	if enabled(os.Getenv("CHAOS_CHURN_WAIT_TOMBSTONES")) {
		config.Churn.WaitTombstones = true
	}

	if v := os.Getenv("CHAOS_METRICS_ORIGIN"); v != "" {
		config.Monitoring.MetricsOrigin = v
	}

	if v := os.Getenv("CHAOS_METRICS_LISTEN"); v != "" {
		config.Monitoring.Listen = v
	}

	if v := os.Getenv("CHAOS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("CHAOS_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	return nil
}

func parseDuration(envName string, cb func(d time.Duration)) error {
	v := os.Getenv(envName)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.Wrapf(err, "parse %s as duration", envName)
	}
	if d <= 0 {
		return errors.Errorf("%s must be positive, got %s", envName, v)
	}
	cb(d)
	return nil
}

func parsePositiveInt(envName string, cb func(n int)) error {
	v := os.Getenv(envName)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "parse %s as int", envName)
	}
	if n <= 0 {
		return errors.Errorf("%s must be a positive integer, got %d", envName, n)
	}
	cb(n)
	return nil
}

func parseIntList(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func enabled(value string) bool {
	if value == "" {
		return false
	}

	if value == "on" ||
		value == "enabled" ||
		value == "1" ||
		value == "true" {
		return true
	}

	return false
}
