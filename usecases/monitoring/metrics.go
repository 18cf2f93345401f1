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

package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the harness' own metrics. All methods are safe to call on a
// nil *Metrics, which disables recording.
type Metrics struct {
	ConvergencePolls              *prometheus.CounterVec
	ConvergenceNodesSeen          prometheus.Gauge
	ConvergenceDistinctWatermarks prometheus.Gauge

	ImportRecords *prometheus.CounterVec
	ImportFlushes *prometheus.CounterVec

	SweepQueryDurations *prometheus.HistogramVec
	SweepRecall         *prometheus.GaugeVec
	SweepPointFailures  *prometheus.CounterVec
	SweepImportDuration *prometheus.GaugeVec

	BackupDurations *prometheus.HistogramVec

	GRPCInflight     *prometheus.GaugeVec
	GRPCRequestSize  *prometheus.HistogramVec
	GRPCResponseSize *prometheus.HistogramVec
	GRPCDurations    *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = NoopRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ConvergencePolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chaos_convergence_polls_total",
			Help: "Number of statistics polls, by outcome",
		}, []string{"outcome"}),
		ConvergenceNodesSeen: f.NewGauge(prometheus.GaugeOpts{
			Name: "chaos_convergence_nodes_seen",
			Help: "Number of nodes that reported a watermark so far",
		}),
		ConvergenceDistinctWatermarks: f.NewGauge(prometheus.GaugeOpts{
			Name: "chaos_convergence_distinct_watermarks",
			Help: "Number of distinct watermarks in the current snapshot",
		}),

		ImportRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chaos_import_objects_total",
			Help: "Objects handled by the import pipeline, by class and outcome",
		}, []string{"class_name", "outcome"}),
		ImportFlushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chaos_import_batches_total",
			Help: "Batches sent to the server, by class",
		}, []string{"class_name"}),

		SweepQueryDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaos_sweep_query_duration_seconds",
			Help:    "Latency of single sweep queries",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"path", "shards", "ef"}),
		SweepRecall: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chaos_sweep_recall",
			Help: "Mean recall of the last measured sweep point",
		}, []string{"path", "shards", "ef"}),
		SweepPointFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chaos_sweep_point_failures_total",
			Help: "Sweep points that could not be measured",
		}, []string{"shards", "ef"}),
		SweepImportDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chaos_sweep_import_duration_seconds",
			Help: "Duration of the import of the last sweep cell",
		}, []string{"shards", "m"}),

		BackupDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaos_backup_duration_seconds",
			Help:    "Duration of synchronous backups, by backend and final status",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"backend", "status"}),

		GRPCInflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chaos_grpc_requests_inflight",
			Help: "In-flight client requests on the RPC query path",
		}, []string{"method"}),
		GRPCRequestSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaos_grpc_request_size_bytes",
			Help:    "Wire size of RPC requests",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"method"}),
		GRPCResponseSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaos_grpc_response_size_bytes",
			Help:    "Wire size of RPC responses",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"method"}),
		GRPCDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaos_grpc_request_duration_seconds",
			Help:    "Duration of RPC requests, by status code",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"method", "code"}),
	}
}

func (m *Metrics) ConvergencePoll(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.ConvergencePolls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ConvergenceSnapshot(snapshot map[string]uint64) {
	if m == nil {
		return
	}
	distinct := map[uint64]struct{}{}
	for _, wm := range snapshot {
		distinct[wm] = struct{}{}
	}
	m.ConvergenceNodesSeen.Set(float64(len(snapshot)))
	m.ConvergenceDistinctWatermarks.Set(float64(len(distinct)))
}

func (m *Metrics) ImportObject(class, outcome string) {
	if m == nil {
		return
	}
	m.ImportRecords.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) ImportBatch(class string) {
	if m == nil {
		return
	}
	m.ImportFlushes.WithLabelValues(class).Inc()
}

func (m *Metrics) SweepQuery(path string, shards, ef int, took time.Duration) {
	if m == nil {
		return
	}
	m.SweepQueryDurations.WithLabelValues(path, strconv.Itoa(shards), strconv.Itoa(ef)).
		Observe(took.Seconds())
}

func (m *Metrics) SweepPoint(path string, shards, ef int, recall float64) {
	if m == nil {
		return
	}
	m.SweepRecall.WithLabelValues(path, strconv.Itoa(shards), strconv.Itoa(ef)).Set(recall)
}

func (m *Metrics) SweepPointFailed(shards, ef int) {
	if m == nil {
		return
	}
	m.SweepPointFailures.WithLabelValues(strconv.Itoa(shards), strconv.Itoa(ef)).Inc()
}

func (m *Metrics) SweepImport(shards, maxConnections int, took time.Duration) {
	if m == nil {
		return
	}
	m.SweepImportDuration.WithLabelValues(strconv.Itoa(shards), strconv.Itoa(maxConnections)).
		Set(took.Seconds())
}

func (m *Metrics) Backup(backend, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.BackupDurations.WithLabelValues(backend, status).Observe(took.Seconds())
}
