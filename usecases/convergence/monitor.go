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

// Package convergence decides whether a replicated cluster has reached a
// consistent point by polling the applied-log watermark of every node.
package convergence

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

// Watermark is the applied log index a node reported.
type Watermark struct {
	Node    string
	Applied uint64
}

// NodeLister discovers the nodes of the cluster.
type NodeLister interface {
	NodeNames(ctx context.Context) ([]string, error)
}

// StatisticsSource returns the watermarks the queried endpoint knows
// about. Depending on the server version one call yields the statistics of
// a single node or of all nodes.
type StatisticsSource interface {
	Watermarks(ctx context.Context) ([]Watermark, error)
}

type Params struct {
	Nodes      NodeLister
	Statistics StatisticsSource
	Logger     logrus.FieldLogger
	Metrics    *monitoring.Metrics
	Clock      clockwork.Clock

	PollInterval time.Duration
	Timeout      time.Duration
	// CallTimeout bounds every single remote call, independent of Timeout.
	CallTimeout time.Duration
	// ExpectedReplicas skips node discovery when positive.
	ExpectedReplicas int
}

type Monitor struct {
	nodes   NodeLister
	stats   StatisticsSource
	logger  logrus.FieldLogger
	metrics *monitoring.Metrics
	clock   clockwork.Clock

	pollInterval     time.Duration
	timeout          time.Duration
	callTimeout      time.Duration
	expectedReplicas int
}

func NewMonitor(params Params) *Monitor {
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}
	if params.CallTimeout <= 0 {
		params.CallTimeout = params.PollInterval
	}
	return &Monitor{
		nodes:            params.Nodes,
		stats:            params.Statistics,
		logger:           params.Logger,
		metrics:          params.Metrics,
		clock:            params.Clock,
		pollInterval:     params.PollInterval,
		timeout:          params.Timeout,
		callTimeout:      params.CallTimeout,
		expectedReplicas: params.ExpectedReplicas,
	}
}

// ExpectedReplicas returns the number of nodes the cluster should consist
// of. A failed discovery is returned as is; no count is guessed.
func (m *Monitor) ExpectedReplicas(ctx context.Context) (int, error) {
	if m.expectedReplicas > 0 {
		return m.expectedReplicas, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	nodes, err := m.nodes.NodeNames(ctx)
	if err != nil {
		return -1, errors.Wrap(err, "discover cluster nodes")
	}
	m.logger.WithFields(logrus.Fields{
		"action": "converge_discover",
		"nodes":  len(nodes),
	}).Infof("cluster consists of %d nodes", len(nodes))
	return len(nodes), nil
}

// CheckConvergence polls the cluster until every expected node has reported
// the same watermark or the wall-clock budget is exhausted. Watermarks are
// accumulated across ticks, the most recent value per node wins.
func (m *Monitor) CheckConvergence(ctx context.Context) (bool, error) {
	m.logger.WithField("action", "converge_start").Info("started checking if cluster is in sync")

	expected, err := m.ExpectedReplicas(ctx)
	if err != nil {
		return false, err
	}
	if expected < 1 {
		return false, errors.Errorf("cluster reports %d nodes, nothing to converge", expected)
	}

	var (
		start    = m.clock.Now()
		snapshot = map[string]uint64{}
		lastErr  error
		tick     int
	)
	for {
		remaining := m.timeout - m.clock.Since(start)
		if remaining <= 0 {
			return false, &enterrors.ConvergenceTimeout{
				Expected:  expected,
				Elapsed:   m.clock.Since(start).Truncate(time.Millisecond).String(),
				LastSeen:  snapshot,
				LastError: lastErr,
			}
		}

		tick++
		if err := m.poll(ctx, remaining, snapshot); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			lastErr = err
			m.metrics.ConvergencePoll(false)
			m.logger.WithFields(logrus.Fields{
				"action": "converge_poll",
				"tick":   tick,
			}).WithError(err).Warn("no statistics this tick")
		} else {
			m.metrics.ConvergencePoll(true)
		}
		m.metrics.ConvergenceSnapshot(snapshot)

		if IsConverged(snapshot, expected) {
			m.logger.WithFields(logrus.Fields{
				"action":    "converge_done",
				"tick":      tick,
				"nodes":     len(snapshot),
				"watermark": anyValue(snapshot),
				"took":      m.clock.Since(start).String(),
			}).Info("raft cluster is in sync")
			return true, nil
		}

		m.logger.WithFields(logrus.Fields{
			"action":   "converge_poll",
			"tick":     tick,
			"expected": expected,
			"nodes":    snapshot,
		}).Warnf("raft cluster is not in sync, checking in %s", m.pollInterval)

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-m.clock.After(m.pollInterval):
		}
	}
}

func (m *Monitor) poll(ctx context.Context, remaining time.Duration, snapshot map[string]uint64) error {
	timeout := m.callTimeout
	if remaining < timeout {
		timeout = remaining
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	marks, err := m.stats.Watermarks(ctx)
	if err != nil {
		return err
	}
	for _, wm := range marks {
		if wm.Node == "" {
			continue
		}
		snapshot[wm.Node] = wm.Applied
	}
	return nil
}

// IsConverged is true iff the snapshot holds exactly expected nodes and all
// of them report the same watermark.
func IsConverged(snapshot map[string]uint64, expected int) bool {
	if len(snapshot) == 0 || len(snapshot) != expected {
		return false
	}
	first := true
	var want uint64
	for _, wm := range snapshot {
		if first {
			want, first = wm, false
			continue
		}
		if wm != want {
			return false
		}
	}
	return true
}

func anyValue(snapshot map[string]uint64) uint64 {
	for _, v := range snapshot {
		return v
	}
	return 0
}
