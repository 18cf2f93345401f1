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
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
)

// MetricsSource returns the Prometheus text exposition of the remote
// service.
type MetricsSource interface {
	ScrapeMetrics(ctx context.Context) ([]byte, error)
}

// Scraper reads single samples out of the remote service's metrics.
type Scraper struct {
	source MetricsSource
	logger logrus.FieldLogger
}

func NewScraper(source MetricsSource, logger logrus.FieldLogger) *Scraper {
	return &Scraper{source: source, logger: logger}
}

// GetMetric returns the value of the one sample of metric whose label
// labelName equals labelValue.
func (s *Scraper) GetMetric(ctx context.Context, metric, labelName, labelValue string) (float64, error) {
	text, err := s.source.ScrapeMetrics(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "scrape metrics")
	}
	return ParseMetric(bytes.NewReader(text), metric, labelName, labelValue)
}

// ParseMetric finds exactly one counter, gauge or untyped sample of metric
// whose label labelName equals labelValue. Zero or several matches are a
// MetricParseError: ambiguous telemetry is never defaulted.
func ParseMetric(r io.Reader, metric, labelName, labelValue string) (float64, error) {
	label := fmt.Sprintf("%s=%q", labelName, labelValue)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return 0, &enterrors.MetricParseError{Metric: metric, Label: label, Reason: err.Error()}
	}

	family, ok := families[metric]
	if !ok {
		return 0, &enterrors.MetricParseError{Metric: metric, Label: label, Matches: 0}
	}

	var matches []*dto.Metric
	for _, m := range family.GetMetric() {
		if hasLabel(m, labelName, labelValue) {
			matches = append(matches, m)
		}
	}
	if len(matches) != 1 {
		return 0, &enterrors.MetricParseError{Metric: metric, Label: label, Matches: len(matches)}
	}

	m := matches[0]
	switch family.GetType() {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), nil
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), nil
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue(), nil
	default:
		return 0, &enterrors.MetricParseError{
			Metric: metric, Label: label, Matches: 1,
			Reason: fmt.Sprintf("unsupported metric type %s", family.GetType()),
		}
	}
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

// WaitFor polls metric every interval until until returns true for its
// value or timeout elapses. Scrape and parse errors end the wait
// immediately.
func (s *Scraper) WaitFor(ctx context.Context, metric, labelName, labelValue string,
	interval, timeout time.Duration, until func(float64) bool,
) (float64, error) {
	_, v, err := s.WaitForAny(ctx, []string{metric}, labelName, labelValue, interval, timeout, until)
	return v, err
}

// WaitForAny is WaitFor over several metrics sharing the label. It returns
// the first metric whose value satisfies until. A metric without any sample
// counts as unsatisfied as long as another one of them has a sample; when
// none has, the wait ends with a MetricParseError. On timeout the value of
// the first metric is returned.
func (s *Scraper) WaitForAny(ctx context.Context, metrics []string, labelName, labelValue string,
	interval, timeout time.Duration, until func(float64) bool,
) (string, float64, error) {
	if len(metrics) == 0 {
		return "", 0, errors.New("wait for metrics: no metric given")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		hit  string
		last = make(map[string]float64, len(metrics))
	)
	op := func() error {
		text, err := s.source.ScrapeMetrics(ctx)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "scrape metrics"))
		}
		var (
			found   int
			missing error
			values  []string
		)
		for _, metric := range metrics {
			v, err := ParseMetric(bytes.NewReader(text), metric, labelName, labelValue)
			if isAbsent(err) {
				missing = err
				continue
			}
			if err != nil {
				return backoff.Permanent(err)
			}
			found++
			last[metric] = v
			if until(v) {
				hit = metric
				return nil
			}
			values = append(values, fmt.Sprintf("%s is %v", metric, v))
		}
		if found == 0 {
			return backoff.Permanent(missing)
		}
		return fmt.Errorf("%s=%q: %s", labelName, labelValue, strings.Join(values, ", "))
	}
	notify := func(err error, next time.Duration) {
		s.logger.WithFields(logrus.Fields{
			"action":  "metric_wait",
			"metrics": metrics,
			"label":   labelValue,
			"next":    next,
		}).Debug(err.Error())
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if ctx.Err() != nil {
			return "", last[metrics[0]], errors.Wrapf(ctx.Err(), "waiting for %s{%s=%q}, last values %v",
				strings.Join(metrics, " or "), labelName, labelValue, last)
		}
		return "", last[metrics[0]], err
	}
	return hit, last[hit], nil
}

// isAbsent reports whether err says the metric has no matching sample at
// all, as opposed to an unparseable or ambiguous one.
func isAbsent(err error) bool {
	var perr *enterrors.MetricParseError
	return errors.As(err, &perr) && perr.Matches == 0 && perr.Reason == ""
}
