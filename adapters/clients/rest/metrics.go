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

package rest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
)

// MetricsEndpoint serves the Prometheus exposition of an instance, which
// lives on its own port.
type MetricsEndpoint struct {
	url  string
	http *http.Client
}

func NewMetricsEndpoint(origin string, timeout time.Duration) (*MetricsEndpoint, error) {
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		return nil, errors.Errorf("metrics origin %q needs an http or https scheme", origin)
	}
	return &MetricsEndpoint{
		url:  strings.TrimSuffix(origin, "/") + "/metrics",
		http: &http.Client{Timeout: timeout},
	}, nil
}

func (m *MetricsEndpoint) ScrapeMetrics(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build metrics request")
	}
	req.Header.Set("Accept", "text/plain")
	res, err := m.http.Do(req)
	if err != nil {
		return nil, enterrors.NewTransportError("scrape metrics", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, enterrors.NewTransportError("scrape metrics", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, enterrors.NewTransportStatusError("scrape metrics", res.StatusCode, string(body))
	}
	return body, nil
}
