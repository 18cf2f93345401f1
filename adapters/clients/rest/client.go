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

// Package rest talks to the administrative and data-plane HTTP API of a
// weaviate instance. Typed endpoints go through the generated client;
// endpoints whose payload differs between server versions are read raw.
package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-openapi/runtime"
	httptransport "github.com/go-openapi/runtime/client"
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	apiclient "github.com/weaviate/weaviate/client"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
)

type Config struct {
	Origin  string
	APIKey  string
	Timeout time.Duration
	// Retries of idempotent raw reads that failed with a connection error
	// or a server side status.
	Retries int
}

type Client struct {
	api     *apiclient.Weaviate
	http    *http.Client
	origin  *url.URL
	auth    runtime.ClientAuthInfoWriter
	apiKey  string
	retries int
	retryer *retryer
	logger  logrus.FieldLogger
}

func New(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, errors.Wrapf(err, "parse origin %q", cfg.Origin)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, errors.Errorf("origin %q needs a scheme and a host", cfg.Origin)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	transport := httptransport.NewWithClient(origin.Host, "/v1", []string{origin.Scheme}, httpClient)

	c := &Client{
		api:     apiclient.New(transport, strfmt.Default),
		http:    httpClient,
		origin:  origin,
		retries: cfg.Retries,
		retryer: newRetryer(),
		logger:  logger,
	}
	if cfg.APIKey != "" {
		c.auth = createAuth(cfg.APIKey)
		c.apiKey = cfg.APIKey
	}
	return c, nil
}

// createAuth attaches the api key to every call of the generated client.
func createAuth(apiKey string) runtime.ClientAuthInfoWriterFunc {
	return func(r runtime.ClientRequest, _ strfmt.Registry) error {
		return r.SetHeaderParam("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}
}

func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.origin.String(), "/") + path
}

// get is do for idempotent reads, retried on transient failures.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	var payload []byte
	err := c.retryer.retry(ctx, c.retries, func(ctx context.Context) (bool, error) {
		var err error
		payload, err = c.do(ctx, op, http.MethodGet, path, nil)
		if err != nil && shouldRetry(err) {
			c.logger.WithFields(logrus.Fields{
				"action": "request_retry",
				"op":     op,
			}).WithError(err).Warn("retrying request")
			return true, err
		}
		return false, err
	})
	return payload, err
}

// do sends a raw request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: build request", op)
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, enterrors.NewTransportError(op, err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, enterrors.NewTransportError(op, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, enterrors.NewTransportStatusError(op, res.StatusCode, string(payload))
	}
	return payload, nil
}

// Live reports whether the instance answers its liveness endpoint.
func (c *Client) Live(ctx context.Context) error {
	_, err := c.get(ctx, "liveness", "/v1/.well-known/live")
	return err
}

// transportErr turns an error of the generated client into a
// *TransportError, keeping the status code where there is one.
func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *runtime.APIError
	if errors.As(err, &apiErr) {
		return &enterrors.TransportError{Op: op, Status: apiErr.Code, Err: err}
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return &enterrors.TransportError{Op: op, Status: coded.Code(), Err: err}
	}
	return enterrors.NewTransportError(op, err)
}
