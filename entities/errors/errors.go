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

package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TransportError is any failed remote call: connection failures as well as
// responses with a non-2xx HTTP status or a non-OK gRPC code.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func NewTransportStatusError(op string, status int, body string) *TransportError {
	return &TransportError{
		Op:     op,
		Status: status,
		Err:    fmt.Errorf("unexpected status %d: %s", status, strings.TrimSpace(body)),
	}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConvergenceTimeout is returned when the wall-clock budget of a
// convergence check ran out before every expected node reported the same
// watermark.
type ConvergenceTimeout struct {
	Expected  int
	Elapsed   string
	LastSeen  map[string]uint64
	LastError error
}

func (e *ConvergenceTimeout) Error() string {
	nodes := make([]string, 0, len(e.LastSeen))
	for node, wm := range e.LastSeen {
		nodes = append(nodes, fmt.Sprintf("%s=%d", node, wm))
	}
	sort.Strings(nodes)
	msg := fmt.Sprintf("cluster did not converge after %s: expected %d nodes, saw [%s]",
		e.Elapsed, e.Expected, strings.Join(nodes, " "))
	if e.LastError != nil {
		msg += fmt.Sprintf(", last poll error: %v", e.LastError)
	}
	return msg
}

// ValidationError lists every object id that was expected to exist but
// could not be found.
type ValidationError struct {
	Class   string
	Checked int
	Missing []string
}

func (e *ValidationError) Error() string {
	const maxListed = 10
	listed := e.Missing
	suffix := ""
	if len(listed) > maxListed {
		listed = listed[:maxListed]
		suffix = fmt.Sprintf(" (and %d more)", len(e.Missing)-maxListed)
	}
	return fmt.Sprintf("%d of %d objects missing in %q: %s%s",
		len(e.Missing), e.Checked, e.Class, strings.Join(listed, ", "), suffix)
}

// PartialImportFailure describes a single top-level record that could not
// be imported. It is recovered by the import pipeline and never aborts it.
type PartialImportFailure struct {
	Line int
	ID   string
	Err  error
}

func (e *PartialImportFailure) Error() string {
	return fmt.Sprintf("import record %s (line %d): %v", e.ID, e.Line, e.Err)
}

func (e *PartialImportFailure) Unwrap() error {
	return e.Err
}

// BackupFailure is returned when a backup reaches a terminal status other
// than SUCCESS.
type BackupFailure struct {
	ID      string
	Backend string
	Status  string
	Reason  string
}

func (e *BackupFailure) Error() string {
	msg := fmt.Sprintf("backup %q on backend %q finished with status %s", e.ID, e.Backend, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// MetricParseError is returned when scraped metrics do not contain exactly
// one sample for the requested metric and label.
type MetricParseError struct {
	Metric  string
	Label   string
	Matches int
	Reason  string
}

func (e *MetricParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("metric %s{%s}: %s", e.Metric, e.Label, e.Reason)
	}
	return fmt.Sprintf("metric %s{%s}: expected exactly one sample, found %d",
		e.Metric, e.Label, e.Matches)
}

// IsTransport reports whether err is, or wraps, a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
