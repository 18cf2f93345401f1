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

// Package backup creates backups of the remote service and waits for them
// to finish.
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
	"github.com/weaviate/chaos-harness/usecases/monitoring"
)

// Statuses reported by the remote service.
const (
	StatusStarted      = "STARTED"
	StatusTransferring = "TRANSFERRING"
	StatusTransferred  = "TRANSFERRED"
	StatusSuccess      = "SUCCESS"
	StatusFailed       = "FAILED"
	StatusCanceled     = "CANCELED"
)

// Status is the state of one backup.
type Status struct {
	ID     string
	Status string
	Error  string
}

func (s Status) InProgress() bool {
	switch s.Status {
	case StatusStarted, StatusTransferring, StatusTransferred:
		return true
	default:
		return false
	}
}

type Client interface {
	CreateBackup(ctx context.Context, backend, id string, include []string) (Status, error)
	BackupStatus(ctx context.Context, backend, id string) (Status, error)
}

type Creator struct {
	client  Client
	backend string
	poll    time.Duration
	timeout time.Duration
	logger  logrus.FieldLogger
	metrics *monitoring.Metrics
}

func NewCreator(client Client, backend string, poll, timeout time.Duration,
	logger logrus.FieldLogger, metrics *monitoring.Metrics,
) *Creator {
	return &Creator{
		client:  client,
		backend: backend,
		poll:    poll,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// ID derives a backup id from a point in time, one per second.
func ID(t time.Time) string {
	return fmt.Sprintf("%d", t.Unix())
}

// CreateBackup starts a backup of the given classes, all classes if none
// are given, and blocks until it reached a terminal status. Every terminal
// status other than SUCCESS is returned as *BackupFailure.
func (c *Creator) CreateBackup(ctx context.Context, id string, include ...string) error {
	start := time.Now()
	logger := c.logger.WithFields(logrus.Fields{
		"action":  "backup_create",
		"backend": c.backend,
		"id":      id,
	})
	logger.Info("start backup")

	status, err := c.client.CreateBackup(ctx, c.backend, id, include)
	if err != nil {
		return errors.Wrapf(err, "create backup %q", id)
	}

	if status.InProgress() {
		status, err = c.wait(ctx, id, status)
		if err != nil {
			return err
		}
	}

	c.metrics.Backup(c.backend, status.Status, time.Since(start))
	if status.Status != StatusSuccess {
		failure := &enterrors.BackupFailure{
			ID: id, Backend: c.backend, Status: status.Status, Reason: status.Error,
		}
		logger.WithField("status", status.Status).WithError(failure).Error("backup create failed")
		return failure
	}

	logger.WithField("took", time.Since(start).String()).Info("backup finished")
	return nil
}

func (c *Creator) wait(ctx context.Context, id string, last Status) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := func() error {
		status, err := c.client.BackupStatus(ctx, c.backend, id)
		if err != nil {
			return backoff.Permanent(errors.Wrapf(err, "status of backup %q", id))
		}
		last = status
		if status.InProgress() {
			return fmt.Errorf("backup %q is %s", id, status.Status)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.logger.WithFields(logrus.Fields{
			"action": "backup_status",
			"id":     id,
			"status": last.Status,
		}).Debugf("backup in progress, checking again in %s", next)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(c.poll), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if ctx.Err() != nil {
			return last, errors.Wrapf(ctx.Err(), "waiting for backup %q, last status %s", id, last.Status)
		}
		return last, err
	}
	return last, nil
}
