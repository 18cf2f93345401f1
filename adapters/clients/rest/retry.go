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
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
)

type retryer struct {
	minBackOff time.Duration
	maxBackOff time.Duration
}

func newRetryer() *retryer {
	return &retryer{
		minBackOff: time.Millisecond * 250,
		maxBackOff: time.Second * 30,
	}
}

// retry calls work until it succeeds, reports that trying again is
// pointless, or n retries are used up. Context errors end it at once.
func (r *retryer) retry(ctx context.Context, n int, work func(context.Context) (bool, error)) error {
	delay := r.minBackOff
	for {
		keepTrying, err := work(ctx)
		if !keepTrying || n < 1 || err == nil {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		n--
		if delay = backOff(delay); delay > r.maxBackOff {
			delay = r.maxBackOff
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%v: %w", err, ctx.Err())
		case <-timer.C:
		}
		timer.Stop()
	}
}

func backOff(d time.Duration) time.Duration {
	return time.Duration(float64(d.Nanoseconds()*2) * (0.5 + rand.Float64()))
}

// shouldRetry reports whether a failed raw call may succeed on a second
// attempt: connection failures and server side errors.
func shouldRetry(err error) bool {
	var te *enterrors.TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.Status == 0 || te.Status == http.StatusTooManyRequests || te.Status >= 500
}
