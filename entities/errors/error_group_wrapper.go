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
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrorGroupWrapper is a custom type that embeds errgroup.Group and
// recovers panics of its goroutines into errors.
type ErrorGroupWrapper struct {
	*errgroup.Group
	logger    logrus.FieldLogger
	Variables []interface{}
}

// NewErrorGroupWrapper creates a new ErrorGroupWrapper.
func NewErrorGroupWrapper(logger logrus.FieldLogger, vars ...interface{}) *ErrorGroupWrapper {
	return &ErrorGroupWrapper{
		Group:     new(errgroup.Group),
		logger:    logger,
		Variables: vars,
	}
}

// NewErrorGroupWithContext creates a new ErrorGroupWrapper whose derived
// context is cancelled on the first error.
func NewErrorGroupWithContext(ctx context.Context, logger logrus.FieldLogger,
	vars ...interface{},
) (*ErrorGroupWrapper, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &ErrorGroupWrapper{
		Group:     g,
		logger:    logger,
		Variables: vars,
	}, gctx
}

// Go overrides the Go method to add panic recovery logic.
func (egw *ErrorGroupWrapper) Go(f func() error, localVars ...interface{}) {
	egw.Group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				egw.logger.WithFields(logrus.Fields{
					"action":     "recover_panic",
					"local_vars": localVars,
					"vars":       egw.Variables,
					"stack":      string(debug.Stack()),
				}).Errorf("recovered from panic: %v", r)
				err = fmt.Errorf("panic occurred: %v", r)
			}
		}()
		return f()
	})
}
