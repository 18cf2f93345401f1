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
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// GoWrapper runs f in its own goroutine and logs instead of crashing the
// process if f panics.
func GoWrapper(f func(), logger logrus.FieldLogger) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("stack", string(debug.Stack())).
					Errorf("Recovered from panic: %v", r)
			}
		}()
		f()
	}()
}
