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

package ingest

import (
	"context"

	"github.com/go-openapi/strfmt"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/chaos-harness/entities/errors"
)

// Dedupe reduces ids to a set, keeping the order of first occurrence.
// Duplicates are logged, they are not an error.
func Dedupe(ids []strfmt.UUID, logger logrus.FieldLogger) []strfmt.UUID {
	seen := make(map[strfmt.UUID]struct{}, len(ids))
	out := make([]strfmt.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) != len(ids) {
		logger.WithFields(logrus.Fields{
			"action":     "dedupe_ids",
			"input":      len(ids),
			"unique":     len(out),
			"duplicates": len(ids) - len(out),
		}).Info("ids contain duplicates")
	}
	return out
}

// Validator asserts that objects exist.
type Validator struct {
	store       ExistenceChecker
	logger      logrus.FieldLogger
	parallelism int
}

func NewValidator(store ExistenceChecker, logger logrus.FieldLogger, parallelism int) *Validator {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Validator{store: store, logger: logger, parallelism: parallelism}
}

// AssertAllExist checks every id and reports all missing ones in a single
// *ValidationError, in input order. A failed existence check aborts the
// validation with that error.
func (v *Validator) AssertAllExist(ctx context.Context, class string, ids []strfmt.UUID) error {
	v.logger.WithFields(logrus.Fields{
		"action": "validate_exists",
		"class":  class,
		"count":  len(ids),
	}).Info("checking if objects exist")

	missing := make([]bool, len(ids))
	eg, gctx := enterrors.NewErrorGroupWithContext(ctx, v.logger, "validate", class)
	eg.SetLimit(v.parallelism)
	for i := range ids {
		i := i
		eg.Go(func() error {
			exists, err := v.store.Exists(gctx, class, ids[i])
			if err != nil {
				return errors.Wrapf(err, "check existence of %s", ids[i])
			}
			missing[i] = !exists
			return nil
		}, ids[i])
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	verr := &enterrors.ValidationError{Class: class, Checked: len(ids)}
	var merr *multierror.Error
	for i, m := range missing {
		if !m {
			continue
		}
		verr.Missing = append(verr.Missing, ids[i].String())
		merr = multierror.Append(merr, errors.Errorf("object %s does not exist", ids[i]))
	}
	if len(verr.Missing) == 0 {
		return nil
	}

	v.logger.WithFields(logrus.Fields{
		"action":  "validate_exists",
		"class":   class,
		"missing": len(verr.Missing),
	}).WithError(merr.ErrorOrNil()).Error("objects missing")
	return verr
}
