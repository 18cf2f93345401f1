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
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MaxDeleteChunk is the largest id set sent in a single delete call.
const MaxDeleteChunk = 5000

// BatchDeleter deletes the objects of class whose id is one of ids.
type BatchDeleter interface {
	DeleteByIDs(ctx context.Context, class string, ids []strfmt.UUID) (int64, error)
}

// DeleteByIDs deletes ids in chunks of at most MaxDeleteChunk. Each call's
// filter holds exactly the ids of its own chunk. It returns the number of
// objects the server reported as deleted.
func DeleteByIDs(ctx context.Context, deleter BatchDeleter, class string, ids []strfmt.UUID,
	logger logrus.FieldLogger,
) (int64, error) {
	var deleted int64
	for start := 0; start < len(ids); start += MaxDeleteChunk {
		end := start + MaxDeleteChunk
		if end > len(ids) {
			end = len(ids)
		}
		n, err := deleter.DeleteByIDs(ctx, class, ids[start:end])
		if err != nil {
			return deleted, errors.Wrapf(err, "delete %s objects %d to %d", class, start, end)
		}
		deleted += n
	}

	logger.WithFields(logrus.Fields{
		"action":    "delete_objects",
		"class":     class,
		"requested": len(ids),
		"deleted":   deleted,
	}).Info("deleted objects")
	return deleted, nil
}
