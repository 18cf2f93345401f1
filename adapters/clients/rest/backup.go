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
	"fmt"

	"github.com/weaviate/weaviate/client/backups"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/weaviate/chaos-harness/usecases/backup"
)

func (c *Client) CreateBackup(ctx context.Context, backend, id string, include []string) (backup.Status, error) {
	params := backups.NewBackupsCreateParams().WithContext(ctx).WithBackend(backend).
		WithBody(&models.BackupCreateRequest{ID: id, Include: include})
	res, err := c.api.Backups.BackupsCreate(params, c.auth)
	if err != nil {
		return backup.Status{}, transportErr(fmt.Sprintf("create backup %s on %s", id, backend), err)
	}
	st := backup.Status{ID: id}
	if res.Payload != nil {
		st.Error = res.Payload.Error
		if res.Payload.Status != nil {
			st.Status = *res.Payload.Status
		}
	}
	return st, nil
}

func (c *Client) BackupStatus(ctx context.Context, backend, id string) (backup.Status, error) {
	params := backups.NewBackupsCreateStatusParams().WithContext(ctx).WithBackend(backend).WithID(id)
	res, err := c.api.Backups.BackupsCreateStatus(params, c.auth)
	if err != nil {
		return backup.Status{}, transportErr(fmt.Sprintf("backup status %s on %s", id, backend), err)
	}
	st := backup.Status{ID: id}
	if res.Payload != nil {
		st.Error = res.Payload.Error
		if res.Payload.Status != nil {
			st.Status = *res.Payload.Status
		}
	}
	return st, nil
}
