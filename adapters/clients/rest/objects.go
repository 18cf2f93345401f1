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

	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
	"github.com/weaviate/weaviate/client/batch"
	"github.com/weaviate/weaviate/client/objects"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/weaviate/chaos-harness/usecases/dataset"
)

func objectModel(rec dataset.Record) *models.Object {
	obj := &models.Object{
		Class:      rec.Class,
		ID:         rec.ID,
		Properties: rec.Properties,
	}
	if rec.Vector != nil {
		obj.Vector = models.C11yVector(rec.Vector)
	}
	return obj
}

// Exists checks whether the object is present. A 404 is a regular false.
func (c *Client) Exists(ctx context.Context, class string, id strfmt.UUID) (bool, error) {
	params := objects.NewObjectsClassHeadParams().WithContext(ctx).WithClassName(class).WithID(id)
	_, err := c.api.Objects.ObjectsClassHead(params, c.auth)
	if err == nil {
		return true, nil
	}
	var notFound *objects.ObjectsClassHeadNotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, transportErr(fmt.Sprintf("head object %s/%s", class, id), err)
}

func (c *Client) CreateObject(ctx context.Context, rec dataset.Record) error {
	params := objects.NewObjectsCreateParams().WithContext(ctx).WithBody(objectModel(rec))
	if _, err := c.api.Objects.ObjectsCreate(params, c.auth); err != nil {
		return transportErr(fmt.Sprintf("create object %s/%s", rec.Class, rec.ID), err)
	}
	return nil
}

// BatchCreate sends recs in one request. Per-object errors are matched
// back to recs by id.
func (c *Client) BatchCreate(ctx context.Context, recs []dataset.Record) ([]error, error) {
	objs := make([]*models.Object, len(recs))
	for i, rec := range recs {
		objs[i] = objectModel(rec)
	}
	params := batch.NewBatchObjectsCreateParams().WithContext(ctx).
		WithBody(batch.BatchObjectsCreateBody{Objects: objs})
	res, err := c.api.Batch.BatchObjectsCreate(params, c.auth)
	if err != nil {
		return nil, transportErr(fmt.Sprintf("batch create %d objects", len(recs)), err)
	}

	failed := map[strfmt.UUID]error{}
	for _, elem := range res.Payload {
		if elem == nil || elem.Result == nil || elem.Result.Errors == nil || len(elem.Result.Errors.Error) == 0 {
			continue
		}
		failed[elem.ID] = errors.New(elem.Result.Errors.Error[0].Message)
	}
	errs := make([]error, len(recs))
	for i, rec := range recs {
		errs[i] = failed[rec.ID]
	}
	return errs, nil
}

// DeleteByIDs deletes the objects of class whose id is one of ids with a
// single ContainsAny filter.
func (c *Client) DeleteByIDs(ctx context.Context, class string, ids []strfmt.UUID) (int64, error) {
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = id.String()
	}
	body := &models.BatchDelete{
		Match: &models.BatchDeleteMatch{
			Class: class,
			Where: &models.WhereFilter{
				Path:           []string{"id"},
				Operator:       models.WhereFilterOperatorContainsAny,
				ValueTextArray: values,
			},
		},
	}
	params := batch.NewBatchObjectsDeleteParams().WithContext(ctx).WithBody(body)
	res, err := c.api.Batch.BatchObjectsDelete(params, c.auth)
	if err != nil {
		return 0, transportErr(fmt.Sprintf("batch delete %d %s objects", len(ids), class), err)
	}
	if res.Payload == nil || res.Payload.Results == nil {
		return 0, nil
	}
	if res.Payload.Results.Failed > 0 {
		return res.Payload.Results.Successful, errors.Errorf("batch delete %s: %d of %d objects failed",
			class, res.Payload.Results.Failed, res.Payload.Results.Matches)
	}
	return res.Payload.Results.Successful, nil
}

const listPageSize = 1000

// ListIDs pages through the objects of class with a cursor until limit
// ids are collected or the class is exhausted.
func (c *Client) ListIDs(ctx context.Context, class string, limit int) ([]strfmt.UUID, error) {
	var (
		out   []strfmt.UUID
		after string
	)
	for len(out) < limit {
		pageSize := int64(listPageSize)
		if remaining := int64(limit - len(out)); remaining < pageSize {
			pageSize = remaining
		}
		params := objects.NewObjectsListParams().WithContext(ctx).
			WithClass(&class).WithLimit(&pageSize)
		if after != "" {
			cursor := after
			params = params.WithAfter(&cursor)
		}
		res, err := c.api.Objects.ObjectsList(params, c.auth)
		if err != nil {
			return out, transportErr("list objects of "+class, err)
		}
		if res.Payload == nil || len(res.Payload.Objects) == 0 {
			break
		}
		for _, obj := range res.Payload.Objects {
			out = append(out, obj.ID)
		}
		after = res.Payload.Objects[len(res.Payload.Objects)-1].ID.String()
	}
	return out, nil
}
