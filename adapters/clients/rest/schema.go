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

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	clschema "github.com/weaviate/weaviate/client/schema"

	"github.com/weaviate/chaos-harness/entities/schema"
)

// Collections lists the names of all classes.
func (c *Client) Collections(ctx context.Context) ([]string, error) {
	res, err := c.api.Schema.SchemaDump(clschema.NewSchemaDumpParams().WithContext(ctx), c.auth)
	if err != nil {
		return nil, transportErr("dump schema", err)
	}
	var names []string
	if res.Payload != nil {
		for _, class := range res.Payload.Classes {
			names = append(names, class.Class)
		}
	}
	return names, nil
}

// DeleteAllCollections clears every class left over from earlier runs.
func (c *Client) DeleteAllCollections(ctx context.Context) error {
	names, err := c.Collections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := c.DeleteCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	params := clschema.NewSchemaObjectsDeleteParams().WithContext(ctx).WithClassName(name)
	if _, err := c.api.Schema.SchemaObjectsDelete(params, c.auth); err != nil {
		return transportErr("delete class "+name, err)
	}
	c.logger.WithFields(logrus.Fields{
		"action": "schema_delete",
		"class":  name,
	}).Debug("deleted class")
	return nil
}

// CreateCollection validates the descriptor and creates the class.
func (c *Client) CreateCollection(ctx context.Context, collection schema.Collection) error {
	class, err := collection.Model()
	if err != nil {
		return err
	}
	params := clschema.NewSchemaObjectsCreateParams().WithContext(ctx).WithObjectClass(class)
	if _, err := c.api.Schema.SchemaObjectsCreate(params, c.auth); err != nil {
		return transportErr("create class "+collection.Name, err)
	}
	c.logger.WithFields(logrus.Fields{
		"action": "schema_create",
		"class":  collection.Name,
		"shards": collection.Sharding.DesiredCount,
	}).Debug("created class")
	return nil
}

// SetSearchEffort updates the ef of the vector index of a class.
func (c *Client) SetSearchEffort(ctx context.Context, name string, ef int) error {
	getParams := clschema.NewSchemaObjectsGetParams().WithContext(ctx).WithClassName(name)
	res, err := c.api.Schema.SchemaObjectsGet(getParams, c.auth)
	if err != nil {
		return transportErr("get class "+name, err)
	}
	class := res.Payload
	if class == nil {
		return errors.Errorf("get class %s: empty response", name)
	}

	cfg, ok := class.VectorIndexConfig.(map[string]interface{})
	if !ok {
		cfg = map[string]interface{}{}
	}
	cfg["ef"] = ef
	class.VectorIndexConfig = cfg

	updateParams := clschema.NewSchemaObjectsUpdateParams().WithContext(ctx).
		WithClassName(name).WithObjectClass(class)
	if _, err := c.api.Schema.SchemaObjectsUpdate(updateParams, c.auth); err != nil {
		return transportErr("update class "+name, err)
	}
	return nil
}
