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

// Package schema holds the typed collection descriptors the harness submits
// to the remote service. Descriptors are validated before they are turned
// into wire models, so a malformed definition never reaches the server.
package schema

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	VectorizerNone          = "none"
	VectorizerContextionary = "text2vec-contextionary"
)

// Collection describes one class of the remote service.
type Collection struct {
	Name        string
	Description string
	Vectorizer  string
	VectorIndex VectorIndex
	Sharding    Sharding
	Properties  []Property
}

// VectorIndex holds the build-time and search-time parameters of the HNSW
// index of a collection. Zero values are left to the server defaults.
type VectorIndex struct {
	Distance               string
	EfConstruction         int
	MaxConnections         int
	Ef                     int
	CleanupIntervalSeconds int
	VectorCacheMaxObjects  int
}

type Sharding struct {
	DesiredCount int
}

// Validate checks the descriptor for everything the server would reject.
func (c Collection) Validate() error {
	if err := ValidateClassName(c.Name); err != nil {
		return err
	}
	if c.Vectorizer == "" {
		return errors.Errorf("class %q: vectorizer must be set, use %q for none", c.Name, VectorizerNone)
	}
	if err := c.VectorIndex.Validate(); err != nil {
		return errors.Wrapf(err, "class %q", c.Name)
	}
	if c.Sharding.DesiredCount < 0 {
		return errors.Errorf("class %q: desired shard count must not be negative, got %d",
			c.Name, c.Sharding.DesiredCount)
	}

	seen := make(map[string]struct{}, len(c.Properties))
	for _, prop := range c.Properties {
		if err := prop.Validate(); err != nil {
			return errors.Wrapf(err, "class %q", c.Name)
		}
		if _, ok := seen[prop.Name]; ok {
			return errors.Errorf("class %q: duplicate property %q", c.Name, prop.Name)
		}
		seen[prop.Name] = struct{}{}
	}
	return nil
}

func (v VectorIndex) Validate() error {
	if v.Distance != "" && !IsValidDistance(v.Distance) {
		return fmt.Errorf("unsupported distance %q, use one of %v", v.Distance, Distances)
	}
	if v.EfConstruction < 0 {
		return fmt.Errorf("efConstruction must not be negative, got %d", v.EfConstruction)
	}
	if v.MaxConnections < 0 {
		return fmt.Errorf("maxConnections must not be negative, got %d", v.MaxConnections)
	}
	// -1 lets the server pick ef dynamically
	if v.Ef < -1 {
		return fmt.Errorf("ef must be -1 or positive, got %d", v.Ef)
	}
	if v.CleanupIntervalSeconds < 0 {
		return fmt.Errorf("cleanupIntervalSeconds must not be negative, got %d", v.CleanupIntervalSeconds)
	}
	return nil
}

// Model validates the descriptor and converts it into the wire model.
func (c Collection) Model() (*models.Class, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	class := &models.Class{
		Class:             c.Name,
		Description:       c.Description,
		Vectorizer:        c.Vectorizer,
		VectorIndexConfig: c.VectorIndex.Config(),
		Properties:        make([]*models.Property, len(c.Properties)),
	}
	if c.Sharding.DesiredCount > 0 {
		class.ShardingConfig = map[string]interface{}{
			"desiredCount": c.Sharding.DesiredCount,
		}
	}
	for i, prop := range c.Properties {
		class.Properties[i] = prop.model(c.Vectorizer)
	}
	return class, nil
}

// Config renders the non-zero index parameters in the server's
// vectorIndexConfig format.
func (v VectorIndex) Config() map[string]interface{} {
	cfg := map[string]interface{}{}
	if v.Distance != "" {
		cfg["distance"] = v.Distance
	}
	if v.EfConstruction > 0 {
		cfg["efConstruction"] = v.EfConstruction
	}
	if v.MaxConnections > 0 {
		cfg["maxConnections"] = v.MaxConnections
	}
	if v.Ef != 0 {
		cfg["ef"] = v.Ef
	}
	if v.CleanupIntervalSeconds > 0 {
		cfg["cleanupIntervalSeconds"] = v.CleanupIntervalSeconds
	}
	if v.VectorCacheMaxObjects > 0 {
		cfg["vectorCacheMaxObjects"] = v.VectorCacheMaxObjects
	}
	return cfg
}
