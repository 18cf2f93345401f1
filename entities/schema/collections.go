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

package schema

import "github.com/weaviate/weaviate/entities/models"

// Paragraph is the collection of chunked wiki paragraphs used by the churn
// scenario. The aggressive cleanup interval makes tombstone cleanup cycles
// observable within a short test run.
func Paragraph(name string) Collection {
	skip := &Vectorize{Skip: true}
	vectorize := &Vectorize{Skip: false}
	return Collection{
		Name:        name,
		Description: "A wiki paragraph",
		Vectorizer:  VectorizerContextionary,
		VectorIndex: VectorIndex{
			MaxConnections:         1024,
			CleanupIntervalSeconds: 5,
		},
		Properties: []Property{
			{
				Name:          "title",
				Description:   "Title of the paragraph",
				DataType:      DataTypeText,
				IndexInverted: true,
				Tokenization:  models.PropertyTokenizationWhitespace,
				Vectorize:     skip,
			},
			{
				Name:          "content",
				Description:   "The content of the paragraph",
				DataType:      DataTypeText,
				IndexInverted: true,
				Vectorize:     vectorize,
			},
			// never filled by the importer, it only widens the schema
			{
				Name:          "stupid_long",
				Description:   "The content of the paragraph",
				DataType:      DataTypeText,
				IndexInverted: true,
				Vectorize:     vectorize,
			},
			{
				Name:          "order",
				Description:   "Order of the paragraph",
				DataType:      DataTypeInt,
				IndexInverted: true,
				Vectorize:     skip,
			},
			{
				Name:          "word_count",
				Description:   "Number of characters in paragraph",
				DataType:      DataTypeInt,
				IndexInverted: true,
				Vectorize:     skip,
			},
		},
	}
}

// VectorBenchmark is the collection the sweep imports pre-computed vectors
// into. Property "i" holds the dataset row.
func VectorBenchmark(name string, shards, efConstruction, maxConnections int, distance string) Collection {
	return Collection{
		Name:        name,
		Description: "Pre-computed vectors of an ANN benchmark dataset",
		Vectorizer:  VectorizerNone,
		VectorIndex: VectorIndex{
			Distance:       distance,
			EfConstruction: efConstruction,
			MaxConnections: maxConnections,
			Ef:             -1,
		},
		Sharding: Sharding{DesiredCount: shards},
		Properties: []Property{
			{
				Name:          "i",
				Description:   "Row of the vector in the dataset",
				DataType:      DataTypeInt,
				IndexInverted: true,
			},
		},
	}
}
