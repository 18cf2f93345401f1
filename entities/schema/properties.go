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

import (
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

type DataType string

const (
	DataTypeText    DataType = "text"
	DataTypeInt     DataType = "int"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeDate    DataType = "date"
	DataTypeUUID    DataType = "uuid"
)

var PrimitiveDataTypes = []DataType{
	DataTypeText, DataTypeInt, DataTypeNumber, DataTypeBoolean, DataTypeDate, DataTypeUUID,
}

// Tokenizations of text properties. The deprecated "string" data type is
// text with whitespace tokenization.
var Tokenizations = []string{
	models.PropertyTokenizationWord,
	models.PropertyTokenizationWhitespace,
	models.PropertyTokenizationLowercase,
	models.PropertyTokenizationField,
}

// Property is a single field of a collection.
type Property struct {
	Name          string
	Description   string
	DataType      DataType
	IndexInverted bool
	// Tokenization applies to text only, empty means the server default.
	Tokenization string
	// Vectorize is nil when the collection's vectorizer should use its
	// own defaults for this property.
	Vectorize *Vectorize
}

// Vectorize carries the per-property directives of the collection's
// vectorizer module.
type Vectorize struct {
	Skip                  bool
	VectorizePropertyName bool
}

func (p Property) Validate() error {
	if err := ValidatePropertyName(p.Name); err != nil {
		return err
	}
	if err := ValidateReservedPropertyName(p.Name); err != nil {
		return err
	}
	if p.Tokenization != "" {
		if p.DataType != DataTypeText {
			return fmt.Errorf("property %q: tokenization is only supported for text, got %q",
				p.Name, p.DataType)
		}
		if !isTokenization(p.Tokenization) {
			return fmt.Errorf("property %q: unsupported tokenization %q", p.Name, p.Tokenization)
		}
	}
	for _, dt := range PrimitiveDataTypes {
		if dt == p.DataType {
			return nil
		}
	}
	return fmt.Errorf("property %q: unsupported data type %q", p.Name, p.DataType)
}

func (p Property) model(vectorizer string) *models.Property {
	filterable := p.IndexInverted
	searchable := p.IndexInverted && p.DataType == DataTypeText

	prop := &models.Property{
		Name:            p.Name,
		Description:     p.Description,
		DataType:        []string{string(p.DataType)},
		IndexFilterable: &filterable,
		IndexSearchable: &searchable,
		Tokenization:    p.Tokenization,
	}
	if p.Vectorize != nil && vectorizer != "" && vectorizer != VectorizerNone {
		prop.ModuleConfig = map[string]interface{}{
			vectorizer: map[string]interface{}{
				"skip":                  p.Vectorize.Skip,
				"vectorizePropertyName": p.Vectorize.VectorizePropertyName,
			},
		}
	}
	return prop
}

func isTokenization(t string) bool {
	for _, known := range Tokenizations {
		if t == known {
			return true
		}
	}
	return false
}
