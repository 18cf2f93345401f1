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

// Package dataset turns raw input files into the records the import
// pipeline sends to the remote service.
package dataset

import (
	"github.com/go-openapi/strfmt"
)

// Record is a single object to be created in Class under ID.
type Record struct {
	ID         strfmt.UUID
	Class      string
	Properties map[string]interface{}
	Vector     []float32
}

// Item is one top-level input record and the objects derived from it. A
// failure on any of them is accounted to ID.
type Item struct {
	ID      strfmt.UUID
	Records []Record
}

// Line is one raw input line. Number is 1-based and counts across all
// files of an archive.
type Line struct {
	Number int
	Raw    []byte
}
