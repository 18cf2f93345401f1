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
	"regexp"
)

var (
	validateClassNameRegex    = regexp.MustCompile(`^[A-Z][_0-9A-Za-z]*$`)
	validatePropertyNameRegex = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)
	reservedPropertyNames     = []string{"_additional", "_id", "id"}
)

// Distances supported by the vector index.
var Distances = []string{"cosine", "dot", "l2-squared", "hamming", "manhattan"}

// ValidateClassName validates that this string is a valid class name (format
// wise)
func ValidateClassName(name string) error {
	if validateClassNameRegex.MatchString(name) {
		return nil
	}
	return fmt.Errorf("'%s' is not a valid class name", name)
}

// ValidatePropertyName validates that this string is a valid property name
func ValidatePropertyName(name string) error {
	if validatePropertyNameRegex.MatchString(name) {
		return nil
	}
	return fmt.Errorf("'%s' is not a valid property name. "+
		"Property names are restricted to valid GraphQL names, "+
		"which must be “/[_A-Za-z][_0-9A-Za-z]*/”.", name)
}

// ValidateReservedPropertyName validates that a string is not a reserved property name
func ValidateReservedPropertyName(name string) error {
	for i := range reservedPropertyNames {
		if name == reservedPropertyNames[i] {
			return fmt.Errorf("'%s' is a reserved property name", name)
		}
	}
	return nil
}

func IsValidDistance(d string) bool {
	for _, known := range Distances {
		if d == known {
			return true
		}
	}
	return false
}
