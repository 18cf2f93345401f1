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
	"math/rand"

	"github.com/go-openapi/strfmt"
)

// Sample picks n distinct elements of ids with a generator seeded by seed.
// The same input and seed always yield the same sample. If n exceeds the
// input, all ids are returned in shuffled order.
func Sample(ids []strfmt.UUID, n int, seed int64) []strfmt.UUID {
	if n > len(ids) {
		n = len(ids)
	}
	if n <= 0 {
		return nil
	}
	pool := make([]strfmt.UUID, len(ids))
	copy(pool, ids)

	rnd := rand.New(rand.NewSource(seed))
	// partial Fisher-Yates, only the first n positions are needed
	for i := 0; i < n; i++ {
		j := i + rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
