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

package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridCells(t *testing.T) {
	g := Grid{
		ShardCounts:    []int{1, 2},
		MaxConnections: []int{8, 16},
		EfConstruction: 512,
		Distance:       "l2-squared",
		SearchEfforts:  []int{16, 32},
	}
	require.NoError(t, g.Validate())

	cells := g.Cells()
	require.Len(t, cells, 4)

	assert.Equal(t, Config{ShardCount: 1, MaxConnections: 8, EfConstruction: 512,
		Distance: "l2-squared", SearchEfforts: []int{16, 32}}, cells[0])
	assert.Equal(t, 2, cells[1].ShardCount)
	assert.Equal(t, 8, cells[1].MaxConnections)
	assert.Equal(t, 1, cells[2].ShardCount)
	assert.Equal(t, 16, cells[2].MaxConnections)

	t.Run("cells do not share the ef slice", func(t *testing.T) {
		cells[0].SearchEfforts[0] = 99
		assert.Equal(t, 16, cells[1].SearchEfforts[0])
		assert.Equal(t, 16, g.SearchEfforts[0])
	})
}

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid("cosine")
	require.NoError(t, g.Validate())
	assert.Len(t, g.Cells(), 4)
	assert.Equal(t, []int{8}, g.MaxConnections)
	assert.Equal(t, 512, g.EfConstruction)
}

func TestGridValidate(t *testing.T) {
	base := func() Grid { return DefaultGrid("dot") }

	tests := []struct {
		name   string
		mutate func(*Grid)
	}{
		{"no shards", func(g *Grid) { g.ShardCounts = nil }},
		{"zero shards", func(g *Grid) { g.ShardCounts = []int{0} }},
		{"no m", func(g *Grid) { g.MaxConnections = nil }},
		{"zero efC", func(g *Grid) { g.EfConstruction = 0 }},
		{"no distance", func(g *Grid) { g.Distance = "" }},
		{"no ef", func(g *Grid) { g.SearchEfforts = nil }},
		{"duplicate ef", func(g *Grid) { g.SearchEfforts = []int{16, 16} }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := base()
			test.mutate(&g)
			assert.Error(t, g.Validate())
		})
	}
}
