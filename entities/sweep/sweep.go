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

// Package sweep contains the value types of a parameter sweep: the grid of
// build-time configurations and the results recorded per search-time point.
package sweep

import (
	"fmt"
	"time"
)

// Config is one cell of the grid. It is immutable once the grid has been
// expanded.
type Config struct {
	ShardCount     int    `json:"shardCount" yaml:"shard_count" msgpack:"shard_count"`
	MaxConnections int    `json:"m" yaml:"m" msgpack:"m"`
	EfConstruction int    `json:"efC" yaml:"ef_construction" msgpack:"ef_construction"`
	Distance       string `json:"distance" yaml:"distance" msgpack:"distance"`
	SearchEfforts  []int  `json:"ef" yaml:"ef" msgpack:"ef"`
}

func (c Config) String() string {
	return fmt.Sprintf("shards=%d m=%d efC=%d distance=%s", c.ShardCount,
		c.MaxConnections, c.EfConstruction, c.Distance)
}

// Grid enumerates the dimensions of a sweep. The build-time dimensions
// (shard counts, m values) are crossed; ef construction and distance are
// fixed per run and every cell sweeps the full list of search efforts.
type Grid struct {
	ShardCounts    []int  `json:"shards" yaml:"shards"`
	MaxConnections []int  `json:"m" yaml:"m"`
	EfConstruction int    `json:"efC" yaml:"ef_construction"`
	Distance       string `json:"distance" yaml:"distance"`
	SearchEfforts  []int  `json:"ef" yaml:"ef"`
}

// DefaultGrid mirrors the values of the ANN benchmark runs: m fixed at 8,
// all shard counts from one to four and the full ef ladder.
func DefaultGrid(distance string) Grid {
	return Grid{
		ShardCounts:    []int{1, 2, 3, 4},
		MaxConnections: []int{8},
		EfConstruction: 512,
		Distance:       distance,
		SearchEfforts:  []int{16, 24, 32, 48, 64, 96, 128, 256, 512},
	}
}

func (g Grid) Validate() error {
	if len(g.ShardCounts) == 0 {
		return fmt.Errorf("grid: at least one shard count is required")
	}
	for _, s := range g.ShardCounts {
		if s < 1 {
			return fmt.Errorf("grid: shard count must be positive, got %d", s)
		}
	}
	if len(g.MaxConnections) == 0 {
		return fmt.Errorf("grid: at least one m value is required")
	}
	for _, m := range g.MaxConnections {
		if m < 1 {
			return fmt.Errorf("grid: m must be positive, got %d", m)
		}
	}
	if g.EfConstruction < 1 {
		return fmt.Errorf("grid: efC must be positive, got %d", g.EfConstruction)
	}
	if g.Distance == "" {
		return fmt.Errorf("grid: distance is required")
	}
	if len(g.SearchEfforts) == 0 {
		return fmt.Errorf("grid: at least one ef value is required")
	}
	seen := map[int]struct{}{}
	for _, ef := range g.SearchEfforts {
		if ef < 1 {
			return fmt.Errorf("grid: ef must be positive, got %d", ef)
		}
		if _, ok := seen[ef]; ok {
			return fmt.Errorf("grid: duplicate ef value %d", ef)
		}
		seen[ef] = struct{}{}
	}
	return nil
}

// Cells expands the grid into its cells in execution order: m is the outer
// dimension, shard count the inner one.
func (g Grid) Cells() []Config {
	cells := make([]Config, 0, len(g.MaxConnections)*len(g.ShardCounts))
	for _, m := range g.MaxConnections {
		for _, shards := range g.ShardCounts {
			efs := make([]int, len(g.SearchEfforts))
			copy(efs, g.SearchEfforts)
			cells = append(cells, Config{
				ShardCount:     shards,
				MaxConnections: m,
				EfConstruction: g.EfConstruction,
				Distance:       g.Distance,
				SearchEfforts:  efs,
			})
		}
	}
	return cells
}

// Path is the query path a measurement was taken on.
type Path string

const (
	PathHTTP Path = "http"
	PathGRPC Path = "grpc"
)

// PathStats aggregates the queries of one path at one point.
type PathStats struct {
	Queries     int           `json:"queries" msgpack:"queries"`
	Failures    int           `json:"failures" msgpack:"failures"`
	MeanLatency time.Duration `json:"meanLatency" msgpack:"mean_latency"`
	P50Latency  time.Duration `json:"p50Latency" msgpack:"p50_latency"`
	P90Latency  time.Duration `json:"p90Latency" msgpack:"p90_latency"`
	P99Latency  time.Duration `json:"p99Latency" msgpack:"p99_latency"`
	QPS         float64       `json:"qps" msgpack:"qps"`
	Recall      float64       `json:"recall" msgpack:"recall"`
}

// PointResult is the outcome of one (cell, ef) pair. Err is set when the
// point failed as a whole; the sweep continues with the next point.
type PointResult struct {
	Cell      Config             `json:"cell" msgpack:"cell"`
	Ef        int                `json:"ef" msgpack:"ef"`
	Limit     int                `json:"limit" msgpack:"limit"`
	Paths     map[Path]PathStats `json:"paths" msgpack:"paths"`
	Agreement float64            `json:"agreement" msgpack:"agreement"`
	Err       string             `json:"error,omitempty" msgpack:"error,omitempty"`
	Started   time.Time          `json:"started" msgpack:"started"`
	Took      time.Duration      `json:"took" msgpack:"took"`
}

func (p PointResult) Failed() bool {
	return p.Err != ""
}

// CellResult holds every point of a cell in ef order.
type CellResult struct {
	Index          int           `json:"index" msgpack:"index"`
	Cell           Config        `json:"cell" msgpack:"cell"`
	Imported       int           `json:"imported" msgpack:"imported"`
	ImportDuration time.Duration `json:"importDuration" msgpack:"import_duration"`
	Points         []PointResult `json:"points" msgpack:"points"`
}
