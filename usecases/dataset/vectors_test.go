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

package dataset

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/chaos-harness/entities/ids"
)

func fvecs(rows ...[]float32) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		binary.Write(&buf, binary.LittleEndian, uint32(len(row)))
		for _, v := range row {
			binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	return buf.Bytes()
}

func ivecs(rows ...[]int32) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		binary.Write(&buf, binary.LittleEndian, uint32(len(row)))
		binary.Write(&buf, binary.LittleEndian, row)
	}
	return buf.Bytes()
}

func TestReadFvecs(t *testing.T) {
	data := fvecs([]float32{1, 2}, []float32{3.5, -4}, []float32{5, 6})

	rows, err := ReadFvecs(bytes.NewReader(data), 0)
	require.Nil(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3.5, -4}, {5, 6}}, rows)

	rows, err = ReadFvecs(bytes.NewReader(data), 2)
	require.Nil(t, err)
	assert.Len(t, rows, 2)

	t.Run("truncated", func(t *testing.T) {
		_, err := ReadFvecs(bytes.NewReader(data[:len(data)-2]), 0)
		assert.NotNil(t, err)
	})

	t.Run("mixed dimensions", func(t *testing.T) {
		_, err := ReadFvecs(bytes.NewReader(fvecs([]float32{1, 2}, []float32{1})), 0)
		assert.NotNil(t, err)
	})
}

func TestReadIvecs(t *testing.T) {
	rows, err := ReadIvecs(bytes.NewReader(ivecs([]int32{2, 0, 1}, []int32{1, 2, 0})), 0)
	require.Nil(t, err)
	assert.Equal(t, [][]int{{2, 0, 1}, {1, 2, 0}}, rows)
}

func TestLoadVectors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) {
		require.Nil(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	write(BaseFile, fvecs([]float32{0, 0}, []float32{1, 1}, []float32{2, 2}))
	write(QueryFile, fvecs([]float32{0.1, 0.1}, []float32{1.9, 1.9}))
	write(GroundTruthFile, ivecs([]int32{0, 1}, []int32{2, 1}))

	v, err := LoadVectors(dir, 0)
	require.Nil(t, err)
	assert.Len(t, v.Base, 3)
	assert.Len(t, v.Queries, 2)
	assert.Equal(t, []int{2, 1}, v.Neighbors[1])

	records := v.Records("Benchmark")
	require.Len(t, records, 3)
	assert.Equal(t, ids.Row(2), records[2].ID)
	assert.Equal(t, 2, records[2].Properties["i"])
	assert.Equal(t, []float32{2, 2}, records[2].Vector)

	v, err = LoadVectors(dir, 1)
	require.Nil(t, err)
	assert.Len(t, v.Queries, 1)
	assert.Len(t, v.Neighbors, 1)

	t.Run("ground truth out of range", func(t *testing.T) {
		write(GroundTruthFile, ivecs([]int32{0, 7}, []int32{2, 1}))
		_, err := LoadVectors(dir, 0)
		assert.NotNil(t, err)
	})
}
