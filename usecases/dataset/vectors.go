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
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/weaviate/chaos-harness/entities/ids"
)

// File names of an ANN benchmark dataset in SIFT layout.
const (
	BaseFile        = "base.fvecs"
	QueryFile       = "query.fvecs"
	GroundTruthFile = "groundtruth.ivecs"
)

// Vectors is an ANN benchmark dataset. Neighbors[i] lists the rows of
// Base closest to Queries[i], nearest first.
type Vectors struct {
	Base      [][]float32
	Queries   [][]float32
	Neighbors [][]int
}

// LoadVectors reads the dataset in dir. maxQueries limits the number of
// queries and ground truth rows read; zero reads all of them.
func LoadVectors(dir string, maxQueries int) (*Vectors, error) {
	base, err := readVecsFile(filepath.Join(dir, BaseFile), 0, ReadFvecs)
	if err != nil {
		return nil, err
	}
	queries, err := readVecsFile(filepath.Join(dir, QueryFile), maxQueries, ReadFvecs)
	if err != nil {
		return nil, err
	}
	truth, err := readVecsFile(filepath.Join(dir, GroundTruthFile), maxQueries, ReadIvecs)
	if err != nil {
		return nil, err
	}
	if len(truth) < len(queries) {
		return nil, errors.Errorf("%s has %d rows, need one per query (%d)",
			GroundTruthFile, len(truth), len(queries))
	}
	for i, row := range truth[:len(queries)] {
		for _, n := range row {
			if n < 0 || n >= len(base) {
				return nil, errors.Errorf("%s row %d references base row %d, base has %d rows",
					GroundTruthFile, i, n, len(base))
			}
		}
	}

	return &Vectors{Base: base, Queries: queries, Neighbors: truth[:len(queries)]}, nil
}

func readVecsFile[T any](path string, max int, read func(io.Reader, int) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	rows, err := read(bufio.NewReader(f), max)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return rows, nil
}

// Records turns the base vectors into import records. Row i gets the id
// ids.Row(i) so that query results map back to dataset rows.
func (v *Vectors) Records(class string) []Record {
	records := make([]Record, len(v.Base))
	for i, vec := range v.Base {
		records[i] = Record{
			ID:         ids.Row(i),
			Class:      class,
			Properties: map[string]interface{}{"i": i},
			Vector:     vec,
		}
	}
	return records
}

// ReadFvecs reads little endian float vectors. Every vector is prefixed
// with its dimension as a 4 byte integer. max limits the number of rows;
// zero reads all of them.
func ReadFvecs(r io.Reader, max int) ([][]float32, error) {
	var out [][]float32
	err := readVecs(r, max, func(data []byte, dim int) {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[j*4:]))
		}
		out = append(out, vec)
	})
	return out, err
}

// ReadIvecs reads little endian int32 vectors in the same layout as
// ReadFvecs.
func ReadIvecs(r io.Reader, max int) ([][]int, error) {
	var out [][]int
	err := readVecs(r, max, func(data []byte, dim int) {
		vec := make([]int, dim)
		for j := range vec {
			vec[j] = int(int32(binary.LittleEndian.Uint32(data[j*4:])))
		}
		out = append(out, vec)
	})
	return out, err
}

func readVecs(r io.Reader, max int, row func(data []byte, dim int)) error {
	header := make([]byte, 4)
	var data []byte
	dim := -1
	for i := 0; max <= 0 || i < max; i++ {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrapf(err, "row %d: read dimension", i)
		}
		d := int(binary.LittleEndian.Uint32(header))
		if d <= 0 {
			return errors.Errorf("row %d: invalid dimension %d", i, d)
		}
		if dim == -1 {
			dim = d
			data = make([]byte, 4*dim)
		} else if d != dim {
			return errors.Errorf("row %d: dimension %d differs from first row (%d)", i, d, dim)
		}
		if _, err := io.ReadFull(r, data); err != nil {
			return errors.Wrapf(err, "row %d: read vector", i)
		}
		row(data, dim)
	}
	return nil
}
