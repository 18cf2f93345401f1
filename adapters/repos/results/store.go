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

// Package results persists the cell results of sweep runs.
package results

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/weaviate/chaos-harness/entities/sweep"
)

var runsBucket = []byte("sweeps")

/*
Store keeps one nested bucket per sweep run below the "sweeps" bucket.
Inside a run bucket every cell is stored under its big endian grid index,
so a cursor walk returns cells in grid order.
*/
type Store struct {
	path string
	log  logrus.FieldLogger
	db   *bolt.DB
}

// NewStore returns a result store for the file at path. Call Open before
// use and Close to release the file.
func NewStore(path string, logger logrus.FieldLogger) *Store {
	return &Store{path: path, log: logger}
}

func (s *Store) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o777); err != nil {
		return fmt.Errorf("create directory of %q: %w", s.path, err)
	}
	db, err := bolt.Open(s.path, 0o600, nil)
	if err != nil {
		return fmt.Errorf("open %q: %w", s.path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	}); err != nil {
		db.Close()
		return fmt.Errorf("init bucket %q: %w", runsBucket, err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func cellKey(index int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(index))
	return key
}

// Save stores the result of one cell of run, replacing an earlier result
// of the same cell.
func (s *Store) Save(run string, cell sweep.CellResult) error {
	if cell.Index < 0 {
		return errors.Errorf("save cell of run %s: negative index %d", run, cell.Index)
	}
	data, err := msgpack.Marshal(cell)
	if err != nil {
		return errors.Wrapf(err, "marshal cell %d", cell.Index)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(runsBucket).CreateBucketIfNotExists([]byte(run))
		if err != nil {
			return err
		}
		return b.Put(cellKey(cell.Index), data)
	})
	if err != nil {
		return errors.Wrapf(err, "save cell %d of run %s", cell.Index, run)
	}
	s.log.WithFields(logrus.Fields{
		"action": "results_save",
		"run":    run,
		"cell":   cell.Index,
		"points": len(cell.Points),
	}).Debug("saved cell result")
	return nil
}

// Load returns the cells of run in grid order.
func (s *Store) Load(run string) ([]sweep.CellResult, error) {
	var cells []sweep.CellResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket).Bucket([]byte(run))
		if b == nil {
			return errors.Errorf("run %s not found", run)
		}
		return b.ForEach(func(k, v []byte) error {
			var cell sweep.CellResult
			if err := msgpack.Unmarshal(v, &cell); err != nil {
				return errors.Wrapf(err, "unmarshal cell %d", binary.BigEndian.Uint64(k))
			}
			cells = append(cells, cell)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return cells, nil
}

// Runs lists the stored runs in key order.
func (s *Store) Runs() ([]string, error) {
	var runs []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEachBucket(func(k []byte) error {
			runs = append(runs, string(k))
			return nil
		})
	})
	return runs, err
}
