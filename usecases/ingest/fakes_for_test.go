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
	"context"
	"io"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/mock"

	"github.com/weaviate/chaos-harness/usecases/dataset"
)

type sliceSource struct {
	lines []string
	pos   int
}

func (s *sliceSource) Next() (dataset.Line, error) {
	if s.pos >= len(s.lines) {
		return dataset.Line{}, io.EOF
	}
	s.pos++
	return dataset.Line{Number: s.pos, Raw: []byte(s.lines[s.pos-1])}, nil
}

// memStore is an in-memory remote service.
type memStore struct {
	sync.Mutex
	objects     map[strfmt.UUID]dataset.Record
	existsErr   map[strfmt.UUID]error
	createErr   map[strfmt.UUID]error
	batchErr    error
	batchCalls  int
	existsCalls int
	deleted     [][]strfmt.UUID
}

func newMemStore() *memStore {
	return &memStore{
		objects:   map[strfmt.UUID]dataset.Record{},
		existsErr: map[strfmt.UUID]error{},
		createErr: map[strfmt.UUID]error{},
	}
}

func (m *memStore) Exists(ctx context.Context, class string, id strfmt.UUID) (bool, error) {
	m.Lock()
	defer m.Unlock()
	m.existsCalls++
	if err := m.existsErr[id]; err != nil {
		return false, err
	}
	_, ok := m.objects[id]
	return ok, nil
}

func (m *memStore) CreateObject(ctx context.Context, rec dataset.Record) error {
	m.Lock()
	defer m.Unlock()
	if err := m.createErr[rec.ID]; err != nil {
		return err
	}
	m.objects[rec.ID] = rec
	return nil
}

func (m *memStore) BatchCreate(ctx context.Context, recs []dataset.Record) ([]error, error) {
	m.Lock()
	defer m.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	errs := make([]error, len(recs))
	for i, rec := range recs {
		if err := m.createErr[rec.ID]; err != nil {
			errs[i] = err
			continue
		}
		m.objects[rec.ID] = rec
	}
	return errs, nil
}

func (m *memStore) DeleteByIDs(ctx context.Context, class string, ids []strfmt.UUID) (int64, error) {
	m.Lock()
	defer m.Unlock()
	chunk := make([]strfmt.UUID, len(ids))
	copy(chunk, ids)
	m.deleted = append(m.deleted, chunk)
	var n int64
	for _, id := range ids {
		if _, ok := m.objects[id]; ok {
			delete(m.objects, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ids() map[strfmt.UUID]struct{} {
	m.Lock()
	defer m.Unlock()
	out := make(map[strfmt.UUID]struct{}, len(m.objects))
	for id := range m.objects {
		out[id] = struct{}{}
	}
	return out
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Add(ctx context.Context, rec dataset.Record) []WriteResult {
	args := m.Called(ctx, rec)
	res, _ := args.Get(0).([]WriteResult)
	return res
}

func (m *mockWriter) Flush(ctx context.Context) []WriteResult {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]WriteResult)
	return res
}
