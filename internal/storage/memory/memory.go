// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides a process-local storage backend for tests and
// throwaway worlds.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/holomush/muckdb/internal/storage"
)

// Backend keeps records in a map. It is safe for concurrent use.
type Backend struct {
	mu      sync.RWMutex
	records map[int32]*storage.Record
}

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Scanner = (*Backend)(nil)
)

// New returns an empty backend.
func New() *Backend {
	return &Backend{records: make(map[int32]*storage.Record)}
}

// Initialize implements storage.Backend.
func (b *Backend) Initialize(ctx context.Context) error {
	return ctx.Err()
}

// Load implements storage.Backend.
func (b *Backend) Load(ctx context.Context, id int32) (*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError("load", id, err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[id]
	if !ok {
		return nil, storage.NotFound(id)
	}
	return rec.Clone(), nil
}

// Save implements storage.Backend.
func (b *Backend) Save(ctx context.Context, rec *storage.Record) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError("save", rec.ID, err)
	}
	b.mu.Lock()
	b.records[rec.ID] = rec.Clone()
	b.mu.Unlock()
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, id int32) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError("delete", id, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[id]; !ok {
		return storage.NotFound(id)
	}
	delete(b.records, id)
	return nil
}

// MaxID implements storage.Backend.
func (b *Backend) MaxID(ctx context.Context) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.IOError("max id", -1, err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	maxID := int32(-1)
	for id := range b.records {
		maxID = max(maxID, id)
	}
	return maxID, nil
}

// Scan implements storage.Scanner over a snapshot taken at call time.
func (b *Backend) Scan(ctx context.Context, fn func(*storage.Record) error) error {
	b.mu.RLock()
	recs := make([]*storage.Record, 0, len(b.records))
	for _, r := range b.records {
		recs = append(recs, r.Clone())
	}
	b.mu.RUnlock()
	slices.SortFunc(recs, func(x, y *storage.Record) int { return cmp.Compare(x.ID, y.ID) })

	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return storage.IOError("scan", r.ID, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored records.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}
