// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/muckdb/internal/storage"
	"github.com/holomush/muckdb/internal/storage/memory"
	"github.com/holomush/muckdb/pkg/errutil"
)

func TestBackend_SaveLoadDelete(t *testing.T) {
	ctx := t.Context()
	b := memory.New()
	require.NoError(t, b.Initialize(ctx))

	maxID, err := b.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), maxID)

	name := "lamp"
	rec := &storage.Record{ID: 4, Kind: "Thing", Name: &name, Encoded: "<dict/>"}
	require.NoError(t, b.Save(ctx, rec))
	name = "changed"

	got, err := b.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "lamp", *got.Name)
	assert.Equal(t, "Thing", got.Kind)

	maxID, err = b.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(4), maxID)

	require.NoError(t, b.Delete(ctx, 4))
	_, err = b.Load(ctx, 4)
	require.ErrorIs(t, err, storage.ErrNotFound)
	errutil.AssertErrorCode(t, err, storage.CodeNotFound)

	err = b.Delete(ctx, 4)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBackend_ScanInOrder(t *testing.T) {
	ctx := t.Context()
	b := memory.New()
	for _, id := range []int32{9, 2, 5} {
		require.NoError(t, b.Save(ctx, &storage.Record{ID: id, Kind: "Room"}))
	}

	var seen []int32
	require.NoError(t, b.Scan(ctx, func(r *storage.Record) error {
		seen = append(seen, r.ID)
		return nil
	}))
	assert.Equal(t, []int32{2, 5, 9}, seen)

	stop := errors.New("stop")
	err := b.Scan(ctx, func(*storage.Record) error { return stop })
	require.ErrorIs(t, err, stop)
}

func TestBackend_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	b := memory.New()

	err := b.Save(ctx, &storage.Record{ID: 1})
	require.ErrorIs(t, err, context.Canceled)
	errutil.AssertErrorCode(t, err, storage.CodeBackendIO)
	assert.Equal(t, 0, b.Len())
}
