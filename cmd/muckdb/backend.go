// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/config"
	"github.com/holomush/muckdb/internal/storage"
	"github.com/holomush/muckdb/internal/storage/bolt"
	"github.com/holomush/muckdb/internal/storage/memory"
	"github.com/holomush/muckdb/internal/storage/postgres"
	"github.com/holomush/muckdb/internal/xdg"
)

// openBackend opens the storage backend cfg selects.
func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), func() {}, nil
	case config.DriverPostgres:
		b, closeFn, err := postgres.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return b, closeFn, nil
	case config.DriverBolt:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Storage.Path)); err != nil {
			return nil, nil, err
		}
		b, err := bolt.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil //nolint:errcheck // close on exit
	default:
		return nil, nil, oops.Code(config.CodeInvalid).With("driver", cfg.Storage.Driver).Errorf("unknown storage driver")
	}
}
