// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres stores entity records in a PostgreSQL table created by
// the migrations in internal/store.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/muckdb/internal/storage"
)

// Pool is the subset of *pgxpool.Pool the backend uses. pgxmock pools
// satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Default retry policy for transient failures.
const (
	defaultRetryBase = 50 * time.Millisecond
	defaultRetries   = 3
)

// Backend implements storage.Backend and storage.Scanner.
type Backend struct {
	pool    Pool
	backoff func() retry.Backoff
}

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Scanner = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithBackoff sets the retry policy. The function is called once per
// operation so stateful backoffs start fresh.
func WithBackoff(fn func() retry.Backoff) Option {
	return func(b *Backend) {
		b.backoff = fn
	}
}

// New wraps an existing pool.
func New(pool Pool, opts ...Option) *Backend {
	b := &Backend{
		pool: pool,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(defaultRetries, retry.NewExponential(defaultRetryBase))
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect opens a pgx pool for dsn. The returned close function releases it.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Backend, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return New(pool, opts...), pool.Close, nil
}

// do runs fn, retrying errors pgconn reports as safe to retry.
func (b *Backend) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, b.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && pgconn.SafeToRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Initialize checks that the entities table exists.
func (b *Backend) Initialize(ctx context.Context) error {
	err := b.do(ctx, func(ctx context.Context) error {
		_, err := b.pool.Exec(ctx, `SELECT 1 FROM entities LIMIT 1`)
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return oops.Code(storage.CodeSchemaMissing).
			Hint("run `muckdb migrate` first").
			Wrapf(err, "entities table missing")
	}
	if err != nil {
		return storage.IOError("initialize", -1, err)
	}
	return nil
}

// Load implements storage.Backend.
func (b *Backend) Load(ctx context.Context, id int32) (*storage.Record, error) {
	rec := &storage.Record{ID: id}
	err := b.do(ctx, func(ctx context.Context) error {
		return b.pool.QueryRow(ctx,
			`SELECT kind, name, encoded FROM entities WHERE id = $1`, id,
		).Scan(&rec.Kind, &rec.Name, &rec.Encoded)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.NotFound(id)
	}
	if err != nil {
		return nil, storage.IOError("load", id, err)
	}
	return rec, nil
}

// Save implements storage.Backend as an upsert.
func (b *Backend) Save(ctx context.Context, rec *storage.Record) error {
	err := b.do(ctx, func(ctx context.Context) error {
		_, err := b.pool.Exec(ctx, `
			INSERT INTO entities (id, kind, name, encoded)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET kind = EXCLUDED.kind, name = EXCLUDED.name,
			    encoded = EXCLUDED.encoded, updated_at = now()
		`, rec.ID, rec.Kind, rec.Name, rec.Encoded)
		return err
	})
	if err != nil {
		return storage.IOError("save", rec.ID, err)
	}
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, id int32) error {
	var tag pgconn.CommandTag
	err := b.do(ctx, func(ctx context.Context) error {
		var err error
		tag, err = b.pool.Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return storage.IOError("delete", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.NotFound(id)
	}
	return nil
}

// MaxID implements storage.Backend.
func (b *Backend) MaxID(ctx context.Context) (int32, error) {
	var maxID int32
	err := b.do(ctx, func(ctx context.Context) error {
		return b.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), -1) FROM entities`).Scan(&maxID)
	})
	if err != nil {
		return 0, storage.IOError("max id", -1, err)
	}
	return maxID, nil
}

// Scan implements storage.Scanner. Rows are streamed, not retried.
func (b *Backend) Scan(ctx context.Context, fn func(*storage.Record) error) error {
	rows, err := b.pool.Query(ctx, `SELECT id, kind, name, encoded FROM entities ORDER BY id`)
	if err != nil {
		return storage.IOError("scan", -1, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec := &storage.Record{}
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Name, &rec.Encoded); err != nil {
			return storage.IOError("scan row", -1, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return storage.IOError("iterate rows", -1, err)
	}
	return nil
}
