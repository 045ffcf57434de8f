// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package repository mediates between the in-memory entity cache and a
// storage backend.
//
// The cache guarantees atomic single-key insert, replace and lookup, and
// nothing across keys. Loading an entity that is already cached replaces the
// cached instance (last load wins), so unflushed changes made to the old
// instance are lost. Every write to storage is preceded by an
// encode, decode, encode round trip that must produce identical bytes.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/muckdb/internal/codec"
	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/observability"
	"github.com/holomush/muckdb/internal/storage"
	"github.com/holomush/muckdb/internal/world"
)

var tracer = otel.Tracer("muckdb/repository")

// Repository is the shared entity cache. It is safe for concurrent use.
type Repository struct {
	backend storage.Backend
	codec   codec.Codec
	logger  *slog.Logger
	metrics *observability.Metrics

	cache     sync.Map // int32 -> world.Entity
	moveLocks sync.Map // int32 -> *sync.Mutex
	lastID    atomic.Int32
}

var _ world.Getter = (*Repository)(nil)

// Option configures a Repository during construction.
type Option func(*Repository)

// WithBackend sets the storage backend. Without one the repository is a
// pure cache and storage operations fail with ErrNoBackend.
func WithBackend(b storage.Backend) Option {
	return func(r *Repository) {
		r.backend = b
	}
}

// WithCodec replaces the codec used for load and flush.
func WithCodec(c codec.Codec) Option {
	return func(r *Repository) {
		r.codec = c
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// WithMetrics sets the counters to record into.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// New builds a repository. With a backend configured it initializes the
// backend and seeds the id allocator from the highest stored id.
func New(ctx context.Context, opts ...Option) (*Repository, error) {
	r := &Repository{
		codec:  codec.Standard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastID.Store(-1)

	if r.backend == nil {
		return r, nil
	}
	if err := r.backend.Initialize(ctx); err != nil {
		return nil, oops.With("operation", "initialize backend").Wrap(err)
	}
	maxID, err := r.backend.MaxID(ctx)
	if err != nil {
		return nil, oops.With("operation", "seed allocator").Wrap(err)
	}
	r.lastID.Store(maxID)
	r.logger.Debug("repository ready", "max_id", maxID)
	return r, nil
}

// HasBackend reports whether a storage backend is configured.
func (r *Repository) HasBackend() bool {
	return r.backend != nil
}

// Backend returns the configured storage backend, or nil.
func (r *Repository) Backend() storage.Backend {
	return r.backend
}

// Len returns the number of cached entities.
func (r *Repository) Len() int {
	n := 0
	r.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// DirtyLen returns the number of cached entities with unflushed changes.
func (r *Repository) DirtyLen() int {
	n := 0
	r.cache.Range(func(_, v any) bool {
		if v.(world.Entity).Base().Dirty() {
			n++
		}
		return true
	})
	return n
}

// Cached reports whether ref is in the cache, without loading it.
func (r *Repository) Cached(ref dbref.Ref) bool {
	_, ok := r.cache.Load(ref.Number())
	return ok
}

// Evict drops ref from the cache. Unflushed changes are lost.
func (r *Repository) Evict(ref dbref.Ref) {
	r.cache.Delete(ref.Number())
}

// Insert allocates the next id for e, tags it with e's kind and caches it.
// The entity is marked dirty so the next FlushDirty persists it.
func Insert[T world.Entity](_ context.Context, r *Repository, e T) (T, error) {
	var zero T
	id := r.lastID.Add(1)
	ref := dbref.New(id, e.Kind())
	if err := e.Base().AssignID(ref); err != nil {
		return zero, err
	}
	if _, loaded := r.cache.LoadOrStore(id, world.Entity(e)); loaded {
		return zero, oops.With("ref", ref.String()).Wrap(ErrInsertRace)
	}
	e.Base().MarkDirty()
	return e, nil
}

// Make constructs an entity with newFn and inserts it, e.g.
// Make(ctx, repo, world.NewRoom).
func Make[T world.Entity](ctx context.Context, r *Repository, newFn func() T) (T, error) {
	return Insert(ctx, r, newFn())
}

// Get returns the entity for ref as a T. A cache hit never touches storage;
// a miss loads from the backend. Sentinel references fail with ErrNotFound
// immediately. Use world.Entity as T to accept any subtype.
func Get[T world.Entity](ctx context.Context, r *Repository, ref dbref.Ref) (T, error) {
	var zero T
	if ref.IsSentinel() {
		return zero, notFound(ref)
	}
	if v, ok := r.cache.Load(ref.Number()); ok {
		r.metrics.CacheHit()
		t, ok := v.(T)
		if !ok {
			return zero, typeMismatch[T](ref, v)
		}
		return t, nil
	}
	r.metrics.CacheMiss()
	return LoadFromStorage[T](ctx, r, ref)
}

// LoadFromStorage reads ref from the backend, decodes it by its stored kind
// tag and replaces any cached instance with the result.
func LoadFromStorage[T world.Entity](ctx context.Context, r *Repository, ref dbref.Ref) (result T, err error) {
	var zero T
	if r.backend == nil {
		return zero, noBackend("load")
	}
	if ref.IsSentinel() {
		return zero, notFound(ref)
	}

	ctx, span := tracer.Start(ctx, "repository.load",
		trace.WithAttributes(attribute.String("entity.ref", ref.String())),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rec, err := r.backend.Load(ctx, ref.Number())
	if errors.Is(err, storage.ErrNotFound) {
		r.metrics.StorageLoad(observability.ResultNotFound)
		return zero, oops.Code(CodeNotFound).With("ref", ref.String()).Wrap(errors.Join(ErrNotFound, err))
	}
	if err != nil {
		r.metrics.StorageLoad(observability.ResultError)
		return zero, oops.Code(CodeBackendIO).With("ref", ref.String()).Wrap(err)
	}

	e, err := r.codec.Decode(rec.Kind, rec.Encoded)
	if err != nil {
		r.metrics.StorageLoad(observability.ResultDecodeError)
		return zero, oops.With("ref", ref.String()).With("kind", rec.Kind).Wrap(err)
	}
	if err := r.checkLoadedID(e, ref); err != nil {
		r.metrics.StorageLoad(observability.ResultDecodeError)
		return zero, err
	}

	t, ok := e.(T)
	if !ok {
		r.metrics.StorageLoad(observability.ResultTypeMismatch)
		return zero, typeMismatch[T](ref, e)
	}
	r.cache.Store(ref.Number(), e)
	r.metrics.StorageLoad(observability.ResultOK)
	span.SetAttributes(attribute.String("entity.kind", rec.Kind))
	return t, nil
}

// checkLoadedID makes the decoded id agree with the id it was stored under.
func (r *Repository) checkLoadedID(e world.Entity, ref dbref.Ref) error {
	id := e.Base().ID()
	if !id.IsValid() {
		return e.Base().AssignID(ref.WithKind(e.Kind()))
	}
	if !id.Equal(ref) {
		return oops.Code(CodeCorruption).
			With("ref", ref.String()).
			With("encoded_id", id.String()).
			Errorf("stored record id does not match its key")
	}
	return nil
}

// GetEntity dispatches on ref's kind tag to the matching typed Get. Things
// and untyped references accept any subtype. It implements world.Getter.
func (r *Repository) GetEntity(ctx context.Context, ref dbref.Ref) (world.Entity, error) {
	switch ref.Kind() {
	case dbref.KindExit:
		return asEntity(Get[*world.Exit](ctx, r, ref))
	case dbref.KindPlayer:
		return asEntity(Get[*world.Player](ctx, r, ref))
	case dbref.KindProgram:
		return asEntity(Get[*world.Program](ctx, r, ref))
	case dbref.KindRoom:
		return asEntity(Get[*world.Room](ctx, r, ref))
	default:
		return Get[world.Entity](ctx, r, ref)
	}
}

func asEntity[T world.Entity](v T, err error) (world.Entity, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
