// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package repository_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/muckdb/internal/codec"
	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/observability"
	"github.com/holomush/muckdb/internal/repository"
	"github.com/holomush/muckdb/internal/storage"
	"github.com/holomush/muckdb/internal/storage/memory"
	"github.com/holomush/muckdb/internal/world"
	"github.com/holomush/muckdb/pkg/errutil"
)

// countingBackend records how often Load and Save reach the store.
type countingBackend struct {
	*memory.Backend
	loads atomic.Int32
	saves atomic.Int32
}

func (c *countingBackend) Load(ctx context.Context, id int32) (*storage.Record, error) {
	c.loads.Add(1)
	return c.Backend.Load(ctx, id)
}

func (c *countingBackend) Save(ctx context.Context, rec *storage.Record) error {
	c.saves.Add(1)
	return c.Backend.Save(ctx, rec)
}

// lossyCodec drops names on decode, so every named entity fails verification.
type lossyCodec struct{}

func (lossyCodec) Encode(e world.Entity) (string, error) { return codec.Encode(e) }

func (lossyCodec) Decode(kind, text string) (world.Entity, error) {
	e, err := codec.Decode(kind, text)
	if err != nil {
		return nil, err
	}
	e.Base().ClearName()
	return e, nil
}

func newRepo(t *testing.T, opts ...repository.Option) (*repository.Repository, *countingBackend) {
	t.Helper()
	backend := &countingBackend{Backend: memory.New()}
	opts = append([]repository.Option{repository.WithBackend(backend)}, opts...)
	repo, err := repository.New(t.Context(), opts...)
	require.NoError(t, err)
	return repo, backend
}

func TestInsert_AllocatesSequentialIDs(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := t.Context()

	room, err := repository.Make(ctx, repo, world.NewRoom)
	require.NoError(t, err)
	player, err := repository.Make(ctx, repo, world.NewPlayer)
	require.NoError(t, err)

	assert.Equal(t, "#0R", room.ID().String())
	assert.Equal(t, "#1P", player.ID().String())
	assert.True(t, room.Dirty())
	assert.Equal(t, 2, repo.Len())
}

func TestInsert_RejectsAlreadyInsertedEntity(t *testing.T) {
	repo, _ := newRepo(t)
	thing, err := repository.Make(t.Context(), repo, world.NewThing)
	require.NoError(t, err)

	_, err = repository.Insert(t.Context(), repo, thing)
	require.Error(t, err)
	assert.ErrorIs(t, err, world.ErrIDAlreadyAssigned)
}

func TestNew_SeedsAllocatorFromBackend(t *testing.T) {
	backend := memory.New()
	require.NoError(t, backend.Save(t.Context(), &storage.Record{ID: 41, Kind: "Thing", Encoded: mustEncode(t, 41)}))

	repo, err := repository.New(t.Context(), repository.WithBackend(backend))
	require.NoError(t, err)
	thing, err := repository.Make(t.Context(), repo, world.NewThing)
	require.NoError(t, err)
	assert.Equal(t, int32(42), thing.ID().Number())
}

func mustEncode(t *testing.T, id int32) string {
	t.Helper()
	thing := world.NewThing()
	require.NoError(t, thing.AssignID(dbref.New(id, dbref.KindThing)))
	thing.SetName(fmt.Sprintf("thing %d", id))
	text, err := codec.Encode(thing)
	require.NoError(t, err)
	return text
}

func TestGet_Sentinels(t *testing.T) {
	repo, backend := newRepo(t)
	for _, ref := range []dbref.Ref{dbref.NotFound, dbref.Ambiguous, dbref.Home, dbref.Nil} {
		t.Run(ref.String(), func(t *testing.T) {
			_, err := repository.Get[world.Entity](t.Context(), repo, ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrNotFound)
			errutil.AssertErrorCode(t, err, repository.CodeNotFound)
		})
	}
	assert.Zero(t, backend.loads.Load())
}

func TestGet_TypeMismatch(t *testing.T) {
	repo, _ := newRepo(t)
	room, err := repository.Make(t.Context(), repo, world.NewRoom)
	require.NoError(t, err)

	_, err = repository.Get[*world.Player](t.Context(), repo, room.ID())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrTypeMismatch)
	errutil.AssertErrorCode(t, err, repository.CodeTypeMismatch)

	got, err := repository.Get[world.Entity](t.Context(), repo, room.ID())
	require.NoError(t, err)
	assert.Same(t, world.Entity(room), got)
}

func TestGet_MissingID(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repository.Get[world.Entity](t.Context(), repo, dbref.New(99, dbref.KindThing))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	errutil.AssertErrorCode(t, err, repository.CodeNotFound)
}

func TestGet_WithoutBackend(t *testing.T) {
	repo, err := repository.New(t.Context())
	require.NoError(t, err)
	assert.False(t, repo.HasBackend())

	thing, err := repository.Make(t.Context(), repo, world.NewThing)
	require.NoError(t, err)
	got, err := repository.Get[*world.Thing](t.Context(), repo, thing.ID())
	require.NoError(t, err)
	assert.Same(t, thing, got)

	_, err = repository.Get[world.Entity](t.Context(), repo, dbref.New(7, dbref.KindThing))
	assert.ErrorIs(t, err, repository.ErrNoBackend)

	err = repo.Flush(t.Context(), thing)
	assert.ErrorIs(t, err, repository.ErrNoBackend)
}

func TestLoad_CachesAndServesFromCache(t *testing.T) {
	repo, backend := newRepo(t)
	ctx := t.Context()
	require.NoError(t, backend.Save(ctx, &storage.Record{ID: 3, Kind: "Thing", Encoded: mustEncode(t, 3)}))
	ref := dbref.New(3, dbref.KindThing)

	first, err := repository.LoadFromStorage[*world.Thing](ctx, repo, ref)
	require.NoError(t, err)
	assert.Equal(t, "thing 3", first.Name())
	assert.False(t, first.Dirty())

	second, err := repository.Get[*world.Thing](ctx, repo, ref)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), backend.loads.Load())
}

func TestLoad_LastLoadWins(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := t.Context()
	thing, err := repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)
	thing.SetName("saved")
	require.NoError(t, repo.Flush(ctx, thing))

	thing.SetName("unsaved")
	reloaded, err := repository.LoadFromStorage[*world.Thing](ctx, repo, thing.ID())
	require.NoError(t, err)
	assert.NotSame(t, thing, reloaded)
	assert.Equal(t, "saved", reloaded.Name())

	cached, err := repository.Get[*world.Thing](ctx, repo, thing.ID())
	require.NoError(t, err)
	assert.Same(t, reloaded, cached)
}

func TestLoad_IDMismatchIsCorruption(t *testing.T) {
	repo, backend := newRepo(t)
	require.NoError(t, backend.Save(t.Context(), &storage.Record{ID: 5, Kind: "Thing", Encoded: mustEncode(t, 6)}))

	_, err := repository.Get[world.Entity](t.Context(), repo, dbref.New(5, dbref.KindThing))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, repository.CodeCorruption)
	assert.False(t, repo.Cached(dbref.New(5, dbref.KindThing)))
}

func TestLoad_UnknownKind(t *testing.T) {
	repo, backend := newRepo(t)
	require.NoError(t, backend.Save(t.Context(), &storage.Record{ID: 2, Kind: "Vehicle", Encoded: ""}))

	_, err := repository.Get[world.Entity](t.Context(), repo, dbref.New(2, dbref.KindThing))
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrUnknownKind)
}

func TestFlush_SavesVerifiedEncoding(t *testing.T) {
	repo, backend := newRepo(t)
	ctx := t.Context()
	exit, err := repository.Make(ctx, repo, world.NewExit)
	require.NoError(t, err)
	exit.SetName("north;n")
	exit.SetAliases("no")

	require.NoError(t, repo.Flush(ctx, exit))
	assert.False(t, exit.Dirty())

	rec, err := backend.Backend.Load(ctx, exit.ID().Number())
	require.NoError(t, err)
	assert.Equal(t, "Exit", rec.Kind)
	require.NotNil(t, rec.Name)
	assert.Equal(t, "north;n", *rec.Name)

	want, err := codec.Encode(exit)
	require.NoError(t, err)
	assert.Equal(t, want, rec.Encoded)
}

func TestFlush_CorruptionWritesNothing(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	repo, backend := newRepo(t, repository.WithCodec(lossyCodec{}), repository.WithMetrics(metrics))
	ctx := t.Context()

	thing, err := repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)
	thing.SetName("lamp")

	err = repo.Flush(ctx, thing)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrCorruption)
	errutil.AssertErrorCode(t, err, repository.CodeCorruption)
	errutil.AssertErrorContext(t, err, "id", thing.ID().String())

	assert.Zero(t, backend.saves.Load())
	assert.Zero(t, backend.Len())
	assert.True(t, thing.Dirty())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Flushes.WithLabelValues(observability.ResultCorruption)), 0)
}

// failingSaveBackend rejects every write.
type failingSaveBackend struct {
	*memory.Backend
}

func (failingSaveBackend) Save(_ context.Context, rec *storage.Record) error {
	return storage.IOError("save", rec.ID, errors.New("disk full"))
}

func TestFlush_SaveFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	repo, err := repository.New(t.Context(),
		repository.WithBackend(failingSaveBackend{Backend: memory.New()}),
		repository.WithLogger(logger),
	)
	require.NoError(t, err)
	ctx := t.Context()

	thing, err := repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)
	thing.SetName("lamp")

	err = repo.Flush(ctx, thing)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, repository.CodeBackendIO)
	assert.True(t, thing.Dirty())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "entity write aborted", entry["msg"])
	assert.Equal(t, repository.CodeBackendIO, entry["code"])
	assert.Contains(t, entry["error"], "disk full")
}

func TestFlush_UninsertedEntity(t *testing.T) {
	repo, _ := newRepo(t)
	err := repo.Flush(t.Context(), world.NewThing())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFlushDirty(t *testing.T) {
	repo, backend := newRepo(t)
	ctx := t.Context()
	for range 3 {
		_, err := repository.Make(ctx, repo, world.NewThing)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, repo.DirtyLen())

	n, err := repo.FlushDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, backend.Len())
	assert.Zero(t, repo.DirtyLen())

	n, err = repo.FlushDirty(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushDirty_ContinuesPastFailures(t *testing.T) {
	repo, backend := newRepo(t, repository.WithCodec(lossyCodec{}))
	ctx := t.Context()
	named, err := repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)
	named.SetName("fails")
	_, err = repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)

	n, err := repo.FlushDirty(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrCorruption)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, backend.Len())
	assert.True(t, named.Dirty())
}

func TestGetEntity_DispatchesOnKind(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := t.Context()
	player, err := repository.Make(ctx, repo, world.NewPlayer)
	require.NoError(t, err)

	got, err := repo.GetEntity(ctx, player.ID())
	require.NoError(t, err)
	assert.Same(t, world.Entity(player), got)

	untyped := dbref.New(player.ID().Number(), dbref.KindUnknown)
	got, err = repo.GetEntity(ctx, untyped)
	require.NoError(t, err)
	assert.Same(t, world.Entity(player), got)

	_, err = repo.GetEntity(ctx, player.ID().WithKind(dbref.KindRoom))
	assert.ErrorIs(t, err, repository.ErrTypeMismatch)
}

func TestMove_UpdatesContainers(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := t.Context()
	hall, err := repository.Make(ctx, repo, world.NewRoom)
	require.NoError(t, err)
	yard, err := repository.Make(ctx, repo, world.NewRoom)
	require.NoError(t, err)
	ball, err := repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)

	require.NoError(t, repo.Move(ctx, ball, hall.ID()))
	require.NoError(t, repo.Move(ctx, ball, yard.ID()))

	assert.False(t, hall.Contains(ball.ID()))
	assert.True(t, yard.Contains(ball.ID()))
	assert.True(t, ball.Location().Equal(yard.ID()))
}

func TestMove_ConcurrentMovesOfOneEntity(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo, _ := newRepo(t)
	ctx := context.Background()
	rooms := make([]*world.Room, 4)
	for i := range rooms {
		r, err := repository.Make(ctx, repo, world.NewRoom)
		require.NoError(t, err)
		rooms[i] = r
	}
	ball, err := repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := range 40 {
		wg.Add(1)
		go func(dest dbref.Ref) {
			defer wg.Done()
			errs <- repo.Move(ctx, ball, dest)
		}(rooms[i%len(rooms)].ID())
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	holders := 0
	for _, r := range rooms {
		if r.Contains(ball.ID()) {
			holders++
			assert.True(t, ball.Location().Equal(r.ID()))
		}
	}
	assert.Equal(t, 1, holders)
}

func TestConcurrentInsert_UniqueIDs(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo, _ := newRepo(t)
	ctx := context.Background()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int32]bool)
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			thing, err := repository.Make(ctx, repo, world.NewThing)
			if err != nil {
				return
			}
			mu.Lock()
			ids[thing.ID().Number()] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 50)
	assert.Equal(t, 50, repo.Len())
}

func TestLink_SetsHome(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := t.Context()
	room, err := repository.Make(ctx, repo, world.NewRoom)
	require.NoError(t, err)
	player, err := repository.Make(ctx, repo, world.NewPlayer)
	require.NoError(t, err)

	require.NoError(t, repo.Link(ctx, player, room.ID()))
	assert.True(t, player.Home().Equal(room.ID()))

	err = repo.Link(ctx, player, room.ID(), room.ID())
	assert.ErrorIs(t, err, world.ErrLinkArity)
}

func TestDestroy(t *testing.T) {
	repo, backend := newRepo(t)
	ctx := t.Context()
	room, err := repository.Make(ctx, repo, world.NewRoom)
	require.NoError(t, err)
	ball, err := repository.Make(ctx, repo, world.NewThing)
	require.NoError(t, err)
	require.NoError(t, repo.Move(ctx, ball, room.ID()))
	_, err = repo.FlushDirty(ctx)
	require.NoError(t, err)

	err = repo.Destroy(ctx, room.ID())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotEmpty)

	require.NoError(t, repo.Destroy(ctx, ball.ID()))
	assert.False(t, room.Contains(ball.ID()))
	assert.False(t, repo.Cached(ball.ID()))
	_, err = backend.Backend.Load(ctx, ball.ID().Number())
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	require.NoError(t, repo.Destroy(ctx, room.ID()))
}

func TestMetrics_CacheHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	repo, backend := newRepo(t, repository.WithMetrics(metrics))
	ctx := t.Context()
	require.NoError(t, backend.Save(ctx, &storage.Record{ID: 0, Kind: "Thing", Encoded: mustEncode(t, 0)}))
	ref := dbref.New(0, dbref.KindThing)

	_, err := repository.Get[world.Entity](ctx, repo, ref)
	require.NoError(t, err)
	_, err = repository.Get[world.Entity](ctx, repo, ref)
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheMisses), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheHits), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StorageLoads.WithLabelValues(observability.ResultOK)), 0)
}
