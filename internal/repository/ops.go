// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/storage"
	"github.com/holomush/muckdb/internal/world"
)

func (r *Repository) moveLock(id dbref.Ref) *sync.Mutex {
	mu, _ := r.moveLocks.LoadOrStore(id.Number(), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Move relocates e into dest. Moves of the same entity are serialized; moves
// of different entities are not, so a reader can still observe an entity in
// neither or both containers for a moment.
func (r *Repository) Move(ctx context.Context, e world.Entity, dest dbref.Ref) error {
	mu := r.moveLock(e.Base().ID())
	mu.Lock()
	defer mu.Unlock()
	return world.Move(ctx, r, e, dest)
}

// Link validates and sets e's link targets.
func (r *Repository) Link(ctx context.Context, e world.Entity, targets ...dbref.Ref) error {
	return world.Link(ctx, r, e, targets...)
}

// Destroy removes ref from its container, the cache and the backend. It
// refuses entities that still contain something.
func (r *Repository) Destroy(ctx context.Context, ref dbref.Ref) error {
	e, err := Get[world.Entity](ctx, r, ref)
	if err != nil {
		return err
	}
	base := e.Base()
	if n := len(base.Contents()); n > 0 {
		return oops.Code(world.CodeInvariantViolation).
			With("ref", ref.String()).
			With("contents", n).
			Wrap(ErrNotEmpty)
	}

	mu := r.moveLock(ref)
	mu.Lock()
	defer mu.Unlock()

	if loc := base.Location(); loc.IsValid() {
		if container, err := r.GetEntity(ctx, loc); err == nil {
			if err := container.Base().Remove(base.ID()); err != nil && !errors.Is(err, world.ErrNotMember) {
				return err
			}
		}
	}
	r.cache.Delete(ref.Number())
	r.moveLocks.Delete(ref.Number())

	if r.backend == nil {
		return nil
	}
	if err := r.backend.Delete(ctx, ref.Number()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return oops.Code(CodeBackendIO).With("ref", ref.String()).Wrap(err)
	}
	return nil
}
