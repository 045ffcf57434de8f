// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
)

// MaxContainmentDepth bounds the location-chain walk done by Move.
const MaxContainmentDepth = 256

// Getter fetches entities by reference. The repository implements it.
type Getter interface {
	GetEntity(ctx context.Context, ref dbref.Ref) (Entity, error)
}

// Move relocates e into dest: it is removed from its old container's
// contents, added to dest's contents, and only then has its location set.
// Passing dbref.Home sends e to its first link target.
//
// Move does no cross-entity locking. A concurrent reader may briefly see e in
// neither or both containers.
func Move(ctx context.Context, g Getter, e Entity, dest dbref.Ref) error {
	base := e.Base()
	id := base.ID()

	if dest.Equal(dbref.Home) {
		dest = firstOr(base.LinkTargets(), dbref.NotFound)
		if !dest.IsValid() {
			return oops.Code(CodeInvariantViolation).
				With("id", id.String()).
				Errorf("%w: entity has no home", ErrInvalidLink)
		}
	}
	if dest.Equal(id) {
		return oops.Code(CodeInvariantViolation).With("id", id.String()).Wrap(ErrSelfContainment)
	}

	target, err := g.GetEntity(ctx, dest)
	if err != nil {
		return oops.With("destination", dest.String()).Wrap(err)
	}
	if err := checkContainmentLoop(ctx, g, id, target); err != nil {
		return err
	}

	old := base.Location()
	if old.Equal(dest) && target.Base().Contains(id) {
		return nil
	}
	if old.IsValid() && !old.Equal(dest) {
		if prev, err := g.GetEntity(ctx, old); err == nil {
			if err := prev.Base().Remove(id); err != nil && !errors.Is(err, ErrNotMember) {
				return err
			}
		}
	}
	if err := target.Base().Add(id); err != nil && !errors.Is(err, ErrAlreadyMember) {
		return err
	}
	base.SetLocation(target.Base().ID())
	return nil
}

// checkContainmentLoop walks dest's location chain and fails if id is on it.
func checkContainmentLoop(ctx context.Context, g Getter, id dbref.Ref, dest Entity) error {
	cur := dest
	for range MaxContainmentDepth {
		loc := cur.Base().Location()
		if loc.Equal(id) {
			return oops.Code(CodeInvariantViolation).
				With("id", id.String()).
				With("destination", dest.Base().ID().String()).
				Wrap(ErrContainmentLoop)
		}
		if !loc.IsValid() {
			return nil
		}
		next, err := g.GetEntity(ctx, loc)
		if err != nil {
			return nil
		}
		cur = next
	}
	return nil
}
