// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
)

// Link replaces e's link targets after validating them.
//
// Players take exactly one target, their home. Exits may not reach
// themselves through a chain of other exits. dbref.Home is accepted as a
// target for exits and things; it is resolved at travel time.
func Link(ctx context.Context, g Getter, e Entity, targets ...dbref.Ref) error {
	base := e.Base()
	id := base.ID()

	if e.Kind() == dbref.KindPlayer && len(targets) != 1 {
		return oops.Code(CodeInvariantViolation).
			With("id", id.String()).
			With("count", len(targets)).
			Wrap(ErrLinkArity)
	}

	resolved := make([]dbref.Ref, 0, len(targets))
	for _, t := range targets {
		if t.Equal(dbref.Home) && e.Kind() != dbref.KindPlayer {
			resolved = append(resolved, dbref.Home)
			continue
		}
		if !t.IsValid() {
			return oops.Code(CodeInvariantViolation).
				With("id", id.String()).
				With("target", t.String()).
				Wrap(ErrInvalidLink)
		}
		ent, err := g.GetEntity(ctx, t)
		if err != nil {
			return oops.Code(CodeInvariantViolation).
				With("id", id.String()).
				With("target", t.String()).
				Errorf("%w: %s", ErrInvalidLink, err.Error())
		}
		resolved = append(resolved, ent.Base().ID())
	}

	if e.Kind() == dbref.KindExit {
		if err := checkLinkLoop(ctx, g, id, resolved); err != nil {
			return err
		}
	}

	base.setLinkTargets(resolved)
	return nil
}

// checkLinkLoop follows exit-to-exit links depth first from targets and fails
// if the chain reaches id. Non-exit targets end a branch.
func checkLinkLoop(ctx context.Context, g Getter, id dbref.Ref, targets []dbref.Ref) error {
	seen := make(map[int32]struct{})
	stack := append([]dbref.Ref(nil), targets...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Equal(id) {
			return oops.Code(CodeInvariantViolation).
				With("id", id.String()).
				With("via", cur.String()).
				Wrap(ErrLinkLoop)
		}
		if !cur.IsValid() {
			continue
		}
		if _, ok := seen[cur.Number()]; ok {
			continue
		}
		seen[cur.Number()] = struct{}{}

		ent, err := g.GetEntity(ctx, cur)
		if err != nil || ent.Kind() != dbref.KindExit {
			continue
		}
		stack = append(stack, ent.Base().LinkTargets()...)
	}
	return nil
}
