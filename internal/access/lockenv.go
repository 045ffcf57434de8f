// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

import (
	"context"
	"log/slog"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/lock"
	"github.com/holomush/muckdb/internal/world"
)

// LockPath is the property holding an entity's basic lock.
const LockPath = "_/lok"

// Env answers lock questions from live entities.
type Env struct {
	entities world.Getter
	logger   *slog.Logger
}

var _ lock.Env = (*Env)(nil)

// NewEnv returns a lock environment looking entities up through entities.
func NewEnv(entities world.Getter) *Env {
	return &Env{entities: entities, logger: slog.Default()}
}

// Env returns a lock environment sharing s's entities and logger.
func (s *Static) Env() *Env {
	return &Env{entities: s.entities, logger: s.logger}
}

func (e *Env) lookup(ctx context.Context, ref dbref.Ref) (world.Entity, bool) {
	if !ref.IsValid() {
		return nil, false
	}
	ent, err := e.entities.GetEntity(ctx, ref.WithKind(dbref.KindUnknown))
	if err != nil {
		e.logger.DebugContext(ctx, "lock check: lookup failed", "ref", ref.String(), "error", err)
		return nil, false
	}
	return ent, true
}

// Holds reports whether who is what or directly contains it.
func (e *Env) Holds(ctx context.Context, who, what dbref.Ref) bool {
	if who.Equal(what) {
		return true
	}
	ent, ok := e.lookup(ctx, who)
	return ok && ent.Base().Contains(what)
}

// Property returns the display form of the scalar at path on who.
// Directories count as absent.
func (e *Env) Property(ctx context.Context, who dbref.Ref, path string) (string, bool) {
	ent, ok := e.lookup(ctx, who)
	if !ok {
		return "", false
	}
	v, found := ent.Base().Property(path)
	if !found {
		return "", false
	}
	if _, isDir := v.(*world.PropertyTree); isDir {
		return "", false
	}
	return world.FormatProp(v), true
}

// Passes evaluates the lock stored at path on target against subject. "me"
// in the lock is the target's owner. A missing lock passes; a non-lock value
// at path fails.
func (e *Env) Passes(ctx context.Context, target world.Entity, path string, subject dbref.Ref) bool {
	v, found := target.Base().Property(path)
	if !found {
		return true
	}
	lp, ok := v.(world.LockProp)
	if !ok {
		return false
	}
	return lp.Lock.Eval(ctx, e, subject, target.Base().Owner())
}
