// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package access answers the single authorization question the object
// substrate asks: does one entity control another.
package access

import (
	"context"
	"log/slog"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
)

// Oracle reports whether who controls what. Unknown or sentinel references
// never control anything (deny by default).
type Oracle interface {
	Controls(ctx context.Context, who, what dbref.Ref) bool
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, who, what dbref.Ref) bool

// Controls implements Oracle.
func (f Func) Controls(ctx context.Context, who, what dbref.Ref) bool {
	return f(ctx, who, what)
}

// Static applies the fixed control rules: God controls everything, an
// unquelled wizard controls everything, an entity controls itself, and an
// owner controls what it owns.
type Static struct {
	entities world.Getter
	logger   *slog.Logger
}

var _ Oracle = (*Static)(nil)

// StaticOption configures a Static oracle.
type StaticOption func(*Static)

// WithLogger sets the logger used for lookup failures.
func WithLogger(l *slog.Logger) StaticOption {
	return func(s *Static) {
		s.logger = l
	}
}

// NewStatic returns an oracle that looks entities up through entities.
func NewStatic(entities world.Getter, opts ...StaticOption) *Static {
	s := &Static{
		entities: entities,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Controls implements Oracle. Lookups go by number; kind letters on who and
// what are not checked.
func (s *Static) Controls(ctx context.Context, who, what dbref.Ref) bool {
	if !who.IsValid() || !what.IsValid() {
		return false
	}
	if who.Equal(dbref.God) || who.Equal(what) {
		return true
	}

	subject, err := s.entities.GetEntity(ctx, who.WithKind(dbref.KindUnknown))
	if err != nil {
		s.logger.DebugContext(ctx, "control check: subject lookup failed", "who", who.String(), "error", err)
		return false
	}
	if IsWizard(subject) {
		return true
	}

	target, err := s.entities.GetEntity(ctx, what.WithKind(dbref.KindUnknown))
	if err != nil {
		s.logger.DebugContext(ctx, "control check: target lookup failed", "what", what.String(), "error", err)
		return false
	}
	return target.Base().Owner().Equal(who)
}

// IsWizard reports whether e holds an unquelled WIZARD flag.
func IsWizard(e world.Entity) bool {
	b := e.Base()
	return b.HasFlag(world.FlagWizard) && !b.HasFlag(world.FlagQuell)
}
