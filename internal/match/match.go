// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package match resolves user-typed names to entity references.
//
// Resolution runs a fixed pipeline of stages over the entities reachable
// from a context entity: exits, neighbors, possessions, "me", "here",
// registered names ($name) and absolute references (#12). Every stage runs.
// An exact match wins over any number of partial matches; without one, a
// single partial match resolves and two or more are ambiguous.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/muckdb/internal/access"
	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/notify"
	"github.com/holomush/muckdb/internal/observability"
	"github.com/holomush/muckdb/internal/world"
)

var tracer = otel.Tracer("muckdb/match")

// Outcome labels recorded for each resolution.
const (
	OutcomeExact     = "exact"
	OutcomePartial   = "partial"
	OutcomeAmbiguous = "ambiguous"
	OutcomeNotFound  = "not_found"
)

// Messages sent by ResolveNoisy.
const (
	MsgNotFound  = "I don't understand '%s'."
	MsgAmbiguous = "I don't know which '%s' you mean!"
)

// Resolver resolves names. It holds no per-call state and is safe for
// concurrent use.
type Resolver struct {
	entities world.Getter
	oracle   access.Oracle
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
	coin     func() bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOracle sets the control oracle. The default denies everything.
func WithOracle(o access.Oracle) Option {
	return func(r *Resolver) {
		r.oracle = o
	}
}

// WithNotifier sets where ResolveNoisy reports failures.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Resolver) {
		r.notifier = n
	}
}

// WithMetrics sets the counters to record outcomes into.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithCoinFlip replaces the random source of the last tie-break. flip
// returning true keeps the first candidate.
func WithCoinFlip(flip func() bool) Option {
	return func(r *Resolver) {
		r.coin = flip
	}
}

// NewResolver returns a resolver that reads entities through entities.
func NewResolver(entities world.Getter, opts ...Option) *Resolver {
	r := &Resolver{
		entities: entities,
		oracle: access.Func(func(context.Context, dbref.Ref, dbref.Ref) bool {
			return false
		}),
		notifier: notify.Discard,
		logger:   slog.Default(),
		coin:     func() bool { return rand.IntN(2) == 0 },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOption adjusts a single resolution.
type ResolveOption func(*request)

// PreferKind breaks ties in favor of candidates of kind k.
func PreferKind(k dbref.Kind) ResolveOption {
	return func(q *request) {
		q.preferred = k
	}
}

// CheckPermission breaks ties in favor of candidates the subject controls.
func CheckPermission() ResolveOption {
	return func(q *request) {
		q.checkPermission = true
	}
}

type request struct {
	preferred       dbref.Kind
	checkPermission bool
}

// Resolve turns text into a reference as seen by subject from context. It
// returns an entity reference, dbref.Ambiguous or dbref.NotFound. Several
// exact name matches never yield dbref.Ambiguous: the tie-break picks one.
// Ambiguous means two or more partial matches and no exact one. The error
// is non-nil only when ctx ends during resolution.
func (r *Resolver) Resolve(ctx context.Context, subject *world.Player, from world.Entity, text string, opts ...ResolveOption) (dbref.Ref, error) {
	ctx, span := tracer.Start(ctx, "match.resolve",
		trace.WithAttributes(attribute.String("match.text", text)),
	)
	defer span.End()

	var q request
	for _, opt := range opts {
		opt(&q)
	}

	s := newSearch(r, subject, from, text, q)
	ref, outcome, err := s.run(ctx)
	if err != nil {
		span.RecordError(err)
		return dbref.NotFound, err
	}
	r.metrics.Resolution(outcome)
	span.SetAttributes(
		attribute.String("match.outcome", outcome),
		attribute.String("match.ref", ref.String()),
	)
	return ref, nil
}

// ResolveNoisy resolves like Resolve and tells the subject when nothing or
// more than one thing matched. Both failures return dbref.NotFound.
func (r *Resolver) ResolveNoisy(ctx context.Context, subject *world.Player, from world.Entity, text string, opts ...ResolveOption) (dbref.Ref, error) {
	ref, err := r.Resolve(ctx, subject, from, text, opts...)
	if err != nil {
		return ref, err
	}
	switch {
	case ref.Equal(dbref.NotFound):
		r.notifier.Notify(ctx, subject.ID(), fmt.Sprintf(MsgNotFound, text))
	case ref.Equal(dbref.Ambiguous):
		r.notifier.Notify(ctx, subject.ID(), fmt.Sprintf(MsgAmbiguous, text))
		return dbref.NotFound, nil
	}
	return ref, nil
}
