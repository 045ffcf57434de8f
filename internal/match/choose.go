// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package match

import (
	"context"
	"strings"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
)

// DistanceInfinity is the environmental distance of an unreachable location.
const DistanceInfinity = world.MaxContainmentDepth + 1

// chooseOne picks between two exact candidates. An unset side loses; then
// the preferred kind, then control (when checked), then the shorter
// environmental distance, then a coin flip.
func (s *search) chooseOne(ctx context.Context, a, b dbref.Ref) dbref.Ref {
	switch {
	case !a.IsValid():
		return b
	case !b.IsValid():
		return a
	case a.Equal(b):
		return a
	}

	if k := s.req.preferred; k != dbref.KindUnknown {
		ak, bk := a.Kind() == k, b.Kind() == k
		if ak != bk {
			if ak {
				return a
			}
			return b
		}
	}

	if s.req.checkPermission {
		who := s.subject.ID()
		if !s.r.oracle.Controls(ctx, who, a) && s.r.oracle.Controls(ctx, who, b) {
			return b
		}
		return a
	}

	da, db := s.distanceTo(ctx, a), s.distanceTo(ctx, b)
	switch {
	case da < db:
		return a
	case db < da:
		return b
	}

	if s.r.coin() {
		return a
	}
	return b
}

// distanceTo is the environmental distance from the context to the
// candidate's location.
func (s *search) distanceTo(ctx context.Context, ref dbref.Ref) int {
	e, ok, err := s.fetch(ctx, ref)
	if err != nil || !ok {
		return DistanceInfinity
	}
	return Distance(ctx, s.r.entities, s.from, e.Base().Location())
}

// Distance counts the hops from e up its location chain until target is
// reached. It returns DistanceInfinity when target is not an enclosing
// location.
func Distance(ctx context.Context, g world.Getter, e world.Entity, target dbref.Ref) int {
	if !target.IsValid() {
		return DistanceInfinity
	}
	cur := e
	for hops := range world.MaxContainmentDepth {
		if cur.Base().ID().Equal(target) {
			return hops
		}
		loc := cur.Base().Location()
		if !loc.IsValid() {
			break
		}
		next, err := g.GetEntity(ctx, loc)
		if err != nil {
			break
		}
		cur = next
	}
	return DistanceInfinity
}

// WordIndex returns the byte offset of the first word in src that starts
// with sub, ignoring case, or -1. A word starts at the beginning of src or
// after a run of non-alphanumeric characters.
func WordIndex(src, sub string) int {
	if sub == "" || src == "" {
		return -1
	}
	for i := 0; i < len(src); {
		if hasPrefixFold(src[i:], sub) {
			return i
		}
		for i < len(src) && isAlnum(src[i]) {
			i++
		}
		for i < len(src) && !isAlnum(src[i]) {
			i++
		}
	}
	return -1
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
