// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package match

import (
	"context"
	"strings"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
)

// RegistryDir is the property directory holding registered names.
const RegistryDir = "_reg"

// search is the state of one resolution.
type search struct {
	r       *Resolver
	subject *world.Player
	from    world.Entity
	text    string
	lower   string
	req     request

	// absolute is the #n form of text, or NotFound.
	absolute dbref.Ref

	exact   dbref.Ref
	last    dbref.Ref
	partial int
}

func newSearch(r *Resolver, subject *world.Player, from world.Entity, text string, q request) *search {
	text = strings.TrimSpace(text)
	s := &search{
		r:        r,
		subject:  subject,
		from:     from,
		text:     text,
		lower:    strings.ToLower(text),
		req:      q,
		absolute: dbref.NotFound,
		exact:    dbref.NotFound,
		last:     dbref.NotFound,
	}
	if ref, err := dbref.Parse(text); err == nil && ref.IsValid() {
		s.absolute = ref
	}
	return s
}

type stage func(*search, context.Context) error

var pipeline = []stage{
	(*search).matchExits,
	(*search).matchNeighbors,
	(*search).matchPossessions,
	(*search).matchMe,
	(*search).matchHere,
	(*search).matchRegistered,
	(*search).matchAbsolute,
}

func (s *search) run(ctx context.Context) (dbref.Ref, string, error) {
	if s.text == "" || s.subject == nil || s.from == nil {
		return dbref.NotFound, OutcomeNotFound, nil
	}
	for _, st := range pipeline {
		if err := ctx.Err(); err != nil {
			return dbref.NotFound, "", err
		}
		if err := st(s, ctx); err != nil {
			return dbref.NotFound, "", err
		}
	}

	switch {
	case s.exact.IsValid():
		return s.exact, OutcomeExact, nil
	case s.partial == 0:
		return dbref.NotFound, OutcomeNotFound, nil
	case s.partial == 1:
		return s.last, OutcomePartial, nil
	default:
		return dbref.Ambiguous, OutcomeAmbiguous, nil
	}
}

// fetch loads ref, skipping dangling references. Only context errors are
// returned.
func (s *search) fetch(ctx context.Context, ref dbref.Ref) (world.Entity, bool, error) {
	e, err := s.r.entities.GetEntity(ctx, ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		s.r.logger.DebugContext(ctx, "skipping unresolvable candidate", "ref", ref.String(), "error", err)
		return nil, false, nil
	}
	return e, true, nil
}

// fromLocation returns the context's location when it can hold things.
func (s *search) fromLocation(ctx context.Context) (world.Entity, error) {
	loc := s.from.Base().Location()
	if !loc.IsValid() {
		return nil, nil
	}
	e, ok, err := s.fetch(ctx, loc)
	if err != nil || !ok {
		return nil, err
	}
	switch e.Kind() {
	case dbref.KindRoom, dbref.KindPlayer, dbref.KindThing:
		return e, nil
	default:
		return nil, nil
	}
}

// isAbsolute reports whether ref is the absolute form of the text and the
// context's owner controls it.
func (s *search) isAbsolute(ctx context.Context, ref dbref.Ref) bool {
	if !s.absolute.IsValid() || !ref.Equal(s.absolute) {
		return false
	}
	return s.r.oracle.Controls(ctx, s.from.Base().Owner(), ref)
}

func (s *search) matchExits(ctx context.Context) error {
	var containers []world.Entity
	loc, err := s.fromLocation(ctx)
	if err != nil {
		return err
	}
	if loc != nil {
		containers = append(containers, loc)
	}
	containers = append(containers, s.from)

	for _, c := range containers {
		for _, ref := range c.Base().Contents() {
			if ref.Kind() != dbref.KindExit && ref.Kind() != dbref.KindUnknown {
				continue
			}
			e, ok, err := s.fetch(ctx, ref)
			if err != nil {
				return err
			}
			exit, isExit := e.(*world.Exit)
			if !ok || !isExit {
				continue
			}
			if exit.MatchesAlias(s.text) || s.isAbsolute(ctx, exit.ID()) {
				s.exact = s.chooseOne(ctx, s.exact, exit.ID())
			}
		}
	}
	return nil
}

func (s *search) matchNeighbors(ctx context.Context) error {
	loc, err := s.fromLocation(ctx)
	if err != nil || loc == nil {
		return err
	}
	return s.matchContents(ctx, loc)
}

func (s *search) matchPossessions(ctx context.Context) error {
	return s.matchContents(ctx, s.from)
}

// matchContents compares every non-exit entry of c's contents with the text.
func (s *search) matchContents(ctx context.Context, c world.Entity) error {
	for _, ref := range c.Base().Contents() {
		if ref.Kind() == dbref.KindExit {
			continue
		}
		e, ok, err := s.fetch(ctx, ref)
		if err != nil {
			return err
		}
		if !ok || e.Kind() == dbref.KindExit {
			continue
		}
		id := e.Base().ID()
		if s.isAbsolute(ctx, id) {
			s.exact = s.chooseOne(ctx, s.exact, id)
			continue
		}
		name := e.Base().Name()
		if strings.EqualFold(name, s.text) {
			s.exact = s.chooseOne(ctx, s.exact, id)
			continue
		}
		if WordIndex(name, s.text) >= 0 {
			s.partial++
			s.last = id
		}
	}
	return nil
}

func (s *search) matchMe(context.Context) error {
	if s.lower == "me" {
		s.exact = s.subject.ID()
	}
	return nil
}

func (s *search) matchHere(context.Context) error {
	if s.lower != "here" {
		return nil
	}
	if loc := s.subject.Location(); loc.IsValid() {
		s.exact = loc
	}
	return nil
}

// matchRegistered looks "$name" up as _reg/name on the subject and then on
// each enclosing location.
func (s *search) matchRegistered(ctx context.Context) error {
	name, ok := strings.CutPrefix(s.text, "$")
	if !ok || name == "" {
		return nil
	}
	path := RegistryDir + world.PathSeparator + name

	var cur world.Entity = s.subject
	for range world.MaxContainmentDepth {
		if v, found := cur.Base().Property(path); found {
			if ref, ok := registeredRef(v); ok {
				s.exact = ref
			}
			return nil
		}
		loc := cur.Base().Location()
		if !loc.IsValid() {
			return nil
		}
		next, ok, err := s.fetch(ctx, loc)
		if err != nil || !ok {
			return err
		}
		cur = next
	}
	return nil
}

// registeredRef converts a registration value to a reference. Locks and
// directories never resolve.
func registeredRef(v world.PropValue) (dbref.Ref, bool) {
	var ref dbref.Ref
	switch v := v.(type) {
	case world.StringProp:
		parsed, err := dbref.Parse(string(v))
		if err != nil {
			return dbref.NotFound, false
		}
		ref = parsed
	case world.RefProp:
		ref = dbref.Ref(v)
	case world.IntProp:
		ref = dbref.New(int32(v), dbref.KindUnknown)
	default:
		return dbref.NotFound, false
	}
	return ref, ref.IsValid()
}

func (s *search) matchAbsolute(ctx context.Context) error {
	if !s.absolute.IsValid() {
		return nil
	}
	// The kind letter is informational; existence is checked by number.
	e, ok, err := s.fetch(ctx, s.absolute.WithKind(dbref.KindUnknown))
	if err != nil || !ok {
		return err
	}
	s.exact = e.Base().ID()
	return nil
}
