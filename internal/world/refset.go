// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"slices"
	"sync"

	"github.com/holomush/muckdb/internal/dbref"
)

// RefSet is a concurrent set of references keyed by number. The zero value
// is an empty set ready to use.
type RefSet struct {
	mu sync.RWMutex
	m  map[int32]dbref.Ref
}

// Add inserts r. It reports false if r was already present.
func (s *RefSet) Add(r dbref.Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[int32]dbref.Ref)
	}
	if _, ok := s.m[r.Number()]; ok {
		return false
	}
	s.m[r.Number()] = r
	return true
}

// Remove deletes r. It reports false if r was not present.
func (s *RefSet) Remove(r dbref.Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[r.Number()]; !ok {
		return false
	}
	delete(s.m, r.Number())
	return true
}

// Contains reports whether a reference with r's number is present.
func (s *RefSet) Contains(r dbref.Ref) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[r.Number()]
	return ok
}

// Len returns the number of members.
func (s *RefSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Items returns a snapshot of the members ordered by number.
func (s *RefSet) Items() []dbref.Ref {
	s.mu.RLock()
	out := make([]dbref.Ref, 0, len(s.m))
	for _, r := range s.m {
		out = append(out, r)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, dbref.Ref.Compare)
	return out
}

// Replace swaps the whole membership for refs.
func (s *RefSet) Replace(refs []dbref.Ref) {
	m := make(map[int32]dbref.Ref, len(refs))
	for _, r := range refs {
		m[r.Number()] = r
	}
	s.mu.Lock()
	s.m = m
	s.mu.Unlock()
}
