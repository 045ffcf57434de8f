// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"slices"
	"strings"

	"github.com/holomush/muckdb/internal/dbref"
)

// AliasSeparator splits an exit name into the names it answers to.
const AliasSeparator = ";"

// Exit connects a location to one or more destinations.
type Exit struct {
	Thing
	aliases []string
}

// NewExit returns an unregistered exit.
func NewExit() *Exit {
	e := &Exit{}
	e.init()
	return e
}

// Kind implements Entity.
func (e *Exit) Kind() dbref.Kind { return dbref.KindExit }

// Aliases returns the extra alias entries stored alongside the name.
func (e *Exit) Aliases() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.aliases)
}

// SetAliases replaces the extra aliases.
func (e *Exit) SetAliases(aliases ...string) {
	e.mu.Lock()
	e.aliases = slices.Clone(aliases)
	e.mu.Unlock()
	e.MarkDirty()
}

// RestoreAliases sets the aliases without marking the exit dirty.
func (e *Exit) RestoreAliases(aliases []string) {
	e.mu.Lock()
	e.aliases = aliases
	e.mu.Unlock()
}

// AliasNames returns every name the exit answers to: the ';'-separated parts
// of its name followed by the parts of each alias, trimmed, blanks dropped.
func (e *Exit) AliasNames() []string {
	var out []string
	add := func(s string) {
		for _, part := range strings.Split(s, AliasSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	add(e.Name())
	for _, a := range e.Aliases() {
		add(a)
	}
	return out
}

// MatchesAlias reports whether text equals one of the exit's names, ignoring
// case.
func (e *Exit) MatchesAlias(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, name := range e.AliasNames() {
		if strings.EqualFold(name, text) {
			return true
		}
	}
	return false
}
