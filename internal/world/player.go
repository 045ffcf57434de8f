// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"time"

	"github.com/holomush/muckdb/internal/dbref"
)

// Player is a connected (or connectable) character.
type Player struct {
	Thing
	lastConnect time.Time
}

// NewPlayer returns an unregistered player.
func NewPlayer() *Player {
	p := &Player{}
	p.init()
	return p
}

// Kind implements Entity.
func (p *Player) Kind() dbref.Kind { return dbref.KindPlayer }

// Home is the player's single link target, or dbref.NotFound before linking.
func (p *Player) Home() dbref.Ref {
	return firstOr(p.LinkTargets(), dbref.NotFound)
}

// LastConnect returns the last login time. The zero time means never.
func (p *Player) LastConnect() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastConnect
}

// Bounds of a storable login time. The date encoding has four year digits.
var (
	MinDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// SetLastConnect records a login time, clamped to [MinDate, MaxDate].
func (p *Player) SetLastConnect(t time.Time) {
	t = t.UTC()
	switch {
	case t.Before(MinDate):
		t = MinDate
	case t.After(MaxDate):
		t = MaxDate
	}
	p.mu.Lock()
	p.lastConnect = t
	p.mu.Unlock()
	p.MarkDirty()
}

// RestoreLastConnect sets the login time without marking the player dirty.
func (p *Player) RestoreLastConnect(t time.Time) {
	p.mu.Lock()
	p.lastConnect = t
	p.mu.Unlock()
}
