// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import "github.com/holomush/muckdb/internal/dbref"

// Room is a location players and things can be in.
type Room struct {
	Thing
}

// NewRoom returns an unregistered room.
func NewRoom() *Room {
	r := &Room{}
	r.init()
	return r
}

// Kind implements Entity.
func (r *Room) Kind() dbref.Kind { return dbref.KindRoom }

// DropTo returns where dropped objects are sent, or dbref.NotFound.
func (r *Room) DropTo() dbref.Ref {
	return firstOr(r.LinkTargets(), dbref.NotFound)
}

func firstOr(refs []dbref.Ref, def dbref.Ref) dbref.Ref {
	if len(refs) == 0 {
		return def
	}
	return refs[0]
}
