// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world_test

import (
	"context"
	"errors"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
)

var errMissing = errors.New("missing")

// mapGetter is an in-memory world.Getter for tests.
type mapGetter map[int32]world.Entity

func (m mapGetter) GetEntity(_ context.Context, ref dbref.Ref) (world.Entity, error) {
	e, ok := m[ref.Number()]
	if !ok {
		return nil, errMissing
	}
	return e, nil
}

// put assigns id to e and registers it.
func (m mapGetter) put(id int32, e world.Entity) world.Entity {
	if err := e.Base().AssignID(dbref.New(id, e.Kind())); err != nil {
		panic(err)
	}
	m[id] = e
	return e
}
