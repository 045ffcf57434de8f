// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package repository

import (
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/codec"
	"github.com/holomush/muckdb/internal/dbref"
)

// Error codes.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeTypeMismatch = "TYPE_MISMATCH"
	CodeNoBackend    = "NO_BACKEND"
	CodeBackendIO    = "BACKEND_IO"
	CodeCorruption   = codec.CodeCorruption
)

var (
	// ErrNotFound is returned for sentinel references and ids with no entity.
	ErrNotFound = errors.New("entity not found")
	// ErrTypeMismatch is returned when the entity exists with another type.
	ErrTypeMismatch = errors.New("entity type mismatch")
	// ErrNoBackend is returned by storage operations on a cache-only repository.
	ErrNoBackend = errors.New("no storage backend configured")
	// ErrCorruption is returned when an entity fails round-trip verification.
	ErrCorruption = codec.ErrRoundTrip
	// ErrInsertRace is returned when a freshly allocated id is already cached.
	ErrInsertRace = errors.New("allocated id already in cache")
	// ErrNotEmpty is returned when destroying an entity that still holds others.
	ErrNotEmpty = errors.New("entity still has contents")
)

func notFound(ref dbref.Ref) error {
	return oops.Code(CodeNotFound).With("ref", ref.String()).Wrap(ErrNotFound)
}

func typeMismatch[T any](ref dbref.Ref, got any) error {
	var want T
	return oops.Code(CodeTypeMismatch).
		With("ref", ref.String()).
		With("want", fmt.Sprintf("%T", want)).
		With("got", fmt.Sprintf("%T", got)).
		Wrap(ErrTypeMismatch)
}

func noBackend(op string) error {
	return oops.Code(CodeNoBackend).With("operation", op).Wrap(ErrNoBackend)
}
