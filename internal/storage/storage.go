// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package storage defines the contract between the repository and a durable
// entity store. A backend keeps one row per entity: id, kind tag, optional
// display name and the opaque encoded payload.
package storage

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Error codes returned by backends.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeBackendIO     = "BACKEND_IO"
	CodeSchemaMissing = "SCHEMA_MISSING"
)

// ErrNotFound is returned by Load and Delete when no record has the id.
var ErrNotFound = errors.New("record not found")

// Record is one persisted entity.
type Record struct {
	ID      int32
	Kind    string
	Name    *string
	Encoded string
}

// Clone returns a copy that shares nothing with r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Name != nil {
		name := *r.Name
		c.Name = &name
	}
	return &c
}

// Backend is a durable entity store.
type Backend interface {
	// Initialize prepares the backend and checks that its schema exists.
	Initialize(ctx context.Context) error
	// Load returns the record with the given id, or ErrNotFound.
	Load(ctx context.Context, id int32) (*Record, error)
	// Save inserts or replaces the record with rec.ID.
	Save(ctx context.Context, rec *Record) error
	// Delete removes the record with the given id, or returns ErrNotFound.
	Delete(ctx context.Context, id int32) error
	// MaxID returns the highest stored id, or -1 when the store is empty.
	MaxID(ctx context.Context) (int32, error)
}

// Scanner is implemented by backends that can iterate every record in id
// order. Returning an error from fn stops the scan with that error.
type Scanner interface {
	Scan(ctx context.Context, fn func(*Record) error) error
}

// NotFound builds the standard not-found error for id.
func NotFound(id int32) error {
	return oops.Code(CodeNotFound).With("id", id).Wrap(ErrNotFound)
}

// IOError wraps a backend failure with the BACKEND_IO code.
func IOError(op string, id int32, err error) error {
	return oops.Code(CodeBackendIO).With("operation", op).With("id", id).Wrap(err)
}
