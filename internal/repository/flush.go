// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package repository

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/muckdb/internal/codec"
	"github.com/holomush/muckdb/internal/observability"
	"github.com/holomush/muckdb/internal/storage"
	"github.com/holomush/muckdb/internal/world"
	"github.com/holomush/muckdb/pkg/errutil"
)

// Flush verifies e's encoding round-trips and saves it under its kind tag.
// On a verification mismatch nothing is written and the error carries both
// encodings. The dirty flag is cleared before encoding and restored on
// failure, so a mutation racing the flush leaves the entity dirty.
func (r *Repository) Flush(ctx context.Context, e world.Entity) (err error) {
	base := e.Base()
	id := base.ID()
	if r.backend == nil {
		return noBackend("flush")
	}
	if !id.IsValid() {
		return oops.Code(CodeNotFound).With("operation", "flush").Wrapf(ErrNotFound, "entity was never inserted")
	}

	ctx, span := tracer.Start(ctx, "repository.flush",
		trace.WithAttributes(
			attribute.String("entity.ref", id.String()),
			attribute.String("entity.kind", e.Kind().String()),
		),
	)
	defer func() {
		if err != nil {
			base.MarkDirty()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	base.ClearDirty()
	encoded, err := codec.VerifyRoundTrip(r.codec, e)
	if err != nil {
		if errors.Is(err, codec.ErrRoundTrip) {
			r.metrics.Flush(observability.ResultCorruption)
			errutil.LogErrorContext(ctx, r.logger, "entity failed round-trip verification", err)
		} else {
			r.metrics.Flush(observability.ResultError)
		}
		return oops.With("ref", id.String()).Wrap(err)
	}

	rec := &storage.Record{
		ID:      id.Number(),
		Kind:    e.Kind().String(),
		Encoded: encoded,
	}
	if base.HasName() {
		name := base.Name()
		rec.Name = &name
	}
	if saveErr := r.backend.Save(ctx, rec); saveErr != nil {
		r.metrics.Flush(observability.ResultError)
		err = oops.Code(CodeBackendIO).With("ref", id.String()).Wrap(saveErr)
		errutil.LogErrorContext(ctx, r.logger, "entity write aborted", err)
		return err
	}
	r.metrics.Flush(observability.ResultOK)
	return nil
}

// FlushDirty flushes every dirty cached entity. It keeps going after a
// failure and returns the number flushed plus the joined errors.
func (r *Repository) FlushDirty(ctx context.Context) (int, error) {
	if r.backend == nil {
		return 0, noBackend("flush dirty")
	}
	var dirty []world.Entity
	r.cache.Range(func(_, v any) bool {
		if e := v.(world.Entity); e.Base().Dirty() {
			dirty = append(dirty, e)
		}
		return true
	})

	var errs []error
	flushed := 0
	for _, e := range dirty {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.Flush(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		flushed++
	}
	if len(errs) > 0 {
		r.logger.WarnContext(ctx, "flush pass incomplete", "flushed", flushed, "failed", len(errs))
	}
	return flushed, errors.Join(errs...)
}
