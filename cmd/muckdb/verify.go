// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/muckdb/internal/codec"
	"github.com/holomush/muckdb/internal/storage"
	"github.com/holomush/muckdb/pkg/errutil"
)

// verifyReport counts the outcome of a verification scan.
type verifyReport struct {
	checked int
	failed  int
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every stored record decodes and round-trips",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			backend, closeFn, err := openBackend(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := a.verify(ctx, backend)
			if err != nil {
				return err
			}
			cmd.Printf("checked %d records, %d failed\n", report.checked, report.failed)
			if report.failed > 0 {
				return oops.Code(codec.CodeCorruption).
					With("failed", report.failed).
					Errorf("%d records failed verification", report.failed)
			}
			return nil
		},
	}
}

// verify decodes every record and runs round-trip verification on it. Bad
// records are logged and counted; only scan failures abort.
func (a *app) verify(ctx context.Context, backend storage.Backend) (verifyReport, error) {
	var report verifyReport

	scanner, ok := backend.(storage.Scanner)
	if !ok {
		return report, oops.Code("UNSUPPORTED").
			With("driver", a.cfg.Storage.Driver).
			Errorf("storage backend cannot list records")
	}
	if err := backend.Initialize(ctx); err != nil {
		return report, err
	}

	err := scanner.Scan(ctx, func(rec *storage.Record) error {
		report.checked++
		e, err := codec.Standard.Decode(rec.Kind, rec.Encoded)
		if err == nil {
			_, err = codec.VerifyRoundTrip(codec.Standard, e)
		}
		if err != nil {
			report.failed++
			errutil.LogErrorContext(ctx, a.logger, "record failed verification", oops.With("id", rec.ID).Wrap(err))
		}
		return nil
	})
	return report, err
}
