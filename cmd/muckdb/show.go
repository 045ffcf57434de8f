// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/muckdb/internal/codec"
	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Print one entity's verified encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := dbref.Parse(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, _, closeFn, err := a.openRepository(ctx, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			e, err := repo.GetEntity(ctx, ref.WithKind(dbref.KindUnknown))
			if err != nil {
				return err
			}
			encoded, err := codec.VerifyRoundTrip(codec.Standard, e)
			if err != nil {
				return err
			}

			base := e.Base()
			cmd.Printf("%s %s %q\n", base.ID(), e.Kind(), displayName(e))
			cmd.Println(encoded)
			return nil
		},
	}
}

func displayName(e world.Entity) string {
	if !e.Base().HasName() {
		return ""
	}
	return e.Base().Name()
}
