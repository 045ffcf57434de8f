// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/repository"
	"github.com/holomush/muckdb/internal/world"
)

const defaultSeedTimeout = 30 * time.Second

func newSeedCmd(a *app) *cobra.Command {
	timeout := defaultSeedTimeout

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the Aether room and God player in an empty database",
		Long: `Create #0R (Aether) and #1P (God) when the database is empty. Running it
against a seeded database only checks that both exist.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			repo, backend, closeFn, err := a.openRepository(ctx, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			maxID, err := backend.MaxID(ctx)
			if err != nil {
				return err
			}
			if maxID >= 0 {
				if err := checkSeeded(ctx, repo); err != nil {
					return err
				}
				cmd.Println("Database already seeded")
				return nil
			}

			if err := seed(ctx, repo); err != nil {
				return err
			}
			n, err := repo.FlushDirty(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Seeded %d entities\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for storage operations")
	return cmd
}

// seed creates Aether and God in an empty repository.
func seed(ctx context.Context, repo *repository.Repository) error {
	aether, err := repository.Make(ctx, repo, world.NewRoom)
	if err != nil {
		return err
	}
	god, err := repository.Make(ctx, repo, world.NewPlayer)
	if err != nil {
		return err
	}
	if !aether.ID().Equal(dbref.Aether) || !god.ID().Equal(dbref.God) {
		return oops.Code("SEED_FAILED").
			With("aether", aether.ID().String()).
			With("god", god.ID().String()).
			Errorf("seed ids were already taken")
	}

	aether.SetName("Aether")
	aether.SetOwner(god.ID())

	god.SetName("God")
	god.SetOwner(god.ID())
	god.SetFlag(world.FlagWizard)
	god.SetLastConnect(time.Now())
	if err := repo.Link(ctx, god, aether.ID()); err != nil {
		return err
	}
	return repo.Move(ctx, god, aether.ID())
}

func checkSeeded(ctx context.Context, repo *repository.Repository) error {
	if _, err := repository.Get[*world.Room](ctx, repo, dbref.Aether); err != nil {
		return oops.With("ref", dbref.Aether.String()).Wrap(err)
	}
	if _, err := repository.Get[*world.Player](ctx, repo, dbref.God); err != nil {
		return oops.With("ref", dbref.God.String()).Wrap(err)
	}
	return nil
}
