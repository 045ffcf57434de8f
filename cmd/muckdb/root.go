// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/muckdb/internal/config"
	"github.com/holomush/muckdb/internal/logging"
	"github.com/holomush/muckdb/internal/observability"
	"github.com/holomush/muckdb/internal/repository"
	"github.com/holomush/muckdb/internal/storage"
)

// app is the state shared by every subcommand once the configuration is
// loaded.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the muckdb command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "muckdb",
		Short: "Persistent object database for MUCK worlds",
		Long: `muckdb stores the entities of a MUCK world (rooms, players, exits,
things and programs) in PostgreSQL, a bolt file or memory, verifying
every encoding round-trips before it is written.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/muckdb/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newSeedCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newVerifyCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newLockCmd(a))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.Setup("muckdb", version, logging.Options{Format: cfg.Log.Format, Level: level}, cmd.ErrOrStderr())
	return nil
}

// openRepository opens the configured backend and builds a repository on
// it. The returned function releases the backend.
func (a *app) openRepository(ctx context.Context, metrics *observability.Metrics) (*repository.Repository, storage.Backend, func(), error) {
	backend, closeFn, err := openBackend(ctx, a.cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	repo, err := repository.New(ctx,
		repository.WithBackend(backend),
		repository.WithLogger(a.logger),
		repository.WithMetrics(metrics),
	)
	if err != nil {
		closeFn()
		return nil, nil, nil, oops.With("driver", a.cfg.Storage.Driver).Wrap(err)
	}
	return repo, backend, closeFn, nil
}
