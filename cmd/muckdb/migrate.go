// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/muckdb/internal/config"
	"github.com/holomush/muckdb/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the entities schema to PostgreSQL",
		Long:  `Apply all pending schema migrations to the configured PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Storage.Driver != config.DriverPostgres {
				return oops.Code(config.CodeInvalid).
					With("driver", a.cfg.Storage.Driver).
					Errorf("migrate requires the postgres storage driver")
			}

			m, err := store.NewMigrator(a.cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := m.Close(); closeErr != nil {
					a.logger.Warn("closing migrator", "error", closeErr)
				}
			}()

			if status {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				cmd.Printf("version: %d (dirty: %t)\npending: %v\n", version, dirty, pending)
				return nil
			}

			cmd.Println("Running migrations...")
			if err := m.Up(); err != nil {
				return err
			}
			version, _, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Schema at version %d\n", version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print the applied and pending versions without migrating")
	return cmd
}
