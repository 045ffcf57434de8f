// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/muckdb/internal/access"
	"github.com/holomush/muckdb/internal/dbref"
)

func newLockCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "lock <object> <subject>",
		Short: "Test whether subject passes a lock stored on object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			object, err := dbref.Parse(args[0])
			if err != nil {
				return err
			}
			subject, err := dbref.Parse(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, _, closeFn, err := a.openRepository(ctx, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			target, err := repo.GetEntity(ctx, object.WithKind(dbref.KindUnknown))
			if err != nil {
				return err
			}
			env := access.NewStatic(repo, access.WithLogger(a.logger)).Env()
			result := "fail"
			if env.Passes(ctx, target, path, subject) {
				result = "pass"
			}
			cmd.Printf("%s %s %s\n", subject, result, target.Base().ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", access.LockPath, "property holding the lock")
	return cmd
}
