// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/muckdb/internal/observability"
	"github.com/holomush/muckdb/internal/repository"
	"github.com/holomush/muckdb/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve metrics and flush dirty entities until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}
}

func (a *app) run(ctx context.Context) error {
	var (
		live    atomic.Pointer[repository.Repository]
		metrics *observability.Metrics
		serveCh <-chan error
	)
	if addr := a.cfg.Metrics.Addr; addr != "" {
		server := observability.NewServer(addr,
			observability.WithReadiness(func() bool { return live.Load() != nil }),
			observability.WithStats(func() observability.CacheStats {
				stats := observability.CacheStats{Driver: a.cfg.Storage.Driver}
				if repo := live.Load(); repo != nil {
					stats.Cached = repo.Len()
					stats.Dirty = repo.DirtyLen()
				}
				return stats
			}),
			observability.WithServerLogger(a.logger),
		)
		metrics = server.Metrics()
		ch, err := server.Start()
		if err != nil {
			return err
		}
		serveCh = ch
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(stopCtx); err != nil {
				errutil.LogError(a.logger, "stopping observability server", err)
			}
		}()
	}

	repo, _, closeFn, err := a.openRepository(ctx, metrics)
	if err != nil {
		return err
	}
	defer closeFn()
	live.Store(repo)

	a.logger.Info("muckdb running",
		"driver", a.cfg.Storage.Driver,
		"flush_interval", a.cfg.Flush.Interval.String(),
	)

	ticker := time.NewTicker(a.cfg.Flush.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down, flushing dirty entities")
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.flush(flushCtx, repo)
		case err, ok := <-serveCh:
			if ok && err != nil {
				return err
			}
			serveCh = nil
		case <-ticker.C:
			if err := a.flush(ctx, repo); err != nil {
				errutil.LogErrorContext(ctx, a.logger, "periodic flush failed", err)
			}
		}
	}
}

func (a *app) flush(ctx context.Context, repo *repository.Repository) error {
	n, err := repo.FlushDirty(ctx)
	if n > 0 {
		a.logger.DebugContext(ctx, "flushed dirty entities", "count", n)
	}
	return err
}
