// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/muckdb/internal/config"
	"github.com/holomush/muckdb/pkg/errutil"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv(config.DatabaseURLEnv, "")
}

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := config.Load("", flags(t))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
}

func TestLoad_FileThenFlags(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
log:
  format: text
storage:
  driver: bolt
  path: /srv/world.db
flush:
  interval: 5s
`)
	cfg, err := config.Load(path, flags(t, "--storage-path=/tmp/override.db"))
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, config.DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.Path)
	assert.Equal(t, 5*time.Second, cfg.Flush.Interval)
	assert.Equal(t, config.Default().Metrics.Addr, cfg.Metrics.Addr)
}

func TestLoad_UnchangedFlagsKeepFileValues(t *testing.T) {
	isolate(t)
	path := writeFile(t, "metrics:\n  addr: 0.0.0.0:9999\n")
	cfg, err := config.Load(path, flags(t))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Metrics.Addr)
}

func TestLoad_DefaultPathIsOptional(t *testing.T) {
	isolate(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "muckdb"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "muckdb", "config.yaml"), []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	isolate(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	isolate(t)
	t.Setenv(config.DatabaseURLEnv, "postgres://localhost/muck")
	cfg, err := config.Load("", flags(t, "--storage-driver=postgres"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/muck", cfg.Storage.DSN)
}

func TestLoad_BoltPathDefaultsToDataDir(t *testing.T) {
	isolate(t)
	cfg, err := config.Load("", flags(t, "--storage-driver=bolt"))
	require.NoError(t, err)
	assert.Equal(t, "/data/muckdb/muckdb.db", cfg.Storage.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown driver", mutate: func(c *config.Config) { c.Storage.Driver = "mongo" }},
		{name: "unknown format", mutate: func(c *config.Config) { c.Log.Format = "xml" }},
		{name: "unknown level", mutate: func(c *config.Config) { c.Log.Level = "chatty" }},
		{name: "postgres without dsn", mutate: func(c *config.Config) { c.Storage.Driver = config.DriverPostgres }},
		{name: "bolt without path", mutate: func(c *config.Config) { c.Storage.Driver = config.DriverBolt }},
		{name: "zero interval", mutate: func(c *config.Config) { c.Flush.Interval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, config.CodeInvalid)
		})
	}

	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PostgresHintsAtDatabaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverPostgres
	errutil.AssertErrorHint(t, cfg.Validate(), config.DatabaseURLEnv)
}
