// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads muckdb settings from a YAML file overlaid by command
// line flags.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/muckdb/internal/logging"
	"github.com/holomush/muckdb/internal/xdg"
)

// CodeInvalid marks configuration errors.
const CodeInvalid = "CONFIG_INVALID"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// DatabaseURLEnv is read when storage.dsn is unset.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the full muckdb configuration.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Storage StorageConfig `koanf:"storage"`
	Metrics MetricsConfig `koanf:"metrics"`
	Flush   FlushConfig   `koanf:"flush"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	Driver string `koanf:"driver" jsonschema:"enum=memory,enum=postgres,enum=bolt"`
	DSN    string `koanf:"dsn"`
	Path   string `koanf:"path"`
}

// MetricsConfig configures the metrics and health server. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// FlushConfig configures the periodic dirty flush.
type FlushConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:     LogConfig{Format: logging.FormatJSON, Level: "info"},
		Storage: StorageConfig{Driver: DriverMemory},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Flush:   FlushConfig{Interval: 30 * time.Second},
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":     "log.format",
	"log-level":      "log.level",
	"storage-driver": "storage.driver",
	"storage-dsn":    "storage.dsn",
	"storage-path":   "storage.path",
	"metrics-addr":   "metrics.addr",
	"flush-interval": "flush.interval",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-format", d.Log.Format, "log format (json|text)")
	fs.String("log-level", d.Log.Level, "minimum log level (debug|info|warn|error)")
	fs.String("storage-driver", d.Storage.Driver, "storage backend (memory|postgres|bolt)")
	fs.String("storage-dsn", d.Storage.DSN, "postgres connection string (default $"+DatabaseURLEnv+")")
	fs.String("storage-path", d.Storage.Path, "bolt database file (default under the XDG data dir)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address, empty to disable")
	fs.Duration("flush-interval", d.Flush.Interval, "interval between dirty flushes")
}

// DefaultPath returns config.yaml in the XDG config directory.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path (skipped when empty, or when it is the default path and
// missing), then applies flags that were set explicitly. The result is
// validated.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		switch {
		case err == nil:
		case !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return nil, oops.Code(CodeInvalid).With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalid).Wrap(err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if c.Storage.DSN == "" {
		c.Storage.DSN = os.Getenv(DatabaseURLEnv)
	}
	if c.Storage.Driver == DriverBolt && c.Storage.Path == "" {
		dir, err := xdg.DataDir()
		if err != nil {
			return oops.Code(CodeInvalid).Wrap(err)
		}
		c.Storage.Path = filepath.Join(dir, "muckdb.db")
	}
	return nil
}

// Validate checks enumerated values and driver requirements.
func (c *Config) Validate() error {
	if f := c.Log.Format; f != logging.FormatJSON && f != logging.FormatText {
		return oops.Code(CodeInvalid).With("log.format", f).Errorf("log format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	drivers := []string{DriverMemory, DriverPostgres, DriverBolt}
	if !slices.Contains(drivers, c.Storage.Driver) {
		return oops.Code(CodeInvalid).
			With("storage.driver", c.Storage.Driver).
			Errorf("storage driver must be one of %s", strings.Join(drivers, ", "))
	}
	if c.Storage.Driver == DriverPostgres && c.Storage.DSN == "" {
		return oops.Code(CodeInvalid).
			Hint("set storage.dsn or " + DatabaseURLEnv).
			Errorf("postgres driver requires a connection string")
	}
	if c.Storage.Driver == DriverBolt && c.Storage.Path == "" {
		return oops.Code(CodeInvalid).Errorf("bolt driver requires storage.path")
	}
	if c.Flush.Interval <= 0 {
		return oops.Code(CodeInvalid).With("flush.interval", c.Flush.Interval.String()).Errorf("flush interval must be positive")
	}
	return nil
}
