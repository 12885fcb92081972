// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package config loads service configuration from an optional YAML file
// overlaid with command-line flags. Flags win over the file; the file wins
// over defaults.
package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the runtime configuration for the directory service.
type Config struct {
	// HTTPAddr is the listen address for the directory API.
	HTTPAddr string `koanf:"http-addr"`

	// MetricsAddr is the listen address for metrics/health endpoints.
	// Empty disables the observability server.
	MetricsAddr string `koanf:"metrics-addr"`

	// Store selects the account backend: postgres or memory.
	Store string `koanf:"store"`

	// DatabaseURL is the PostgreSQL connection string. Required when
	// Store is postgres.
	DatabaseURL string `koanf:"database-url"`

	// RedisURL is the connection string for the welcome-notification
	// queue. Empty switches to in-process delivery.
	RedisURL string `koanf:"redis-url"`

	// QueueKey is the Redis list the welcome queue lives on.
	QueueKey string `koanf:"queue-key"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		HTTPAddr:    "127.0.0.1:8080",
		MetricsAddr: "127.0.0.1:9100",
		Store:       StorePostgres,
		LogFormat:   "json",
	}
}

// Load builds a Config from defaults, an optional YAML file, and an optional
// flag set, in increasing order of precedence. Callers validate the result
// after filling in any environment-derived settings.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log-format", c.LogFormat).
			Errorf("log-format must be 'json' or 'text'")
	}
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database-url is required for the postgres store")
		}
	case StoreMemory:
		// No backend settings needed.
	default:
		return oops.Code("CONFIG_INVALID").
			With("store", c.Store).
			Errorf("store must be 'postgres' or 'memory'")
	}
	return nil
}
