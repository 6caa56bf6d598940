// Package config loads and validates eventledgerd's configuration: HLC
// clock tuning, snapshot policy, and adapter selection, read from a YAML
// file with ${VAR}/$VAR environment expansion.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level recognized configuration shape.
type Config struct {
	HLC     HLCConfig     `yaml:"hlc"`
	Store   StoreConfig   `yaml:"store"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// HLCConfig mirrors hlc.Config's tunables.
type HLCConfig struct {
	MaxOffset            int64 `yaml:"max_offset"`
	TimeUpperBound       int64 `yaml:"time_upper_bound"`
	ToleratedForwardJump int64 `yaml:"tolerated_forward_jump"`
}

// StoreConfig controls the event store's snapshot policy: "manual"
// (default) or "auto".
type StoreConfig struct {
	Snapshot string `yaml:"snapshot"`
}

// AdapterConfig selects and configures the storage backend: Kind is
// "memory" (default) or "postgres".
type AdapterConfig struct {
	Kind     string         `yaml:"kind"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig configures the postgres adapter's connection pool and
// migrations table.
type PostgresConfig struct {
	DSN             string `yaml:"dsn"`
	MaxConns        int32  `yaml:"max_conns"`
	MigrationsTable string `yaml:"migrations_table"`
}

// Load reads path, expands environment references, decodes YAML, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(ExpandEnv(raw), &cfg); err != nil {
		return nil, NewLoadError(path, err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Snapshot == "" {
		cfg.Store.Snapshot = "manual"
	}
	if cfg.Adapter.Kind == "" {
		cfg.Adapter.Kind = "memory"
	}
	if cfg.Adapter.Postgres.MaxConns == 0 {
		cfg.Adapter.Postgres.MaxConns = 10
	}
	if cfg.Adapter.Postgres.MigrationsTable == "" {
		cfg.Adapter.Postgres.MigrationsTable = "eventledger_migrations"
	}
}
