package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "store:\n  snapshot: manual\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Adapter.Kind)
	assert.Equal(t, int32(10), cfg.Adapter.Postgres.MaxConns)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("EVENTLEDGER_PG_DSN", "postgres://localhost/test")
	path := writeTempConfig(t, "adapter:\n  kind: postgres\n  postgres:\n    dsn: ${EVENTLEDGER_PG_DSN}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/test", cfg.Adapter.Postgres.DSN)
}

func TestLoadMissingFileReturnsLoadError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestValidateRejectsUnknownSnapshotPolicy(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Snapshot: "eager"}, Adapter: AdapterConfig{Kind: "memory"}}
	err := Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "store", verr.Component)
}

func TestValidateRequiresPostgresDSN(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Snapshot: "manual"}, Adapter: AdapterConfig{Kind: "postgres"}}
	err := Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "adapter.postgres", verr.Component)
}

func TestValidateRejectsNegativeHLCValues(t *testing.T) {
	cfg := &Config{
		HLC:     HLCConfig{MaxOffset: -1},
		Store:   StoreConfig{Snapshot: "manual"},
		Adapter: AdapterConfig{Kind: "memory"},
	}
	err := Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "hlc", verr.Component)
}
