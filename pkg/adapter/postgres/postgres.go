// Package postgres implements a durable adapter.Adapter backed by
// PostgreSQL. It lays out the adapter-neutral schema as three tables —
// events, relations, snapshots — manages them with embedded golang-migrate
// migrations, and talks to the database through a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config configures the connection pool and migration bookkeeping table.
type Config struct {
	DSN string

	// MaxConns bounds the pgx pool. 0 leaves pgxpool's own default in place.
	MaxConns int32

	// MigrationsTable names golang-migrate's bookkeeping table, letting
	// multiple adapters share one database without colliding.
	MigrationsTable string
}

// Pool exposes the subset of the underlying pgx pool that callers outside
// this package need: health checks and graceful shutdown.
type Pool struct {
	pool *pgxpool.Pool
}

// Close releases all pooled connections.
func (p *Pool) Close() { p.pool.Close() }

// Stat returns pgxpool's live connection pool statistics.
func (p *Pool) Stat() *pgxpool.Stat { return p.pool.Stat() }

// Open connects to PostgreSQL, applies any pending embedded migrations, and
// returns the adapter wired to the three table-backed providers together
// with the pool handle. The caller is responsible for calling Pool.Close.
func Open(ctx context.Context, cfg Config) (*adapter.Adapter, *Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := runMigrations(cfg.DSN, cfg.MigrationsTable); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	d := &data{pool: pool}
	a := &adapter.Adapter{
		Events:    &eventsStore{d: d},
		Relations: &relationsStore{d: d},
		Snapshots: &snapshotsStore{d: d},
	}
	return a, &Pool{pool: pool}, nil
}

// data is the shared handle behind all three providers. The providers are
// split into separate types, not one type implementing all three
// interfaces, because adapter.Events, .Relations and .Snapshots each
// declare their own differently-signed Insert method.
type data struct {
	pool *pgxpool.Pool
}
