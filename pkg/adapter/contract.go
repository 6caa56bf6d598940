// Package adapter defines the storage contract the event store depends on:
// providers for events, relations and snapshots. Concrete backends (an
// in-memory reference implementation in package memory, a PostgreSQL
// implementation in package postgres) satisfy this contract; the store
// itself never imports a specific backend.
package adapter

import (
	"context"

	"github.com/codeready-toolchain/eventledger/pkg/record"
)

// Direction controls the sort order of a Get query.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// GetOptions filters and paginates an events read.
type GetOptions struct {
	Types     []string
	Cursor    string // created > Cursor (Ascending) or created < Cursor (Descending)
	Direction Direction
	Limit     int // 0 means unbounded
}

// Events is the storage contract for the event ledger itself.
type Events interface {
	Insert(ctx context.Context, rec *record.EventRecord) error
	// InsertMany writes the batch atomically: either all records persist or
	// none do. batchSize of 0 means a backend-chosen default (1000 in the
	// adapter-neutral layout).
	InsertMany(ctx context.Context, records []*record.EventRecord, batchSize int) error
	Get(ctx context.Context, opts GetOptions) ([]*record.EventRecord, error)
	GetByStream(ctx context.Context, stream string, opts GetOptions) ([]*record.EventRecord, error)
	GetByStreams(ctx context.Context, streams []string, opts GetOptions) ([]*record.EventRecord, error)
	// GetByID returns nil, nil if no record with that id exists.
	GetByID(ctx context.Context, id string) (*record.EventRecord, error)
	// CheckOutdated reports whether a stored record exists with the same
	// (stream, type) and a strictly greater created timestamp.
	CheckOutdated(ctx context.Context, stream, typ, created string) (bool, error)
}

// RelationOpKind distinguishes the two mutations Relations.Handle accepts.
type RelationOpKind int

const (
	RelationInsert RelationOpKind = iota
	RelationRemove
)

// RelationOp is one mutation in a Relations.Handle batch.
type RelationOp struct {
	Op     RelationOpKind
	Key    string
	Stream string
}

// RelationPair is a (key, stream) tuple used by the batch insert/remove
// helpers.
type RelationPair struct {
	Key    string
	Stream string
}

// Relations is the storage contract for the (key, stream) fan-in index.
type Relations interface {
	Handle(ctx context.Context, ops []RelationOp) error
	Insert(ctx context.Context, key, stream string) error
	// InsertMany silently ignores duplicate (key, stream) pairs.
	InsertMany(ctx context.Context, pairs []RelationPair, batchSize int) error
	GetByKey(ctx context.Context, key string) ([]string, error)
	// GetByKeys returns the deduplicated union of streams across all keys.
	GetByKeys(ctx context.Context, keys []string) ([]string, error)
	Remove(ctx context.Context, key, stream string) error
	RemoveMany(ctx context.Context, pairs []RelationPair, batchSize int) error
	RemoveByKeys(ctx context.Context, keys []string) error
	RemoveByStreams(ctx context.Context, streams []string) error
}

// Snapshot is a cached reducer result at a given cursor.
type Snapshot struct {
	Name            string
	StreamOrRelation string
	Cursor          string
	State           any
}

// Snapshots is the storage contract for reducer snapshots.
type Snapshots interface {
	// Insert replaces any existing snapshot for (name, streamOrRelation).
	Insert(ctx context.Context, name, streamOrRelation, cursor string, state any) error
	// GetByStream returns nil, nil if no snapshot exists.
	GetByStream(ctx context.Context, name, streamOrRelation string) (*Snapshot, error)
	Remove(ctx context.Context, name, streamOrRelation string) error
}

// Adapter bundles the three providers the event store composes.
type Adapter struct {
	Events    Events
	Relations Relations
	Snapshots Snapshots
}
