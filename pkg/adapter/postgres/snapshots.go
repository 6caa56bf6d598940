package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
)

type snapshotsStore struct{ d *data }

// Insert implements adapter.Snapshots, replacing any existing snapshot for
// (name, streamOrRelation).
func (s *snapshotsStore) Insert(ctx context.Context, name, streamOrRelation, cursor string, state any) error {
	raw, err := marshalAny(state)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot state: %w", err)
	}

	_, err = s.d.pool.Exec(ctx, `
		INSERT INTO snapshots (name, stream_or_relation, cursor, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, stream_or_relation)
		DO UPDATE SET cursor = excluded.cursor, state = excluded.state`,
		name, streamOrRelation, cursor, raw,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot %s/%s: %w", name, streamOrRelation, err)
	}
	return nil
}

// GetByStream implements adapter.Snapshots.
func (s *snapshotsStore) GetByStream(ctx context.Context, name, streamOrRelation string) (*adapter.Snapshot, error) {
	var (
		cursor string
		raw    []byte
	)
	err := s.d.pool.QueryRow(ctx,
		`SELECT cursor, state FROM snapshots WHERE name = $1 AND stream_or_relation = $2`,
		name, streamOrRelation,
	).Scan(&cursor, &raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: get snapshot %s/%s: %w", name, streamOrRelation, err)
	}

	state, err := unmarshalAny(raw)
	if err != nil {
		return nil, fmt.Errorf("postgres: unmarshal snapshot state: %w", err)
	}
	return &adapter.Snapshot{
		Name:             name,
		StreamOrRelation: streamOrRelation,
		Cursor:           cursor,
		State:            state,
	}, nil
}

// Remove implements adapter.Snapshots.
func (s *snapshotsStore) Remove(ctx context.Context, name, streamOrRelation string) error {
	_, err := s.d.pool.Exec(ctx, `DELETE FROM snapshots WHERE name = $1 AND stream_or_relation = $2`, name, streamOrRelation)
	if err != nil {
		return fmt.Errorf("postgres: remove snapshot %s/%s: %w", name, streamOrRelation, err)
	}
	return nil
}
