package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
)

type relationsStore struct{ d *data }

const insertRelationSQL = `
INSERT INTO relations (key, stream) VALUES ($1, $2)
ON CONFLICT (key, stream) DO NOTHING`

const removeRelationSQL = `DELETE FROM relations WHERE key = $1 AND stream = $2`

// Handle implements adapter.Relations, applying every op inside one
// transaction so a partial batch never lands.
func (s *relationsStore) Handle(ctx context.Context, ops []adapter.RelationOp) error {
	tx, err := s.d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		switch op.Op {
		case adapter.RelationInsert:
			if _, err := tx.Exec(ctx, insertRelationSQL, op.Key, op.Stream); err != nil {
				return fmt.Errorf("postgres: insert relation %s/%s: %w", op.Key, op.Stream, err)
			}
		case adapter.RelationRemove:
			if _, err := tx.Exec(ctx, removeRelationSQL, op.Key, op.Stream); err != nil {
				return fmt.Errorf("postgres: remove relation %s/%s: %w", op.Key, op.Stream, err)
			}
		}
	}
	return tx.Commit(ctx)
}

// Insert implements adapter.Relations.
func (s *relationsStore) Insert(ctx context.Context, key, stream string) error {
	_, err := s.d.pool.Exec(ctx, insertRelationSQL, key, stream)
	if err != nil {
		return fmt.Errorf("postgres: insert relation %s/%s: %w", key, stream, err)
	}
	return nil
}

// InsertMany implements adapter.Relations, silently ignoring duplicate
// (key, stream) pairs via ON CONFLICT DO NOTHING.
func (s *relationsStore) InsertMany(ctx context.Context, pairs []adapter.RelationPair, batchSize int) error {
	if len(pairs) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	tx, err := s.d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := &pgx.Batch{}
		for _, p := range pairs[start:end] {
			batch.Queue(insertRelationSQL, p.Key, p.Stream)
		}
		br := tx.SendBatch(ctx, batch)
		for range pairs[start:end] {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("postgres: insert relation batch: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close batch: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetByKey implements adapter.Relations.
func (s *relationsStore) GetByKey(ctx context.Context, key string) ([]string, error) {
	return s.GetByKeys(ctx, []string{key})
}

// GetByKeys implements adapter.Relations, returning the deduplicated union
// of streams across all keys.
func (s *relationsStore) GetByKeys(ctx context.Context, keys []string) ([]string, error) {
	rows, err := s.d.pool.Query(ctx, `SELECT DISTINCT stream FROM relations WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("postgres: get relations by keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var stream string
		if err := rows.Scan(&stream); err != nil {
			return nil, fmt.Errorf("postgres: scan relation stream: %w", err)
		}
		out = append(out, stream)
	}
	return out, rows.Err()
}

// Remove implements adapter.Relations.
func (s *relationsStore) Remove(ctx context.Context, key, stream string) error {
	_, err := s.d.pool.Exec(ctx, removeRelationSQL, key, stream)
	if err != nil {
		return fmt.Errorf("postgres: remove relation %s/%s: %w", key, stream, err)
	}
	return nil
}

// RemoveMany implements adapter.Relations.
func (s *relationsStore) RemoveMany(ctx context.Context, pairs []adapter.RelationPair, batchSize int) error {
	if len(pairs) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	tx, err := s.d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := &pgx.Batch{}
		for _, p := range pairs[start:end] {
			batch.Queue(removeRelationSQL, p.Key, p.Stream)
		}
		br := tx.SendBatch(ctx, batch)
		for range pairs[start:end] {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("postgres: remove relation batch: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close batch: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// RemoveByKeys implements adapter.Relations.
func (s *relationsStore) RemoveByKeys(ctx context.Context, keys []string) error {
	_, err := s.d.pool.Exec(ctx, `DELETE FROM relations WHERE key = ANY($1)`, keys)
	if err != nil {
		return fmt.Errorf("postgres: remove relations by keys: %w", err)
	}
	return nil
}

// RemoveByStreams implements adapter.Relations.
func (s *relationsStore) RemoveByStreams(ctx context.Context, streams []string) error {
	_, err := s.d.pool.Exec(ctx, `DELETE FROM relations WHERE stream = ANY($1)`, streams)
	if err != nil {
		return fmt.Errorf("postgres: remove relations by streams: %w", err)
	}
	return nil
}
