package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
	"github.com/codeready-toolchain/eventledger/pkg/record"
)

type eventsStore struct{ d *data }

func marshalAny(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalAny(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

const insertEventSQL = `
INSERT INTO events (id, stream, type, data, meta, created, recorded)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Insert implements adapter.Events.
func (s *eventsStore) Insert(ctx context.Context, rec *record.EventRecord) error {
	data, err := marshalAny(rec.Data)
	if err != nil {
		return fmt.Errorf("postgres: marshal data for %s: %w", rec.ID, err)
	}
	meta, err := marshalAny(rec.Meta)
	if err != nil {
		return fmt.Errorf("postgres: marshal meta for %s: %w", rec.ID, err)
	}

	_, err = s.d.pool.Exec(ctx, insertEventSQL, rec.ID, rec.Stream, rec.Type, data, meta, rec.Created, rec.Recorded)
	if err != nil {
		return fmt.Errorf("postgres: insert event %s: %w", rec.ID, err)
	}
	return nil
}

// InsertMany implements adapter.Events with all-or-nothing semantics: every
// record lands inside a single transaction, chunked into batches of
// batchSize rows (0 means the adapter-neutral default of 1000).
func (s *eventsStore) InsertMany(ctx context.Context, records []*record.EventRecord, batchSize int) error {
	if len(records) == 0 {
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

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			data, err := marshalAny(rec.Data)
			if err != nil {
				return fmt.Errorf("postgres: marshal data for %s: %w", rec.ID, err)
			}
			meta, err := marshalAny(rec.Meta)
			if err != nil {
				return fmt.Errorf("postgres: marshal meta for %s: %w", rec.ID, err)
			}
			batch.Queue(insertEventSQL, rec.ID, rec.Stream, rec.Type, data, meta, rec.Created, rec.Recorded)
		}

		br := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("postgres: insert event %s: %w", records[i].ID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit batch: %w", err)
	}
	return nil
}

func scanEvent(rows interface {
	Scan(dest ...any) error
}) (*record.EventRecord, error) {
	var (
		rec  record.EventRecord
		data []byte
		meta []byte
		err  error
	)
	if err = rows.Scan(&rec.ID, &rec.Stream, &rec.Type, &data, &meta, &rec.Created, &rec.Recorded); err != nil {
		return nil, err
	}
	if rec.Data, err = unmarshalAny(data); err != nil {
		return nil, err
	}
	if rec.Meta, err = unmarshalAny(meta); err != nil {
		return nil, err
	}
	return &rec, nil
}

const selectEventColumns = "id, stream, type, data, meta, created, recorded"

// buildGetQuery assembles the WHERE/ORDER/LIMIT clause shared by Get,
// GetByStream and GetByStreams. streams == nil means no stream filter.
func buildGetQuery(streams []string, opts adapter.GetOptions) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if streams != nil {
		where = append(where, fmt.Sprintf("stream = ANY(%s)", arg(streams)))
	}
	if len(opts.Types) > 0 {
		where = append(where, fmt.Sprintf("type = ANY(%s)", arg(opts.Types)))
	}
	if opts.Cursor != "" {
		if opts.Direction == adapter.Descending {
			where = append(where, fmt.Sprintf("created < %s", arg(opts.Cursor)))
		} else {
			where = append(where, fmt.Sprintf("created > %s", arg(opts.Cursor)))
		}
	}

	query := "SELECT " + selectEventColumns + " FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if opts.Direction == adapter.Descending {
		query += " ORDER BY created DESC"
	} else {
		query += " ORDER BY created ASC"
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", arg(opts.Limit))
	}
	return query, args
}

func (s *eventsStore) query(ctx context.Context, streams []string, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	query, args := buildGetQuery(streams, opts)
	rows, err := s.d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query events: %w", err)
	}
	defer rows.Close()

	out := make([]*record.EventRecord, 0)
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return out, nil
}

// Get implements adapter.Events.
func (s *eventsStore) Get(ctx context.Context, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	return s.query(ctx, nil, opts)
}

// GetByStream implements adapter.Events.
func (s *eventsStore) GetByStream(ctx context.Context, stream string, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	return s.query(ctx, []string{stream}, opts)
}

// GetByStreams implements adapter.Events.
func (s *eventsStore) GetByStreams(ctx context.Context, streams []string, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	return s.query(ctx, streams, opts)
}

// GetByID implements adapter.Events.
func (s *eventsStore) GetByID(ctx context.Context, id string) (*record.EventRecord, error) {
	row := s.d.pool.QueryRow(ctx, "SELECT "+selectEventColumns+" FROM events WHERE id = $1", id)
	rec, err := scanEvent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: get event %s: %w", id, err)
	}
	return rec, nil
}

// CheckOutdated implements adapter.Events.
func (s *eventsStore) CheckOutdated(ctx context.Context, stream, typ, created string) (bool, error) {
	var exists bool
	err := s.d.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE stream = $1 AND type = $2 AND created > $3)`,
		stream, typ, created,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check outdated: %w", err)
	}
	return exists, nil
}
