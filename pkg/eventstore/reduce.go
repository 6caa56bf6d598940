package eventstore

import (
	"context"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
	"github.com/codeready-toolchain/eventledger/pkg/record"
)

// Reduce folds the events for query's stream or relation onto the most
// recent snapshot (if any), optionally extended with pending in-memory
// events not yet persisted. With snapshot policy Auto, a successful fold
// with at least one event persists a fresh snapshot at the last event's
// cursor.
func (s *Store) Reduce(ctx context.Context, query ReduceQuery, pending []*record.EventRecord) (any, error) {
	id := query.id()

	snap, err := s.adapter.Snapshots.GetByStream(ctx, query.Name, id)
	if err != nil {
		return nil, err
	}

	filter := query.Filter
	var state any
	if snap != nil {
		filter.Cursor = snap.Cursor
		filter.Direction = 0 // ascending: reduce always folds oldest-first
		state = snap.State
	}

	events, err := s.fetchForQuery(ctx, query, filter)
	if err != nil {
		return nil, err
	}
	events = append(events, pending...)

	if len(events) == 0 {
		if state == nil {
			return nil, nil
		}
		return query.Reducer.From(state), nil
	}

	result := query.Reducer.Reduce(events, state)

	if s.snapshot == SnapshotAuto {
		last := events[len(events)-1]
		if err := s.adapter.Snapshots.Insert(ctx, query.Name, id, last.Created, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *Store) fetchForQuery(ctx context.Context, query ReduceQuery, filter adapter.GetOptions) ([]*record.EventRecord, error) {
	if query.Relation != "" {
		return s.GetEventsByRelations(ctx, []string{query.Relation}, filter)
	}
	return s.GetEventsByStreams(ctx, []string{query.Stream}, filter)
}

// CreateSnapshot folds every event for query's stream/relation (ignoring
// any existing snapshot cursor) and persists the result. A stream/relation
// with no events is a no-op.
func (s *Store) CreateSnapshot(ctx context.Context, query ReduceQuery) error {
	id := query.id()

	events, err := s.fetchForQuery(ctx, query, query.Filter)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	result := query.Reducer.Reduce(events, nil)
	last := events[len(events)-1]
	return s.adapter.Snapshots.Insert(ctx, query.Name, id, last.Created, result)
}
