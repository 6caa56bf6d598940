package eventstore

import (
	"context"

	"github.com/codeready-toolchain/eventledger/pkg/record"
)

// Aggregator is the minimal capability the store needs from an aggregate
// root to commit it: its buffered pending events, and a way to clear that
// buffer after a successful write. package aggregate's Root satisfies this
// structurally — the store never imports that package, avoiding the cyclic
// reference a directly-typed dependency would create.
type Aggregator interface {
	ToPending() []*record.EventRecord
	Flush()
}

// PushAggregate commits one aggregate's pending events as a single batch
// and flushes it on success. A clean aggregate (no pending events) is a
// no-op.
func (s *Store) PushAggregate(ctx context.Context, agg Aggregator, settings *EventsInsertSettings) error {
	pending := agg.ToPending()
	if len(pending) == 0 {
		return nil
	}
	if err := s.PushManyEvents(ctx, pending, settings); err != nil {
		return err
	}
	agg.Flush()
	return nil
}

// PushManyAggregates commits every aggregate's pending events as one
// combined batch — a single insert, a single emitted hook call — and
// flushes every aggregate on success. Clean aggregates contribute nothing
// but are still flushed (a no-op for them).
func (s *Store) PushManyAggregates(ctx context.Context, aggs []Aggregator, settings *EventsInsertSettings) error {
	var pending []*record.EventRecord
	for _, agg := range aggs {
		pending = append(pending, agg.ToPending()...)
	}
	if len(pending) == 0 {
		return nil
	}
	if err := s.PushManyEvents(ctx, pending, settings); err != nil {
		return err
	}
	for _, agg := range aggs {
		agg.Flush()
	}
	return nil
}
