// Package aggregate implements the aggregate root pattern: a domain object
// pairing a pending-event buffer with commit helpers, built on top of an
// event store the aggregate holds a non-owning handle to.
package aggregate

import (
	"context"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/eventledger/pkg/eventstore"
	"github.com/codeready-toolchain/eventledger/pkg/record"
)

// Applier mutates an aggregate's in-memory state from one record. Concrete
// aggregates implement this; Root provides everything else (pending
// buffer, push, save, flush).
type Applier interface {
	With(rec *record.EventRecord)
}

// Store is the subset of *eventstore.Store an aggregate needs. Declaring it
// here (rather than depending on the concrete type) keeps Root usable
// against any store-shaped collaborator, including test doubles.
type Store interface {
	MakeEvent(typ string, payload record.Payload) (*record.EventRecord, error)
	PushManyEvents(ctx context.Context, records []*record.EventRecord, settings *eventstore.EventsInsertSettings) error
	CreateSnapshot(ctx context.Context, query eventstore.ReduceQuery) error
}

// Root is the reusable mixin from the spec's "abstract base class
// aggregate" pattern: an id, a pending-event buffer, and save/flush/push
// helpers. Embed it in a concrete aggregate type and provide With via the
// Applier capability.
type Root struct {
	id      string
	store   Store
	applier Applier
	pending []*record.EventRecord
}

// NewRoot creates a Root bound to store, applying records to applier as
// they're pushed. id defaults to a fresh UUID when empty — the usual case
// for a brand-new aggregate instance.
func NewRoot(store Store, applier Applier, id string) *Root {
	if id == "" {
		id = uuid.NewString()
	}
	return &Root{id: id, store: store, applier: applier}
}

// ID returns the aggregate's stream identifier.
func (r *Root) ID() string {
	return r.id
}

// Push produces a record for typ via the store's catalog, appends it to the
// pending buffer, applies it to the aggregate's state, and returns the
// aggregate for chaining. A validation or unknown-type failure is returned
// without mutating pending state.
func (r *Root) Push(typ string, data, meta any) (*Root, error) {
	rec, err := r.store.MakeEvent(typ, record.Payload{Stream: r.id, Data: data, Meta: meta})
	if err != nil {
		return r, err
	}
	r.pending = append(r.pending, rec)
	r.applier.With(rec)
	return r, nil
}

// IsDirty reports whether there are uncommitted pending events.
func (r *Root) IsDirty() bool {
	return len(r.pending) > 0
}

// ToPending returns the pending buffer. Callers that batch multiple
// aggregates into one commit (eventstore.PushManyAggregates) use this to
// collect records without forcing an individual save per aggregate.
func (r *Root) ToPending() []*record.EventRecord {
	return r.pending
}

// Flush clears the pending buffer without writing anything — used after an
// external batch commit already persisted these records.
func (r *Root) Flush() {
	r.pending = nil
}

// Save writes the pending buffer via PushManyEvents and, unless flush is
// false, clears it on success. A clean aggregate is a no-op.
func (r *Root) Save(ctx context.Context, settings *eventstore.EventsInsertSettings, flush bool) error {
	if !r.IsDirty() {
		return nil
	}
	if err := r.store.PushManyEvents(ctx, r.pending, settings); err != nil {
		return err
	}
	if flush {
		r.Flush()
	}
	return nil
}

// Snapshot saves any pending events, then instructs the store to persist a
// fresh snapshot for this aggregate's stream under query. Callers typically
// set query.Stream to r.ID() and query.Reducer to the aggregate-style
// reducer.Reducer matching this aggregate type.
func (r *Root) Snapshot(ctx context.Context, query eventstore.ReduceQuery, settings *eventstore.EventsInsertSettings) error {
	if err := r.Save(ctx, settings, true); err != nil {
		return err
	}
	return r.store.CreateSnapshot(ctx, query)
}
