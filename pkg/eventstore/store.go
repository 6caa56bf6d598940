// Package eventstore implements the top-level orchestrator: validation,
// persistence, status probing, relation reads, snapshot-accelerated
// reduction, and projector fan-out, composed over a catalog, an adapter and
// a clock.
package eventstore

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
	"github.com/codeready-toolchain/eventledger/pkg/catalog"
	"github.com/codeready-toolchain/eventledger/pkg/projector"
	"github.com/codeready-toolchain/eventledger/pkg/record"
)

// Store composes the pieces the spec calls out: a catalog for validation, a
// record factory for HLC-stamped construction, an adapter for persistence,
// a projector for fan-out, and a snapshot policy.
type Store struct {
	catalog  *catalog.Catalog
	factory  *record.Factory
	adapter  *adapter.Adapter
	proj     *projector.Projector
	hooks    Hooks
	snapshot SnapshotPolicy
	log      *slog.Logger
}

// Config wires a Store's dependencies. Catalog, Factory, Adapter and
// Projector are required; Hooks, SnapshotPolicy and Logger are optional.
type Config struct {
	Catalog        *catalog.Catalog
	Factory        *record.Factory
	Adapter        *adapter.Adapter
	Projector      *projector.Projector
	Hooks          Hooks
	SnapshotPolicy SnapshotPolicy
	Logger         *slog.Logger
}

// New builds a Store from cfg.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		catalog:  cfg.Catalog,
		factory:  cfg.Factory,
		adapter:  cfg.Adapter,
		proj:     cfg.Projector,
		hooks:    cfg.Hooks,
		snapshot: cfg.SnapshotPolicy,
		log:      logger,
	}
}

// Projector returns the store's projector, so callers can Subscribe before
// pushing events.
func (s *Store) Projector() *projector.Projector {
	return s.proj
}

// MakeEvent builds a new record for typ via the store's factory, after
// confirming the type is registered.
func (s *Store) MakeEvent(typ string, payload record.Payload) (*record.EventRecord, error) {
	if !s.catalog.Has(typ) {
		return nil, &MissingEventError{Type: typ}
	}
	return s.factory.MakeRecord(typ, payload)
}

// PushEvent validates rec, inserts it, and (unless settings.Emit is false)
// fires the insert hook. Hook failures are absorbed and routed to
// hooks.OnError; they never fail the insert, which has already committed.
func (s *Store) PushEvent(ctx context.Context, rec *record.EventRecord, settings *EventsInsertSettings) error {
	if !s.catalog.Has(rec.Type) {
		return &MissingEventError{Type: rec.Type}
	}
	if err := s.catalog.Validate(rec.ID, rec.Type, rec.Data, rec.Meta); err != nil {
		return err
	}
	if err := s.adapter.Events.Insert(ctx, rec); err != nil {
		return NewInsertionError("insert", err)
	}

	if settings.shouldEmit() {
		s.emit(ctx, []*record.EventRecord{rec}, settings)
	}
	return nil
}

// PushManyEvents validates every record first, then inserts the whole batch
// atomically. On success the full batch is emitted exactly once.
func (s *Store) PushManyEvents(ctx context.Context, records []*record.EventRecord, settings *EventsInsertSettings) error {
	if len(records) == 0 {
		return ErrEmptyBatch
	}

	for _, rec := range records {
		if !s.catalog.Has(rec.Type) {
			return &MissingEventError{Type: rec.Type}
		}
		if err := s.catalog.Validate(rec.ID, rec.Type, rec.Data, rec.Meta); err != nil {
			return err
		}
	}

	batchSize := 0
	if settings != nil {
		batchSize = settings.batchSize()
	}
	if err := s.adapter.Events.InsertMany(ctx, records, batchSize); err != nil {
		return NewInsertionError("insert_many", err)
	}

	if settings.shouldEmit() {
		s.emit(ctx, records, settings)
	}
	return nil
}

// emit routes a successful insert to the caller-supplied hook, or the
// default behavior of fanning every record out to the projector. Panics and
// errors from either path are absorbed and routed to hooks.OnError.
func (s *Store) emit(ctx context.Context, records []*record.EventRecord, settings *EventsInsertSettings) {
	defer func() {
		if r := recover(); r != nil {
			s.reportError(errorFromPanic(r))
		}
	}()

	if s.hooks.OnEventsInserted != nil {
		s.hooks.OnEventsInserted(records, settings)
		return
	}

	status := projector.Status{}
	if settings != nil {
		status.Hydrated = settings.Hydrated
		status.Outdated = settings.Outdated
	}
	for _, rec := range records {
		if err := s.proj.Push(rec, status); err != nil {
			s.reportError(err)
		}
	}
}

func (s *Store) reportError(err error) {
	if s.hooks.OnError != nil {
		s.hooks.OnError(err)
		return
	}
	s.log.Error("eventstore: absorbed error", "error", err)
}

type panicErr struct{ value any }

func (e panicErr) Error() string { return "eventstore: hook panicked" }

func errorFromPanic(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return panicErr{value: r}
}

// GetEventStatus classifies rec against the ledger: Exists is true if a
// record with the same id is already stored (in which case Outdated is
// forced true, a sentinel meaning "already seen"). Otherwise Outdated
// reflects whether a newer record with the same (stream, type) exists.
func (s *Store) GetEventStatus(ctx context.Context, rec *record.EventRecord) (Status, error) {
	existing, err := s.adapter.Events.GetByID(ctx, rec.ID)
	if err != nil {
		return Status{}, err
	}
	if existing != nil {
		return Status{Exists: true, Outdated: true}, nil
	}

	outdated, err := s.adapter.Events.CheckOutdated(ctx, rec.Stream, rec.Type, rec.Created)
	if err != nil {
		return Status{}, err
	}
	return Status{Exists: false, Outdated: outdated}, nil
}

// GetEvents passes through to the adapter.
func (s *Store) GetEvents(ctx context.Context, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	return s.adapter.Events.Get(ctx, opts)
}

// GetEventsByStreams passes through to the adapter.
func (s *Store) GetEventsByStreams(ctx context.Context, streams []string, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	return s.adapter.Events.GetByStreams(ctx, streams, opts)
}

// GetEventsByRelations resolves keys to streams via the relations provider,
// then reads by stream. An empty resolved stream set returns an empty
// result without querying events at all.
func (s *Store) GetEventsByRelations(ctx context.Context, keys []string, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	streams, err := s.adapter.Relations.GetByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return s.GetEventsByStreams(ctx, streams, opts)
}

// GetSnapshot passes through to the adapter.
func (s *Store) GetSnapshot(ctx context.Context, name, streamOrRelation string) (*adapter.Snapshot, error) {
	return s.adapter.Snapshots.GetByStream(ctx, name, streamOrRelation)
}

// DeleteSnapshot passes through to the adapter.
func (s *Store) DeleteSnapshot(ctx context.Context, name, streamOrRelation string) error {
	return s.adapter.Snapshots.Remove(ctx, name, streamOrRelation)
}
