package eventstore

import "github.com/codeready-toolchain/eventledger/pkg/record"

// SnapshotPolicy controls whether Reduce persists a snapshot after folding.
type SnapshotPolicy int

const (
	// SnapshotManual never writes a snapshot from Reduce; callers invoke
	// CreateSnapshot explicitly.
	SnapshotManual SnapshotPolicy = iota
	// SnapshotAuto persists a snapshot at the end of every Reduce call that
	// folds at least one event; a Reduce with no events writes nothing.
	SnapshotAuto
)

// EventsInsertSettings tunes a single push_event/push_many_events call.
type EventsInsertSettings struct {
	// Emit controls whether the insert hooks fire. nil (the zero value)
	// means true — hooks fire by default.
	Emit *bool
	// Batch labels the emitted hook call, e.g. for logging which logical
	// operation produced a batch.
	Batch string
	// Hydrated and Outdated are the replay-status hints forwarded to the
	// projector for every record in this call. A local, first-time append
	// leaves both false. A caller replaying or replicating foreign records
	// sets these from a prior GetEventStatus call.
	Hydrated bool
	Outdated bool
}

func (s *EventsInsertSettings) shouldEmit() bool {
	return s == nil || s.Emit == nil || *s.Emit
}

func (s *EventsInsertSettings) batchSize() int {
	return 0
}

// EmitFalse is a convenience value for EventsInsertSettings.Emit when a
// caller wants to suppress hooks.
func EmitFalse() *bool {
	f := false
	return &f
}

// Hooks are the store's insert-time side-channel callbacks. Both are
// optional; OnError defaults to logging via the store's logger.
type Hooks struct {
	// OnEventsInserted fires exactly once per successful insert/insert_many
	// call, with the full list of records that were written.
	OnEventsInserted func(records []*record.EventRecord, settings *EventsInsertSettings)
	// OnError receives any error raised by OnEventsInserted, or a
	// propagated (non-once) projector handler failure.
	OnError func(err error)
}
