// Package reducer implements the two reducer shapes the event store folds
// event streams through: plain fold reducers and aggregate-style reducers
// built around a With(record) method.
package reducer

import "github.com/codeready-toolchain/eventledger/pkg/record"

// Reducer folds an ordered list of records into a state, optionally seeded
// from a previously persisted snapshot. Name is the lookup key used for
// snapshot storage.
type Reducer interface {
	Name() string
	// From reconstructs the reducer's result type from a raw snapshot state
	// with no additional events applied. snapshot may be nil.
	From(snapshot any) any
	// Reduce folds events onto snapshot (or the reducer's own default/zero
	// state if snapshot is nil).
	Reduce(events []*record.EventRecord, snapshot any) any
}

// FoldFunc applies one event onto an accumulator state and returns the new
// state.
type FoldFunc func(state any, rec *record.EventRecord) any

// fold is the plain-fold reducer shape: reduce(events, snapshot) folds
// events onto snapshot ?? defaultState().
type fold struct {
	name         string
	defaultState func() any
	apply        FoldFunc
}

// NewFold builds a fold Reducer. defaultState supplies the zero state when
// no snapshot is present; apply folds one event at a time.
func NewFold(name string, defaultState func() any, apply FoldFunc) Reducer {
	return &fold{name: name, defaultState: defaultState, apply: apply}
}

func (f *fold) Name() string { return f.name }

func (f *fold) From(snapshot any) any {
	if snapshot == nil {
		return f.defaultState()
	}
	return snapshot
}

func (f *fold) Reduce(events []*record.EventRecord, snapshot any) any {
	state := f.From(snapshot)
	for _, rec := range events {
		state = f.apply(state, rec)
	}
	return state
}

// Applier is the capability an aggregate-style reducer's instances expose:
// mutate internal state from one record. Implementations are
// domain-specific; this is the "with(event)" hook from the aggregate root
// design applied at read time, decoupled from the write-side pending-event
// buffer in package aggregate.
type Applier interface {
	With(rec *record.EventRecord)
}

// NewInstanceFunc constructs a fresh Applier, optionally seeded from a
// persisted snapshot (nil if none).
type NewInstanceFunc func(snapshot any) Applier

// aggregateReducer is the aggregate-style reducer shape: reduce(events,
// snapshot) instantiates an aggregate (optionally seeded from snapshot) and
// folds events by calling With on each.
type aggregateReducer struct {
	name        string
	newInstance NewInstanceFunc
}

// NewAggregate builds an aggregate-style Reducer from a constructor.
func NewAggregate(name string, newInstance NewInstanceFunc) Reducer {
	return &aggregateReducer{name: name, newInstance: newInstance}
}

func (a *aggregateReducer) Name() string { return a.name }

func (a *aggregateReducer) From(snapshot any) any {
	return a.newInstance(snapshot)
}

func (a *aggregateReducer) Reduce(events []*record.EventRecord, snapshot any) any {
	instance := a.newInstance(snapshot)
	for _, rec := range events {
		instance.With(rec)
	}
	return instance
}
