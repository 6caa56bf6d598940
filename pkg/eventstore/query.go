package eventstore

import (
	"github.com/codeready-toolchain/eventledger/pkg/adapter"
	"github.com/codeready-toolchain/eventledger/pkg/reducer"
)

// Status is the exists/outdated classification from GetEventStatus — the
// engine's replication primitive.
type Status struct {
	Exists   bool
	Outdated bool
}

// ReduceQuery selects what Reduce folds over: exactly one of Stream or
// Relation identifies the id, Reducer does the folding, and Filter narrows
// the underlying event read (cursor is always overridden by the resolved
// snapshot cursor, if any).
type ReduceQuery struct {
	Name     string
	Stream   string
	Relation string
	Reducer  reducer.Reducer
	Filter   adapter.GetOptions
}

func (q ReduceQuery) id() string {
	if q.Stream != "" {
		return q.Stream
	}
	return q.Relation
}
