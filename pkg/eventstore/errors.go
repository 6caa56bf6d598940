package eventstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for event store operations.
var (
	// ErrEmptyBatch indicates PushManyEvents was called with nothing to
	// write. PushAggregate and PushManyAggregates treat an empty pending set
	// as a no-op instead.
	ErrEmptyBatch = errors.New("eventstore: empty batch")
)

// MissingEventError indicates a push/make call referenced a type the
// catalog has no EventType for.
type MissingEventError struct {
	Type string
}

func (e *MissingEventError) Error() string {
	return fmt.Sprintf("eventstore: unknown event type %q", e.Type)
}

// InsertionError wraps an adapter write failure.
type InsertionError struct {
	Message string
	Err     error
}

func (e *InsertionError) Error() string {
	return fmt.Sprintf("eventstore: insertion failed: %s: %v", e.Message, e.Err)
}

func (e *InsertionError) Unwrap() error {
	return e.Err
}

// NewInsertionError wraps err as an InsertionError with a static message.
func NewInsertionError(message string, err error) *InsertionError {
	return &InsertionError{Message: message, Err: err}
}
