// Package catalog implements the event type registry: a mapping from type
// names to schema-validated event definitions, used by the record factory
// and event store to reject malformed payloads before they reach a ledger.
package catalog

import (
	"fmt"
	"strings"
	"sync"
)

// EventType is an immutable event definition: a unique type name plus
// optional validators for its data and meta payloads. A nil schema means the
// corresponding payload must be nil too.
type EventType struct {
	Type       string
	DataSchema Schema
	MetaSchema Schema
}

// ValidationError reports that a record failed catalog validation. Issues is
// already rendered (leading marker, sorted by path depth) and ready to show
// a caller.
type ValidationError struct {
	RecordID string
	Issues   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: record %s failed validation: %s", e.RecordID, strings.Join(e.Issues, "; "))
}

// Validate checks a record against this event type. It does not look the
// type up in a catalog — callers that only have a type name should go
// through Catalog.Validate instead.
func (et EventType) Validate(recordID, recordType string, data, meta any) error {
	var issues []Issue

	if recordType != et.Type {
		issues = append(issues, Issue{Message: fmt.Sprintf("record does not belong to type %q", et.Type)})
	}

	if data != nil {
		if et.DataSchema == nil {
			issues = append(issues, Issue{Path: []string{"data"}, Message: "no schema defined for this type"})
		} else {
			issues = append(issues, prefixIssues("data", et.DataSchema.Validate(data))...)
		}
	}

	if meta != nil {
		if et.MetaSchema == nil {
			issues = append(issues, Issue{Path: []string{"meta"}, Message: "no schema defined for this type"})
		} else {
			issues = append(issues, prefixIssues("meta", et.MetaSchema.Validate(meta))...)
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{RecordID: recordID, Issues: RenderIssues(issues)}
}

func prefixIssues(prefix string, issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	for i, iss := range issues {
		path := make([]string, 0, len(iss.Path)+1)
		path = append(path, prefix)
		path = append(path, iss.Path...)
		out[i] = Issue{Path: path, Message: iss.Message}
	}
	return out
}

// ErrUnknownType is returned by Catalog.Validate (and wrapped by callers
// that need a MissingEvent classification) when a type name has no
// registered EventType.
type ErrUnknownType struct {
	Type string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("catalog: unknown event type %q", e.Type)
}

// Catalog is a thread-safe registry of EventTypes.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]EventType
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{types: make(map[string]EventType)}
}

// Register adds (or replaces) an EventType. Registration happens at startup
// in the intended usage; the catalog does not forbid re-registration, since
// tests commonly rebuild a catalog type by type.
func (c *Catalog) Register(et EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[et.Type] = et
}

// Get returns the EventType registered under name, if any.
func (c *Catalog) Get(name string) (EventType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	et, ok := c.types[name]
	return et, ok
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.types[name]
	return ok
}

// Len returns the number of registered event types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

// Validate looks up a record's type and validates its data/meta payloads
// against the registered schemas. recordID is carried through purely for
// ValidationError's message; it is not itself validated.
func (c *Catalog) Validate(recordID, recordType string, data, meta any) error {
	et, ok := c.Get(recordType)
	if !ok {
		return &ErrUnknownType{Type: recordType}
	}
	return et.Validate(recordID, recordType, data, meta)
}
