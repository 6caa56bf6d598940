// Package memory implements an in-memory adapter.Adapter. It backs the
// event store's unit tests and is a reference implementation for the
// adapter contract: every operation is trivially correct, just not durable.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
	"github.com/codeready-toolchain/eventledger/pkg/record"
)

// data is the shared, mutex-guarded state behind all three providers. The
// providers are split into separate types (rather than one type
// implementing all three interfaces) because adapter.Events, .Relations and
// .Snapshots each declare their own Insert method with a different
// signature.
type data struct {
	mu sync.RWMutex

	events    []*record.EventRecord
	byID      map[string]*record.EventRecord
	relations map[string]map[string]struct{} // key -> set of streams
	snapshots map[string]*adapter.Snapshot    // "name\x00streamOrRelation" -> snapshot
}

// New creates an empty in-memory store and returns it wrapped as the three
// adapter providers it implements.
func New() *adapter.Adapter {
	d := &data{
		byID:      make(map[string]*record.EventRecord),
		relations: make(map[string]map[string]struct{}),
		snapshots: make(map[string]*adapter.Snapshot),
	}
	return &adapter.Adapter{
		Events:    &eventsStore{d: d},
		Relations: &relationsStore{d: d},
		Snapshots: &snapshotsStore{d: d},
	}
}

func snapshotKey(name, streamOrRelation string) string {
	return name + "\x00" + streamOrRelation
}

type eventsStore struct{ d *data }

// Insert implements adapter.Events.
func (s *eventsStore) Insert(ctx context.Context, rec *record.EventRecord) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, exists := s.d.byID[rec.ID]; exists {
		return fmt.Errorf("memory: record %s already exists", rec.ID)
	}
	s.insertLocked(rec)
	return nil
}

func (s *eventsStore) insertLocked(rec *record.EventRecord) {
	s.d.events = append(s.d.events, rec)
	s.d.byID[rec.ID] = rec
}

// InsertMany implements adapter.Events with all-or-nothing semantics.
func (s *eventsStore) InsertMany(ctx context.Context, records []*record.EventRecord, batchSize int) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, rec := range records {
		if _, exists := s.d.byID[rec.ID]; exists {
			return fmt.Errorf("memory: record %s already exists", rec.ID)
		}
	}
	for _, rec := range records {
		s.insertLocked(rec)
	}
	return nil
}

// Get implements adapter.Events.
func (s *eventsStore) Get(ctx context.Context, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	return filterAndSort(s.d.events, nil, opts), nil
}

// GetByStream implements adapter.Events.
func (s *eventsStore) GetByStream(ctx context.Context, stream string, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	return s.GetByStreams(ctx, []string{stream}, opts)
}

// GetByStreams implements adapter.Events.
func (s *eventsStore) GetByStreams(ctx context.Context, streams []string, opts adapter.GetOptions) ([]*record.EventRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	allowed := make(map[string]struct{}, len(streams))
	for _, st := range streams {
		allowed[st] = struct{}{}
	}
	return filterAndSort(s.d.events, allowed, opts), nil
}

// GetByID implements adapter.Events.
func (s *eventsStore) GetByID(ctx context.Context, id string) (*record.EventRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	return s.d.byID[id], nil
}

// CheckOutdated implements adapter.Events.
func (s *eventsStore) CheckOutdated(ctx context.Context, stream, typ, created string) (bool, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, rec := range s.d.events {
		if rec.Stream == stream && rec.Type == typ && rec.Created > created {
			return true, nil
		}
	}
	return false, nil
}

func filterAndSort(events []*record.EventRecord, allowedStreams map[string]struct{}, opts adapter.GetOptions) []*record.EventRecord {
	var allowedTypes map[string]struct{}
	if len(opts.Types) > 0 {
		allowedTypes = make(map[string]struct{}, len(opts.Types))
		for _, t := range opts.Types {
			allowedTypes[t] = struct{}{}
		}
	}

	out := make([]*record.EventRecord, 0, len(events))
	for _, rec := range events {
		if allowedStreams != nil {
			if _, ok := allowedStreams[rec.Stream]; !ok {
				continue
			}
		}
		if allowedTypes != nil {
			if _, ok := allowedTypes[rec.Type]; !ok {
				continue
			}
		}
		if opts.Cursor != "" {
			if opts.Direction == adapter.Descending {
				if rec.Created >= opts.Cursor {
					continue
				}
			} else if rec.Created <= opts.Cursor {
				continue
			}
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if opts.Direction == adapter.Descending {
			return out[i].Created > out[j].Created
		}
		return out[i].Created < out[j].Created
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

type relationsStore struct{ d *data }

// Handle implements adapter.Relations.
func (s *relationsStore) Handle(ctx context.Context, ops []adapter.RelationOp) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, op := range ops {
		switch op.Op {
		case adapter.RelationInsert:
			s.insertLocked(op.Key, op.Stream)
		case adapter.RelationRemove:
			s.removeLocked(op.Key, op.Stream)
		}
	}
	return nil
}

func (s *relationsStore) insertLocked(key, stream string) {
	streams, ok := s.d.relations[key]
	if !ok {
		streams = make(map[string]struct{})
		s.d.relations[key] = streams
	}
	streams[stream] = struct{}{}
}

func (s *relationsStore) removeLocked(key, stream string) {
	if streams, ok := s.d.relations[key]; ok {
		delete(streams, stream)
	}
}

// Insert implements adapter.Relations.
func (s *relationsStore) Insert(ctx context.Context, key, stream string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.insertLocked(key, stream)
	return nil
}

// InsertMany implements adapter.Relations.
func (s *relationsStore) InsertMany(ctx context.Context, pairs []adapter.RelationPair, batchSize int) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, p := range pairs {
		s.insertLocked(p.Key, p.Stream)
	}
	return nil
}

// GetByKey implements adapter.Relations.
func (s *relationsStore) GetByKey(ctx context.Context, key string) ([]string, error) {
	return s.GetByKeys(ctx, []string{key})
}

// GetByKeys implements adapter.Relations.
func (s *relationsStore) GetByKeys(ctx context.Context, keys []string) ([]string, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, key := range keys {
		for stream := range s.d.relations[key] {
			if _, ok := seen[stream]; ok {
				continue
			}
			seen[stream] = struct{}{}
			out = append(out, stream)
		}
	}
	return out, nil
}

// Remove implements adapter.Relations.
func (s *relationsStore) Remove(ctx context.Context, key, stream string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.removeLocked(key, stream)
	return nil
}

// RemoveMany implements adapter.Relations.
func (s *relationsStore) RemoveMany(ctx context.Context, pairs []adapter.RelationPair, batchSize int) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, p := range pairs {
		s.removeLocked(p.Key, p.Stream)
	}
	return nil
}

// RemoveByKeys implements adapter.Relations.
func (s *relationsStore) RemoveByKeys(ctx context.Context, keys []string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, key := range keys {
		delete(s.d.relations, key)
	}
	return nil
}

// RemoveByStreams implements adapter.Relations.
func (s *relationsStore) RemoveByStreams(ctx context.Context, streams []string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	remove := make(map[string]struct{}, len(streams))
	for _, st := range streams {
		remove[st] = struct{}{}
	}
	for _, streams := range s.d.relations {
		for st := range remove {
			delete(streams, st)
		}
	}
	return nil
}

type snapshotsStore struct{ d *data }

// Insert implements adapter.Snapshots.
func (s *snapshotsStore) Insert(ctx context.Context, name, streamOrRelation, cursor string, state any) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.snapshots[snapshotKey(name, streamOrRelation)] = &adapter.Snapshot{
		Name:             name,
		StreamOrRelation: streamOrRelation,
		Cursor:           cursor,
		State:            state,
	}
	return nil
}

// GetByStream implements adapter.Snapshots.
func (s *snapshotsStore) GetByStream(ctx context.Context, name, streamOrRelation string) (*adapter.Snapshot, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	return s.d.snapshots[snapshotKey(name, streamOrRelation)], nil
}

// Remove implements adapter.Snapshots.
func (s *snapshotsStore) Remove(ctx context.Context, name, streamOrRelation string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.snapshots, snapshotKey(name, streamOrRelation))
	return nil
}
