// Package projector implements the in-process fan-out of persisted event
// records to typed subscribers, with per-stream FIFO delivery and
// replay-aware subscription modes.
package projector

import (
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/eventledger/pkg/record"
	"github.com/codeready-toolchain/eventledger/pkg/serialqueue"
)

// Mode controls which records a subscription accepts, based on replay
// status (Status.Hydrated, Status.Outdated).
type Mode int

const (
	// ModeOnce rejects both hydrated and outdated records — for side
	// effects that must never replay (sending an email, placing an order).
	ModeOnce Mode = iota
	// ModeOn rejects outdated records but accepts replayed ones — the
	// default read-model projector.
	ModeOn
	// ModeAll accepts everything.
	ModeAll
)

func (m Mode) accepts(status Status) bool {
	switch m {
	case ModeOnce:
		return !status.Hydrated && !status.Outdated
	case ModeOn:
		return !status.Outdated
	case ModeAll:
		return true
	default:
		return false
	}
}

// Status carries the replay classification of a record at dispatch time.
type Status struct {
	Hydrated bool
	Outdated bool
}

// Effects is the once-mode callback contract: exactly one of OnSuccess or
// OnError fires per dispatched record, and panics/errors from either are
// swallowed by the projector.
type Effects struct {
	OnSuccess func(result any, rec *record.EventRecord)
	OnError   func(err error, rec *record.EventRecord)
}

// Handler processes one record. A non-nil error on a mode-on/mode-all
// subscription without Effects propagates out of the per-stream queue slot.
type Handler func(rec *record.EventRecord) (any, error)

// BatchHandler processes a full batch of records with no per-stream
// serialization, used by PushMany.
type BatchHandler func(records []*record.EventRecord)

type subscription struct {
	id      int64
	typ     string
	mode    Mode
	handler Handler
	effects *Effects
}

// Subscription is an unsubscribe token returned by Subscribe.
type Subscription struct {
	id  int64
	typ string
	p   *Projector
}

// Unsubscribe removes the handler. In-flight invocations are not
// interrupted; this only prevents future dispatches from reaching it.
func (s Subscription) Unsubscribe() {
	s.p.unsubscribe(s.typ, s.id)
}

type batchSubscription struct {
	id      int64
	handler BatchHandler
}

// Projector dispatches records to subscribers. The zero value is not
// usable; construct with New.
type Projector struct {
	mu             sync.Mutex
	nextID         int64
	listeners      map[string][]subscription
	batchListeners map[string][]batchSubscription
	queues         *serialqueue.Keyed[string, dispatchJob]
	log            *slog.Logger
}

type dispatchJob struct {
	rec    *record.EventRecord
	status Status
}

// New creates an empty Projector. logger defaults to slog.Default() if nil.
func New(logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Projector{
		listeners:      make(map[string][]subscription),
		batchListeners: make(map[string][]batchSubscription),
		log:            logger,
	}
	p.queues = serialqueue.NewKeyed[string, dispatchJob](p.dispatch)
	return p
}

// Subscribe registers handler for records of typ under mode, with optional
// once-mode effects. It returns a token that unsubscribes on demand.
func (p *Projector) Subscribe(typ string, mode Mode, handler Handler, effects *Effects) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.listeners[typ] = append(p.listeners[typ], subscription{
		id:      id,
		typ:     typ,
		mode:    mode,
		handler: handler,
		effects: effects,
	})
	return Subscription{id: id, typ: typ, p: p}
}

// SubscribeBatch registers a handler invoked with the full records list
// whenever PushMany is called for batchKey. There is no replay filtering and
// no per-stream serialization for batch handlers.
func (p *Projector) SubscribeBatch(batchKey string, handler BatchHandler) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.batchListeners[batchKey] = append(p.batchListeners[batchKey], batchSubscription{id: id, handler: handler})
	return Subscription{id: id, typ: batchKey, p: p}
}

func (p *Projector) unsubscribe(typ string, id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs, ok := p.listeners[typ]; ok {
		p.listeners[typ] = removeSub(subs, id)
	}
	if subs, ok := p.batchListeners[typ]; ok {
		kept := make([]batchSubscription, 0, len(subs))
		for _, s := range subs {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		p.batchListeners[typ] = kept
	}
}

func removeSub(subs []subscription, id int64) []subscription {
	kept := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	return kept
}

func (p *Projector) subscribersFor(typ string) []subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.listeners[typ]
	out := make([]subscription, len(subs))
	copy(out, subs)
	return out
}

// Push enqueues rec on the queue for its stream, returning once every
// applicable listener for rec's type has completed, with the first
// non-effects error observed (if any). All listeners of the record's type run
// concurrently within the queue slot; the slot is treated as one unit of
// per-stream serialization.
func (p *Projector) Push(rec *record.EventRecord, status Status) error {
	done := make(chan error, 1)
	p.queues.Push(rec.Stream, dispatchJob{rec: rec, status: status},
		func() { done <- nil },
		func(err error) { done <- err },
	)
	return <-done
}

func (p *Projector) dispatch(job dispatchJob) error {
	subs := p.subscribersFor(job.rec.Type)

	var wg sync.WaitGroup
	errs := make(chan error, len(subs))

	for _, sub := range subs {
		if !sub.mode.accepts(job.status) {
			continue
		}
		wg.Add(1)
		go func(sub subscription) {
			defer wg.Done()
			p.invoke(sub, job.rec, errs)
		}(sub)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) invoke(sub subscription, rec *record.EventRecord, errs chan<- error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("projector handler panicked", "type", sub.typ, "panic", r)
			if sub.effects == nil {
				errs <- panicError{value: r}
			} else if sub.mode == ModeOnce {
				p.runEffect(sub.effects, nil, panicError{value: r}, rec)
			}
		}
	}()

	result, err := sub.handler(rec)

	if sub.mode == ModeOnce && sub.effects != nil {
		p.runEffect(sub.effects, result, err, rec)
		errs <- nil
		return
	}

	errs <- err
}

// runEffect calls the once-mode success/error callback, swallowing whatever
// it panics or returns (the spec's "exceptions from on_success/on_error
// themselves are swallowed").
func (p *Projector) runEffect(effects *Effects, result any, err error, rec *record.EventRecord) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("projector effect callback panicked", "panic", r)
		}
	}()

	if err != nil {
		if effects.OnError != nil {
			effects.OnError(err, rec)
		}
		return
	}
	if effects.OnSuccess != nil {
		effects.OnSuccess(result, rec)
	}
}

// PushMany invokes every batch handler registered for batchKey with the
// full records slice, in parallel, with no per-stream serialization.
func (p *Projector) PushMany(batchKey string, records []*record.EventRecord) {
	p.mu.Lock()
	subs := make([]batchSubscription, len(p.batchListeners[batchKey]))
	copy(subs, p.batchListeners[batchKey])
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub batchSubscription) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("projector batch handler panicked", "batchKey", batchKey, "panic", r)
				}
			}()
			sub.handler(records)
		}(sub)
	}
	wg.Wait()
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return "projector: handler panicked"
}
