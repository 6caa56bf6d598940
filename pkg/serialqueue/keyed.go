package serialqueue

import "sync"

// Keyed manages one Queue per key, creating instances lazily on first push
// and dropping them once drained. K must be comparable (streams and
// relation keys are strings in practice, but the type is generic so the
// projector can key by anything hashable).
type Keyed[K comparable, T any] struct {
	mu     sync.Mutex
	queues map[K]*Queue[T]
	work   func(T) error
}

// NewKeyed creates a Keyed manager whose per-key queues all run work.
func NewKeyed[K comparable, T any](work func(T) error) *Keyed[K, T] {
	return &Keyed[K, T]{queues: make(map[K]*Queue[T]), work: work}
}

// Push enqueues msg on the queue for key, creating it if necessary.
func (k *Keyed[K, T]) Push(key K, msg T, onOK func(), onErr func(error)) {
	for {
		k.mu.Lock()
		q, ok := k.queues[key]
		if !ok {
			q = New(k.work, func() { k.drop(key, q) })
			k.queues[key] = q
		}
		k.mu.Unlock()

		if q.Push(msg, onOK, onErr) {
			return
		}
		// q drained between lookup and push; drop the stale entry and retry
		// with a fresh queue.
		k.drop(key, q)
	}
}

func (k *Keyed[K, T]) drop(key K, stale *Queue[T]) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.queues[key] == stale {
		delete(k.queues, key)
	}
}

// Flush drops queued-but-unstarted messages for key, if a queue exists for
// it. It is a no-op if key has no active queue.
func (k *Keyed[K, T]) Flush(key K, predicate func(T) bool) int {
	k.mu.Lock()
	q, ok := k.queues[key]
	k.mu.Unlock()
	if !ok {
		return 0
	}
	return q.Flush(predicate)
}

// Len returns the number of currently active (non-drained) per-key queues.
func (k *Keyed[K, T]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.queues)
}
