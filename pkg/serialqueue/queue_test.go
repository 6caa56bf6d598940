package serialqueue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesInFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int

	q := New(func(msg int) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, msg)
		mu.Unlock()
		return nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		q.Push(i, wg.Done, func(error) { wg.Done() })
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueueOnlyOneInFlightAtATime(t *testing.T) {
	var inFlight int32
	var maxObserved int32

	q := New(func(int) error {
		n := atomic.AddInt32(&inFlight, 1)
		if n > atomic.LoadInt32(&maxObserved) {
			atomic.StoreInt32(&maxObserved, n)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		q.Push(i, wg.Done, func(error) { wg.Done() })
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxObserved))
}

func TestQueueOnDrainedFiresOnceEmpty(t *testing.T) {
	drained := make(chan struct{})
	var drainedCount int32

	q := New(func(int) error { return nil }, func() {
		atomic.AddInt32(&drainedCount, 1)
		close(drained)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	q.Push(1, wg.Done, nil)
	wg.Wait()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("onDrained never fired")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&drainedCount))
}

func TestQueuePushAfterDrainReturnsFalse(t *testing.T) {
	drained := make(chan struct{})
	q := New(func(int) error { return nil }, func() { close(drained) })

	var wg sync.WaitGroup
	wg.Add(1)
	q.Push(1, wg.Done, nil)
	wg.Wait()
	<-drained

	ok := q.Push(2, nil, nil)
	assert.False(t, ok)
}

func TestQueueErrorRoutesToOnErr(t *testing.T) {
	boom := assert.AnError
	q := New(func(int) error { return boom }, nil)

	done := make(chan error, 1)
	q.Push(1, func() { done <- nil }, func(err error) { done <- err })

	select {
	case err := <-done:
		require.Equal(t, boom, err)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestQueueFlushDropsUnstartedMessages(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)

	q := New(func(int) error {
		started <- struct{}{}
		<-block
		return nil
	}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	q.Push(1, wg.Done, nil) // occupies the consumer
	<-started

	q.Push(2, nil, nil)
	q.Push(3, nil, nil)

	dropped := q.Flush(nil)
	assert.Equal(t, 2, dropped)

	close(block)
	wg.Wait()
}

func TestQueueFlushWithPredicateDropsSelectively(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)

	q := New(func(int) error {
		started <- struct{}{}
		<-block
		return nil
	}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	q.Push(1, wg.Done, nil)
	<-started

	q.Push(2, nil, nil)
	q.Push(4, nil, nil)
	q.Push(5, nil, nil)

	dropped := q.Flush(func(msg int) bool { return msg%2 == 0 })
	assert.Equal(t, 2, dropped)

	close(block)
	wg.Wait()
}
