package projector

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/eventledger/pkg/record"
)

func rec(stream, typ string) *record.EventRecord {
	return &record.EventRecord{ID: stream + "-" + typ, Stream: stream, Type: typ}
}

func TestPushDispatchesToMatchingTypeOnly(t *testing.T) {
	p := New(nil)
	var calls int32
	p.Subscribe("user:created", ModeOn, func(r *record.EventRecord) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}, nil)
	p.Subscribe("user:deleted", ModeOn, func(r *record.EventRecord) (any, error) {
		t.Fatal("wrong type handler invoked")
		return nil, nil
	}, nil)

	err := p.Push(rec("u1", "user:created"), Status{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPushFansOutAllListenersConcurrently(t *testing.T) {
	p := New(nil)
	release := make(chan struct{})
	var inFlight int32
	handler := func(r *record.EventRecord) (any, error) {
		atomic.AddInt32(&inFlight, 1)
		<-release
		return nil, nil
	}
	p.Subscribe("t", ModeOn, handler, nil)
	p.Subscribe("t", ModeOn, handler, nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(2), atomic.LoadInt32(&inFlight))
		close(release)
	}()

	err := p.Push(rec("s1", "t"), Status{})
	require.NoError(t, err)
}

func TestModeFiltering(t *testing.T) {
	p := New(nil)
	var onceCalls, onCalls, allCalls int32

	p.Subscribe("t", ModeOnce, func(r *record.EventRecord) (any, error) {
		atomic.AddInt32(&onceCalls, 1)
		return nil, nil
	}, &Effects{})
	p.Subscribe("t", ModeOn, func(r *record.EventRecord) (any, error) {
		atomic.AddInt32(&onCalls, 1)
		return nil, nil
	}, nil)
	p.Subscribe("t", ModeAll, func(r *record.EventRecord) (any, error) {
		atomic.AddInt32(&allCalls, 1)
		return nil, nil
	}, nil)

	require.NoError(t, p.Push(rec("s1", "t"), Status{Hydrated: true, Outdated: false}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&onceCalls), "once must reject hydrated")
	assert.Equal(t, int32(1), atomic.LoadInt32(&onCalls), "on accepts hydrated")
	assert.Equal(t, int32(1), atomic.LoadInt32(&allCalls))

	require.NoError(t, p.Push(rec("s1", "t"), Status{Outdated: true}))
	assert.Equal(t, int32(0), atomic.LoadInt32(&onceCalls), "once must reject outdated")
	assert.Equal(t, int32(1), atomic.LoadInt32(&onCalls), "on must reject outdated")
	assert.Equal(t, int32(2), atomic.LoadInt32(&allCalls), "all accepts everything")
}

func TestOnceModeRoutesSuccessAndErrorToEffects(t *testing.T) {
	p := New(nil)
	var successSeen, errSeen int32
	boom := errors.New("boom")

	p.Subscribe("ok", ModeOnce, func(r *record.EventRecord) (any, error) {
		return "result", nil
	}, &Effects{
		OnSuccess: func(result any, r *record.EventRecord) {
			assert.Equal(t, "result", result)
			atomic.AddInt32(&successSeen, 1)
		},
		OnError: func(err error, r *record.EventRecord) { t.Fatal("unexpected error effect") },
	})
	p.Subscribe("fail", ModeOnce, func(r *record.EventRecord) (any, error) {
		return nil, boom
	}, &Effects{
		OnSuccess: func(result any, r *record.EventRecord) { t.Fatal("unexpected success effect") },
		OnError: func(err error, r *record.EventRecord) {
			assert.Equal(t, boom, err)
			atomic.AddInt32(&errSeen, 1)
		},
	})

	require.NoError(t, p.Push(rec("s1", "ok"), Status{}))
	require.NoError(t, p.Push(rec("s2", "fail"), Status{}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&successSeen))
	assert.Equal(t, int32(1), atomic.LoadInt32(&errSeen))
}

func TestOnModeWithoutEffectsPropagatesError(t *testing.T) {
	p := New(nil)
	boom := errors.New("boom")
	p.Subscribe("t", ModeOn, func(r *record.EventRecord) (any, error) {
		return nil, boom
	}, nil)

	err := p.Push(rec("s1", "t"), Status{})
	assert.ErrorIs(t, err, boom)
}

func TestPerStreamFIFOOrdering(t *testing.T) {
	p := New(nil)
	var mu sync.Mutex
	var order []string
	started := make(chan string, 2)

	p.Subscribe("t", ModeOn, func(r *record.EventRecord) (any, error) {
		started <- r.ID
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, r.ID)
		mu.Unlock()
		return nil, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		r := &record.EventRecord{ID: "r" + string(rune('0'+i)), Stream: "s1", Type: "t"}
		wg.Add(1)
		go func(r *record.EventRecord) {
			defer wg.Done()
			require.NoError(t, p.Push(r, Status{}))
		}(r)
		// r0 is on the queue (its handler has begun) before r1 is pushed.
		<-started
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"r0", "r1"}, order)
}

func TestUnsubscribeStopsFutureDispatch(t *testing.T) {
	p := New(nil)
	var calls int32
	sub := p.Subscribe("t", ModeOn, func(r *record.EventRecord) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}, nil)

	require.NoError(t, p.Push(rec("s1", "t"), Status{}))
	sub.Unsubscribe()
	require.NoError(t, p.Push(rec("s1", "t"), Status{}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPushManyInvokesBatchHandlersWithFullList(t *testing.T) {
	p := New(nil)
	var gotLen int32
	var wg sync.WaitGroup
	wg.Add(1)
	p.SubscribeBatch("relation:sync", func(records []*record.EventRecord) {
		defer wg.Done()
		atomic.StoreInt32(&gotLen, int32(len(records)))
	})

	records := []*record.EventRecord{rec("p1", "post:created"), rec("p2", "post:created")}
	p.PushMany("relation:sync", records)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&gotLen))
}
