package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// TestPoolAdmitCapacity tests that concurrent admission attempts never
// overshoot the configured capacity
func TestPoolAdmitCapacity(t *testing.T) {
	const capacity = 8
	const attempts = capacity + 1

	pool := NewPool(capacity)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(handle uint64) {
			defer wg.Done()
			if pool.Admit() {
				admitted.Add(1)
				pool.Register(handle, func() {})
			}
		}(uint64(i))
	}
	wg.Wait()

	if got := admitted.Load(); got != capacity {
		t.Errorf("admitted %d sessions, want %d", got, capacity)
	}
	if pool.Size() != capacity {
		t.Errorf("pool size is %d, want %d", pool.Size(), capacity)
	}
	if !pool.IsFull() {
		t.Error("pool should report full at capacity")
	}

	// Releasing one slot makes exactly one new admission possible
	pool.Deregister(0)
	if pool.IsFull() {
		t.Error("pool should not be full after deregister")
	}
	if !pool.Admit() {
		t.Error("admission should succeed after a slot was released")
	}
	if pool.Admit() {
		t.Error("admission should fail once the slot is claimed again")
	}
}

// TestPoolDeregisterIdempotent tests that completion callbacks and shutdown
// paths may both deregister the same session without corrupting the slot count
func TestPoolDeregisterIdempotent(t *testing.T) {
	pool := NewPool(1)

	if !pool.Admit() {
		t.Fatal("first admission should succeed")
	}
	pool.Register(42, func() {})

	pool.Deregister(42)
	pool.Deregister(42)
	pool.Deregister(42)

	if pool.Size() != 0 {
		t.Errorf("pool size is %d, want 0", pool.Size())
	}

	// A double release would have drained a slot that was never reserved;
	// the next Admit would then block or the one after succeed spuriously.
	if !pool.Admit() {
		t.Fatal("admission should succeed on an empty pool")
	}
	if pool.Admit() {
		t.Error("second admission should fail with capacity 1")
	}
}

// TestPoolCancelAll tests that cancellation is requested for every tracked
// session exactly once
func TestPoolCancelAll(t *testing.T) {
	pool := NewPool(0)

	const sessions = 5
	ctxs := make([]context.Context, sessions)
	for i := 0; i < sessions; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ctxs[i] = ctx
		pool.Register(uint64(i), cancel)
	}

	pool.CancelAll()

	for i, ctx := range ctxs {
		if ctx.Err() == nil {
			t.Errorf("session %d was not cancelled", i)
		}
	}

	// CancelAll only requests cancellation; the sessions stay tracked until
	// their tasks complete and deregister themselves.
	if pool.Size() != sessions {
		t.Errorf("pool size is %d, want %d", pool.Size(), sessions)
	}
	for i := 0; i < sessions; i++ {
		pool.Deregister(uint64(i))
	}
	if pool.Size() != 0 {
		t.Errorf("pool size is %d after deregistering all, want 0", pool.Size())
	}
}

// TestPoolUnbounded tests that a pool without a capacity limit admits freely
func TestPoolUnbounded(t *testing.T) {
	pool := NewPool(0)

	for i := 0; i < 100; i++ {
		if !pool.Admit() {
			t.Fatalf("admission %d failed on unbounded pool", i)
		}
	}
	if pool.IsFull() {
		t.Error("unbounded pool should never report full")
	}
	if pool.Capacity() != 0 {
		t.Errorf("capacity is %d, want 0", pool.Capacity())
	}
}
