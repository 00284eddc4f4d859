package connection

import (
	"context"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var poolLogger = logger.GetLogger("ipc/pool")

// --------------------------------------------------------------------------
// Connection Pool
// --------------------------------------------------------------------------

// Pool bounds and tracks the set of concurrently active sessions. Admission
// is checked and reserved before a session is created, never after, so no
// two admissions can both claim the last free slot.
type Pool struct {
	sessions *xsync.MapOf[uint64, context.CancelFunc]
	slots    chan struct{} // counting semaphore, nil = unbounded
	capacity int
}

// NewPool creates a pool with the given capacity (0 = unbounded)
func NewPool(capacity int) *Pool {
	p := &Pool{
		sessions: xsync.NewMapOf[uint64, context.CancelFunc](),
		capacity: capacity,
	}
	if capacity > 0 {
		p.slots = make(chan struct{}, capacity)
	}
	return p
}

// Admit atomically reserves a session slot. It returns false without side
// effects when the pool is at capacity. Every successful Admit must be paired
// with Register and eventually Deregister, which releases the slot.
func (p *Pool) Admit() bool {
	if p.slots == nil {
		return true
	}
	select {
	case p.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Register tracks a running session under its handle together with the
// cancellation function of its task.
func (p *Pool) Register(handle uint64, cancel context.CancelFunc) {
	p.sessions.Store(handle, cancel)
}

// Deregister untracks a session and releases its slot. It is idempotent:
// calling it again for the same handle is a no-op, so completion callbacks
// and shutdown paths may both invoke it.
func (p *Pool) Deregister(handle uint64) {
	if _, loaded := p.sessions.LoadAndDelete(handle); !loaded {
		return
	}
	if p.slots != nil {
		<-p.slots
	}
}

// CancelAll requests cancellation of every tracked session. It returns once
// cancellation has been requested for all of them; completion is observed
// via Deregister.
func (p *Pool) CancelAll() {
	n := 0
	p.sessions.Range(func(handle uint64, cancel context.CancelFunc) bool {
		cancel()
		n++
		return true
	})
	if n > 0 {
		poolLogger.Infof("Requested cancellation of %d active sessions", n)
	}
}

// Size returns the number of tracked sessions
func (p *Pool) Size() int {
	return p.sessions.Size()
}

// IsFull reports whether the pool is at capacity
func (p *Pool) IsFull() bool {
	return p.slots != nil && len(p.slots) == p.capacity
}

// Capacity returns the configured maximum (0 = unbounded)
func (p *Pool) Capacity() int {
	return p.capacity
}
