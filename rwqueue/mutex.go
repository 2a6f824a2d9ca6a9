package rwqueue

import (
	"fmt"
	"sync/atomic"

	"github.com/nbtaylor-labs/rwqueue/rwqueue/park"
)

// Mutex is a fair, FIFO reader-writer lock. The zero value is not usable;
// construct one with New.
type Mutex struct {
	// Cumulative, monotonically increasing counters observed by packages
	// like rwstats from the outside. Maintained with plain atomic ops so
	// reading them never contends with the queue spinlock or the state
	// word's CAS loop. Kept first in the struct so the 64-bit atomic ops
	// on them stay 8-byte aligned on 32-bit platforms, per the sync/atomic
	// package's alignment requirement.
	spinsConsumed  uint64
	parksIssued    uint64
	wakeBatchTotal uint64
	wakeCount      uint64

	state     uint32
	spinCount int
	q         *waiterQueue
	parker    *park.Table

	// onEvent, when non-nil, is invoked for every internally significant
	// transition (enqueue, park, unpark, wake). It exists only so tests can
	// observe the protocol deterministically; production callers never set
	// it. See rwqueue_fuzz_test.go.
	onEvent func(event string, w *waitBlock)
}

// SpinsConsumed returns the cumulative number of busy-wait iterations spent
// across every acquire call on this Mutex, whether spent retrying the fast
// path before enqueueing or spent inside block's bounded pre-park spin.
func (m *Mutex) SpinsConsumed() uint64 {
	return atomic.LoadUint64(&m.spinsConsumed)
}

// ParksIssued returns the cumulative number of times a waiter actually
// parked (via the futex fast path or the package's own keyed-event table)
// rather than having its wait block cleared before the spin budget ran out.
func (m *Mutex) ParksIssued() uint64 {
	return atomic.LoadUint64(&m.parksIssued)
}

// WakeBatchTotal returns the cumulative number of waiters granted ownership
// across every hand-off this Mutex has performed (wake and
// wakeSharedForConvert); dividing by WakeCount gives the mean batch size.
func (m *Mutex) WakeBatchTotal() uint64 {
	return atomic.LoadUint64(&m.wakeBatchTotal)
}

// WakeCount returns the cumulative number of hand-offs (wake or
// wakeSharedForConvert calls) this Mutex has performed.
func (m *Mutex) WakeCount() uint64 {
	return atomic.LoadUint64(&m.wakeCount)
}

// QueueDepth returns the number of waiters currently enqueued. It walks the
// waiter queue under its spinlock, so it is meant for periodic sampling (as
// rwstats does), not for use on any hot path.
func (m *Mutex) QueueDepth() int {
	m.q.mu.Lock()
	defer m.q.mu.Unlock()
	n := 0
	for cur := m.q.sentinel.flink; cur != &m.q.sentinel; cur = cur.flink {
		n++
	}
	return n
}

// Option configures a Mutex at construction time.
type Option func(*Mutex)

// WithSpinCount overrides the default adaptive spin budget (spec §4.5). A
// count of 0 disables spinning entirely, causing every contended acquire to
// enqueue immediately.
func WithSpinCount(n int) Option {
	return func(m *Mutex) {
		if n < 0 {
			n = 0
		}
		m.spinCount = n
	}
}

// New returns a ready-to-use Mutex.
func New(opts ...Option) *Mutex {
	m := &Mutex{
		q:         newWaiterQueue(),
		parker:    park.NewTable(),
		spinCount: defaultSpinCount(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Owned reports whether the lock is currently held, exclusively or shared.
func (m *Mutex) Owned() bool {
	return isOwned(m.loadState())
}

// SharedOwners returns the number of current shared owners. It is zero
// whenever the lock is free or held exclusively.
func (m *Mutex) SharedOwners() int {
	return int(sharedCount(m.loadState()))
}

// Close tears down the Mutex. It panics if the lock is held or if any
// waiter is enqueued, matching the spec's "illegal to destroy while held or
// waited on" contract: there is no safe way to honor a destroy request with
// active owners or waiters, and papering over it with a silent no-op would
// hide a real caller bug.
func (m *Mutex) Close() error {
	if isOwned(m.loadState()) {
		panic("rwqueue: Close called while Mutex is held")
	}
	m.q.mu.Lock()
	empty := m.q.isEmpty()
	m.q.mu.Unlock()
	if !empty {
		panic("rwqueue: Close called with waiters enqueued")
	}
	return nil
}

func (m *Mutex) String() string {
	s := m.loadState()
	return fmt.Sprintf("rwqueue.Mutex{owned=%v waiters=%v sharedOwners=%d}", isOwned(s), hasWaiters(s), sharedCount(s))
}
