package rwqueue

import (
	"runtime"
	"sync/atomic"
)

// spinlock is the auxiliary lock protecting the waiter queue, distinct from
// the packed state word. It is a plain test-and-set (CAS) spinlock with
// the same backoff discipline used throughout this package's adaptive
// spinning, grounded on the nsync package's spinTestAndSet/spinDelay pair:
// cheap busy-looping for a handful of iterations, then yielding the
// processor, because the critical sections it guards (a handful of pointer
// writes) are always short.
type spinlock struct {
	held uint32
}

func (s *spinlock) Lock() {
	var attempts uint
	for !atomic.CompareAndSwapUint32(&s.held, 0, 1) {
		attempts = backoff(attempts)
	}
}

func (s *spinlock) Unlock() {
	atomic.StoreUint32(&s.held, 0)
}

// backoff is used by the queue spinlock, the adaptive spin before
// enqueueing, and the spin-only (never-park) wait in block.go; block's
// bounded pre-park spin polls without it. It busy-loops for the first several attempts (avoiding a syscall
// when contention is expected to be brief) and then yields the processor.
func backoff(attempts uint) uint {
	if attempts < 7 {
		for i := 0; i != 1<<attempts; i++ {
		}
		return attempts + 1
	}
	runtime.Gosched()
	return attempts
}

// defaultSpinCount returns the spin budget used when a Mutex is constructed
// without an explicit WithSpinCount option. Per the design note, a
// single-processor host has nothing to gain from spinning: a spinning
// goroutine on a 1-CPU machine only prevents the lock holder (which must be
// some other goroutine waiting for its own turn on that single CPU) from
// running at all. On a multi-processor host a modest budget lets brief
// critical sections resolve without the cost of a queue-spinlock acquisition
// and a park/release round trip.
func defaultSpinCount() int {
	if runtime.NumCPU() <= 1 {
		return 0
	}
	return 4000
}
