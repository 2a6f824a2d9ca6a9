package rwqueue

import (
	"sync/atomic"
	"unsafe"

	"github.com/nbtaylor-labs/rwqueue/rwqueue/park"
)

// block waits for w to be woken. If sleep is false (the spin-acquire
// variants), it never parks: it busy-waits on w.flags until some other
// goroutine clears waitSpinning, consuming CPU instead of sleeping but still
// honoring the wait block's place in the FIFO queue.
//
// If sleep is true, block first spins for up to m.spinCount iterations (the
// same budget reused for the pre-enqueue spin in acquireExclusive and
// acquireShared, per spec
// §4.5) observing w.flags, and only parks if the spin budget is exhausted
// without anyone having woken it.
//
// Resolving the park/release race (spec §9's open question):
//
// Both block and unblock perform the same operation on the same bit:
// atomically fetch-and-clear waitSpinning, learning whether they were the
// one to actually flip it from 1 to 0 (the other side's attempt, whichever
// runs second, is a no-op that observes the bit already clear). Exactly one
// side "wins" (observes wasSpinning=true) and exactly one side "loses"
// (observes wasSpinning=false):
//
//   - If block wins (it performed the 1->0 transition), unblock has not run
//     yet. Block must actually call park(), because unblock — whenever it
//     does run — will perform its own fetch-and-clear, observe the bit
//     already 0 (it lost the race), and from that fact alone know it must
//     call release() to wake the now-sleeping waiter.
//   - If block loses (it finds the bit already 0), unblock got there first:
//     the waiter is already logically woken and must not park, because
//     unblock's own fetch-and-clear, having won, will NOT call release() —
//     there is no sleeper yet for it to release.
//
// This guarantees exactly one park() is ever paired with exactly one
// release() (or neither call happens at all), which is the invariant the
// spec's §4.4 calls "the central correctness protocol." Note this is the
// same polarity the spec's open question attributes to the original driver
// source (park iff the bit was still set when cleared) — derived here
// independently from the rendezvous argument above, not transcribed.
func (m *Mutex) block(w *waitBlock, sleep bool) {
	if !sleep {
		// Spin-only mode: never park, just keep observing the flag forever.
		for i := uint(0); ; i++ {
			if !w.isSpinning() {
				m.event("spin-wake", w)
				return
			}
			atomic.AddUint64(&m.spinsConsumed, 1)
			backoff(i % 8)
		}
	}

	for i := 0; i < m.spinCount; i++ {
		if !w.isSpinning() {
			m.event("spin-wake", w)
			return
		}
		atomic.AddUint64(&m.spinsConsumed, 1)
	}

	if park.HasFutex {
		wasSpinning := w.fetchClearSpinning()
		if !wasSpinning {
			m.event("already-woken", w)
			return
		}
		m.event("park", w)
		atomic.AddUint64(&m.parksIssued, 1)
		// w.flags no longer carries waitSpinning (we just cleared it); wait
		// on that post-clear value so the syscall only blocks if nothing
		// has changed since.
		park.ParkFutex(&w.flags, w.flags)
		return
	}

	wasSpinning := w.fetchClearSpinning()
	if !wasSpinning {
		m.event("already-woken", w)
		return
	}
	m.event("park", w)
	atomic.AddUint64(&m.parksIssued, 1)
	m.parker.Park(unsafe.Pointer(w))
}

// unblock wakes w. It is called only by a wake routine that has already
// removed w from the waiter queue under the queue spinlock, so no one else
// can be concurrently manipulating w's links; w.flags is the only field
// still subject to a race, against the waiting goroutine's own call to
// block.
func (m *Mutex) unblock(w *waitBlock) {
	wasSpinning := w.fetchClearSpinning()
	if wasSpinning {
		// We performed the 1->0 transition ourselves: the waiter has not
		// yet reached its own fetch-and-clear (it is still in its spin
		// phase, or about to run it), so it will observe the bit already
		// clear and return without ever parking. Nothing more to do.
		m.event("unblock-still-spinning", w)
		return
	}
	// The waiter's own fetch-and-clear got there first: it has committed to
	// (or already has) parked. Send the matching wake.
	m.event("release", w)
	if park.HasFutex {
		park.WakeFutex(&w.flags)
		return
	}
	m.parker.Release(unsafe.Pointer(w))
}

func (m *Mutex) event(name string, w *waitBlock) {
	if m.onEvent != nil {
		m.onEvent(name, w)
	}
}
