package rwqueue

import "sync/atomic"

// waitFlags packs a wait block's class and its park/unpark rendezvous bit
// into a single word so both can be read and mutated atomically without a
// second lock.
type waitFlags = uint32

const (
	waitExclusive waitFlags = 1 << 0 // set at construction, never mutated again
	waitSpinning  waitFlags = 1 << 1 // the park/unpark rendezvous bit, see fetchClearSpinning
)

// waitBlock is a node in the intrusive, doubly-linked waiter queue. Exactly
// one goroutine ever owns a given waitBlock, and it is expected to live on
// that goroutine's stack (or heap, in Go's case, but never shared beyond the
// scope of one wait): flink/blink are only ever touched while the queue
// spinlock is held, and flags is the sole field mutated outside the lock, by
// way of the atomic fetch-and-clear race described in block.go.
type waitBlock struct {
	flink, blink *waitBlock
	flags        uint32
}

func newWaitBlock(exclusive bool) *waitBlock {
	w := &waitBlock{}
	if exclusive {
		w.flags = waitExclusive | waitSpinning
	} else {
		w.flags = waitSpinning
	}
	return w
}

func (w *waitBlock) isExclusive() bool {
	return w.flags&waitExclusive != 0
}

func (w *waitBlock) isSpinning() bool {
	return atomic.LoadUint32(&w.flags)&waitSpinning != 0
}

// fetchClearSpinning atomically clears waitSpinning and returns whether it
// was set in the pre-image. Both the waiting goroutine (in block) and the
// waking goroutine (in unblock) call this on the same waitBlock; exactly one
// of them observes the bit still set (see block.go for the derivation of
// which side then owns the park/release call).
func (w *waitBlock) fetchClearSpinning() (wasSpinning bool) {
	for {
		old := atomic.LoadUint32(&w.flags)
		if old&waitSpinning == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&w.flags, old, old&^waitSpinning) {
			return true
		}
	}
}
