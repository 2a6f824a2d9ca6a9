package rwqueue

import "sync/atomic"

// wake performs the hand-off a release makes when it observed stateWaiters
// set: under the queue spinlock it dequeues the next waiter (or contiguous
// run of shared waiters), decides the new packed state, and only then
// releases the queue lock and unparks whoever it dequeued.
//
// The key invariant this preserves is that stateOwned never transitions to
// "free" while the queue is non-empty: a releaser either clears both owned
// and waiters together (queue observed empty) or replaces the old owner with
// the new one(s) in a single store, so a fast-path acquirer spinning outside
// the queue lock can never observe a window where the lock looks free but a
// queued waiter is about to be granted ownership underneath it.
func (m *Mutex) wake() {
	m.q.mu.Lock()
	if m.q.isEmpty() {
		m.q.mu.Unlock()
		// The waiters bit was stale (the last queued waiter was removed by a
		// concurrent convert, or never actually queued before we got here):
		// nothing to hand off, so go fully free.
		atomic.StoreUint32(&m.state, 0)
		return
	}

	h := m.q.sentinel.flink
	if h.isExclusive() {
		m.q.removeUpdatingFirstShared(h)
		waiters := !m.q.isEmpty()
		m.storeGrant(stateOwned, waiters)
		m.q.mu.Unlock()
		atomic.AddUint64(&m.wakeBatchTotal, 1)
		atomic.AddUint64(&m.wakeCount, 1)
		m.unblock(h)
		return
	}

	// h is the first shared waiter: dequeue the whole contiguous shared
	// prefix starting at h, since every one of them can be granted shared
	// ownership together. Exclusive waiters always sit before firstShared,
	// so this run never crosses into an exclusive waiter.
	var list []*waitBlock
	for cur := h; cur != &m.q.sentinel; {
		next := cur.flink
		remove(cur)
		list = append(list, cur)
		cur = next
	}
	m.q.firstShared = &m.q.sentinel
	waiters := !m.q.isEmpty()
	m.storeGrant(sharedCountOne*uint32(len(list)), waiters)
	m.q.mu.Unlock()

	atomic.AddUint64(&m.wakeBatchTotal, uint64(len(list)))
	atomic.AddUint64(&m.wakeCount, 1)
	for _, w := range list {
		m.unblock(w)
	}
}

// storeGrant publishes a new owning state: ownerBits is stateOwned for an
// exclusive grant, or sharedCountOne*n for a shared grant of n owners; the
// owned bit is set in either case.
// Called only while the queue spinlock is held by the releaser performing
// the hand-off, so there is no concurrent writer to race against; readers
// still observe it through the atomic load every fast path uses.
func (m *Mutex) storeGrant(ownerBits uint32, waiters bool) {
	s := stateOwned | ownerBits
	if waiters {
		s |= stateWaiters
	}
	atomic.StoreUint32(&m.state, s)
}

// wakeSharedForConvert is ConvertExclusiveToShared's wake step (spec §4.3):
// the caller keeps one shared ownership slot for itself and additionally
// grants shared ownership to every waiter in the queued shared prefix, since
// shared owners can coexist. Exclusive waiters, which always queue ahead of
// firstShared, are left untouched.
func (m *Mutex) wakeSharedForConvert() {
	m.q.mu.Lock()
	var list []*waitBlock
	for cur := m.q.firstShared; cur != &m.q.sentinel; {
		next := cur.flink
		remove(cur)
		list = append(list, cur)
		cur = next
	}
	m.q.firstShared = &m.q.sentinel
	waiters := !m.q.isEmpty()
	m.storeGrant(sharedCountOne*uint32(1+len(list)), waiters)
	m.q.mu.Unlock()

	atomic.AddUint64(&m.wakeBatchTotal, uint64(len(list)))
	atomic.AddUint64(&m.wakeCount, 1)
	for _, w := range list {
		m.unblock(w)
	}
}
