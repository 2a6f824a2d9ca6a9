package rwqueue

import "sync/atomic"

// tryFastAcquireExclusive computes the post-state of an uncontended
// exclusive acquire from s, or reports !ok if s does not admit one. A
// waiter queue is never consulted here: fairness is enforced entirely by
// refusing the fast path whenever stateWaiters is set, so a burst of new
// acquirers can never leapfrog whoever is already queued.
func tryFastAcquireExclusive(s uint32) (next uint32, ok bool) {
	if hasWaiters(s) || isOwned(s) {
		return s, false
	}
	return s | stateOwned, true
}

// tryFastAcquireShared computes the post-state of an uncontended shared
// acquire from s. Joining an already-shared lock is only allowed when no
// waiter is queued: once an exclusive waiter is queued behind a run of
// shared owners, letting more readers barge in would starve it indefinitely
// (spec §4.1's writer-preference note).
func tryFastAcquireShared(s uint32) (next uint32, ok bool) {
	if hasWaiters(s) {
		return s, false
	}
	if !isOwned(s) {
		return s | stateOwned | sharedCountOne, true
	}
	if sharedCount(s) > 0 {
		return s + sharedCountOne, true
	}
	return s, false
}

func (m *Mutex) fastAcquireExclusive() bool {
	for {
		s := m.loadState()
		next, ok := tryFastAcquireExclusive(s)
		if !ok {
			return false
		}
		if m.casState(s, next) {
			return true
		}
	}
}

func (m *Mutex) fastAcquireShared() bool {
	for {
		s := m.loadState()
		next, ok := tryFastAcquireShared(s)
		if !ok {
			return false
		}
		if m.casState(s, next) {
			return true
		}
	}
}

// setWaitersLocked ensures stateWaiters is set. Called by an acquirer that
// holds the queue spinlock and has just enqueued its own wait block. The
// ownership bits can change concurrently through the fast-path CASes; the
// retry loop reloads and sets stateWaiters on top of whatever they became.
func (m *Mutex) setWaitersLocked() {
	for {
		s := m.loadState()
		if hasWaiters(s) {
			return
		}
		if m.casState(s, s|stateWaiters) {
			return
		}
	}
}

// acquireExclusive is the shared driver behind AcquireExclusive and
// SpinAcquireExclusive (spec §4.1, §4.5): try the fast path, spin for up to
// spinCount iterations retrying it, and failing that enqueue and block.
// sleep controls whether the final blocking step may park (true) or must
// busy-wait indefinitely (false, the Spin* variants).
func (m *Mutex) acquireExclusive(sleep bool) {
	if m.fastAcquireExclusive() {
		return
	}
	for i := 0; i < m.spinCount; i++ {
		if m.fastAcquireExclusive() {
			return
		}
		atomic.AddUint64(&m.spinsConsumed, 1)
		backoff(uint(i % 8))
	}
	for {
		m.q.mu.Lock()
		s := m.loadState()
		if !hasWaiters(s) && !isOwned(s) {
			// The lock went free while we were about to enqueue; retry the
			// fast path instead of needlessly queuing behind nothing.
			m.q.mu.Unlock()
			if m.fastAcquireExclusive() {
				return
			}
			continue
		}
		w := newWaitBlock(true)
		m.q.insertLastExclusive(w)
		m.setWaitersLocked()
		m.q.mu.Unlock()
		m.event("enqueue-exclusive", w)
		m.block(w, sleep)
		// wake's storeGrant already published us as the owner before
		// unparking us; nothing left to do.
		return
	}
}

// acquireShared is the shared driver behind AcquireShared and
// SpinAcquireShared.
func (m *Mutex) acquireShared(sleep bool) {
	if m.fastAcquireShared() {
		return
	}
	for i := 0; i < m.spinCount; i++ {
		if m.fastAcquireShared() {
			return
		}
		atomic.AddUint64(&m.spinsConsumed, 1)
		backoff(uint(i % 8))
	}
	for {
		m.q.mu.Lock()
		s := m.loadState()
		if !hasWaiters(s) && (!isOwned(s) || sharedCount(s) > 0) {
			m.q.mu.Unlock()
			if m.fastAcquireShared() {
				return
			}
			continue
		}
		w := newWaitBlock(false)
		m.q.insertLast(w)
		m.setWaitersLocked()
		m.q.mu.Unlock()
		m.event("enqueue-shared", w)
		m.block(w, sleep)
		return
	}
}

// AcquireExclusive blocks until the caller holds the lock exclusively.
func (m *Mutex) AcquireExclusive() {
	m.acquireExclusive(true)
}

// TryAcquireExclusive makes one non-blocking attempt to acquire the lock
// exclusively and reports whether it succeeded. Like the fast path inside
// AcquireExclusive, it still defers to any already-queued waiter: a busy
// loop of TryAcquireExclusive calls cannot starve a writer that lost a race
// and had to enqueue.
func (m *Mutex) TryAcquireExclusive() bool {
	s := m.loadState()
	next, ok := tryFastAcquireExclusive(s)
	if !ok {
		return false
	}
	return m.casState(s, next)
}

// SpinAcquireExclusive behaves like AcquireExclusive but never parks: once
// enqueued, it busy-waits for its wait block to be woken instead of
// sleeping. Intended for call sites that know the hold times around them
// are always brief and would rather burn CPU than pay a park/unpark round
// trip (spec §4.5).
func (m *Mutex) SpinAcquireExclusive() {
	m.acquireExclusive(false)
}

// ReleaseExclusive releases a lock held exclusively by the caller.
func (m *Mutex) ReleaseExclusive() {
	for {
		s := m.loadState()
		if !hasWaiters(s) {
			if m.casState(s, 0) {
				return
			}
			continue
		}
		break
	}
	m.wake()
}

// AcquireShared blocks until the caller holds a shared (read) ownership of
// the lock.
func (m *Mutex) AcquireShared() {
	m.acquireShared(true)
}

// TryAcquireShared makes one non-blocking attempt to join the lock as a
// shared owner.
func (m *Mutex) TryAcquireShared() bool {
	s := m.loadState()
	next, ok := tryFastAcquireShared(s)
	if !ok {
		return false
	}
	return m.casState(s, next)
}

// SpinAcquireShared behaves like AcquireShared but never parks.
func (m *Mutex) SpinAcquireShared() {
	m.acquireShared(false)
}

// ReleaseShared releases one shared ownership held by the caller. Only the
// owner whose release brings sharedCount to zero performs the hand-off.
func (m *Mutex) ReleaseShared() {
	for {
		s := m.loadState()
		n := sharedCount(s)
		if n > 1 {
			if m.casState(s, s-sharedCountOne) {
				return
			}
			continue
		}
		// n == 1: this release drops ownership to zero.
		if !hasWaiters(s) {
			if m.casState(s, 0) {
				return
			}
			continue
		}
		break
	}
	m.wake()
}

// ConvertExclusiveToShared downgrades the caller's exclusive ownership to
// shared in place, without releasing the lock in between, and simultaneously
// grants shared ownership to every waiter already queued in the shared
// prefix (spec §4.3): those waiters queued behind the caller's exclusive
// hold, not behind each other, so there is no reason to make them wait a
// second time once the caller itself only needs read access.
func (m *Mutex) ConvertExclusiveToShared() {
	// wakeSharedForConvert folds the caller's own new shared slot together
	// with whatever shared prefix is queued (empty, or behind an exclusive
	// waiter that keeps its place either way) into a single grant.
	m.wakeSharedForConvert()
}

// ConvertSharedToExclusive upgrades the caller's shared ownership to
// exclusive. If the caller is the sole shared owner it converts in place;
// otherwise it releases its shared slot and re-enqueues as an exclusive
// waiter at the very head of the queue — ahead of any already-queued
// waiter, exclusive or shared — per spec §4.2 step 4's fairness exception:
// a converting reader already holds a stake in the data and should not be
// forced behind waiters that arrived after it merely because the convert
// needed to wait for the other concurrent readers to drain.
func (m *Mutex) ConvertSharedToExclusive() {
	m.convertSharedToExclusive(true)
}

// SpinConvertSharedToExclusive behaves like ConvertSharedToExclusive but
// never parks while waiting for the other shared owners to drain.
func (m *Mutex) SpinConvertSharedToExclusive() {
	m.convertSharedToExclusive(false)
}

func (m *Mutex) convertSharedToExclusive(sleep bool) {
	for {
		s := m.loadState()
		if sharedCount(s) == 1 {
			if m.casState(s, (s&stateWaiters)|stateOwned) {
				return
			}
			continue
		}
		break
	}

	// Other shared owners remain; give up our own slot (without ever
	// letting the lock look briefly unowned) and queue as an exclusive
	// waiter at the head.
	w := newWaitBlock(true)
	m.q.mu.Lock()
	for {
		s := m.loadState()
		if sharedCount(s) == 1 {
			// The other shared owners released meanwhile: convert in place.
			if m.casState(s, (s&stateWaiters)|stateOwned) {
				m.q.mu.Unlock()
				return
			}
			continue
		}
		if m.casState(s, (s-sharedCountOne)|stateWaiters) {
			break
		}
	}
	m.q.insertFirst(w)
	m.q.mu.Unlock()
	m.event("enqueue-convert", w)
	m.block(w, sleep)
}
