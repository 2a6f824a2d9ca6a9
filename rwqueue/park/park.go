// Package park implements the address-keyed parking primitive that
// rwqueue's slow path blocks on: a "keyed event" in the
// sense of NT's NtWaitForKeyedEvent/NtReleaseKeyedEvent, or a userspace
// futex. A waiter calls Park with a key (the address of its wait block);
// some other goroutine later calls Release with the same key, and exactly
// one Park call returns.
//
// The table is bucketed by a hash of the key, grounded on the emulated
// futex implementation in the wider example corpus (an address-hashed
// array of mutex-protected wait lists): a real keyed event is a single
// global object, but a single global lock around one waiter list would
// serialize unrelated locks against each other, so the bucket count is
// chosen to keep collisions rare under realistic fan-out.
package park

import (
	"sync"
	"unsafe"

	"github.com/nbtaylor-labs/rwqueue/internal/rlog"
)

const numBuckets = 251 // prime, to spread pointer addresses (which are usually 8/16-byte aligned) across buckets

type waiterToken struct {
	next, prev *waiterToken
	key        unsafe.Pointer
	done       chan struct{}
}

type bucket struct {
	mu   sync.Mutex
	head waiterToken // sentinel; head.next/head.prev cycle through live tokens
}

// Table is a process-wide (or, as the design note permits, per-Mutex) park
// table. The zero value is not usable; use NewTable.
type Table struct {
	buckets [numBuckets]bucket
}

// NewTable allocates and initializes a Table. Per the design note this
// corresponds to "creation on first park" of the keyed event; Mutex.New
// calls it eagerly rather than lazily-via-CAS, which the spec explicitly
// allows ("more simply, use one event per lock instance paid for at
// construction") and which avoids a global table shared (and thus
// contended) across unrelated Mutex instances.
func NewTable() *Table {
	t := &Table{}
	for i := range t.buckets {
		b := &t.buckets[i]
		b.head.next = &b.head
		b.head.prev = &b.head
	}
	return t
}

func (t *Table) bucketFor(key unsafe.Pointer) *bucket {
	return &t.buckets[hashAddr(uintptr(key))%numBuckets]
}

// hashAddr spreads pointer values (which cluster at small, aligned offsets
// from heap arena bases) across the bucket table. The mixing steps are
// Thomas Wang's 64-bit integer hash, the same one used to key the emulated
// futex bucket table in the wider example corpus.
func hashAddr(addr uintptr) uintptr {
	a := uint64(addr)
	a = (^a) + (a << 21)
	a = a ^ (a >> 24)
	a = a + (a << 3) + (a << 8)
	a = a ^ (a >> 14)
	a = a + (a << 2) + (a << 4)
	a = a ^ (a >> 28)
	a = a + (a << 31)
	return uintptr(a)
}

// Park blocks the calling goroutine until a matching Release(key) call is
// made. At most one goroutine may be parked on a given key at a time; the
// rwqueue package guarantees this because a wait block is owned by exactly
// one waiting goroutine for the duration of its wait.
func (t *Table) Park(key unsafe.Pointer) {
	b := t.bucketFor(key)
	tok := &waiterToken{key: key, done: make(chan struct{})}
	b.mu.Lock()
	tok.prev = b.head.prev
	tok.next = &b.head
	b.head.prev.next = tok
	b.head.prev = tok
	b.mu.Unlock()

	<-tok.done
}

// Release wakes the single goroutine parked on key and returns true. If no
// goroutine is parked on key, it logs through rlog.Fatalf, which exits the
// process, so it never returns false. Per the spec's error-handling design, a park
// primitive mismatch (a Release with no matching Park ever arriving, or
// vice versa) is a protocol violation in the caller, not a condition this
// package recovers from; rwqueue never calls Release without having first
// observed, under its own queue spinlock, that the corresponding wait block
// was enqueued, so in correct use this always finds its waiter.
func (t *Table) Release(key unsafe.Pointer) bool {
	b := t.bucketFor(key)
	b.mu.Lock()
	var found *waiterToken
	for cur := b.head.next; cur != &b.head; cur = cur.next {
		if cur.key == key {
			found = cur
			found.prev.next = found.next
			found.next.prev = found.prev
			break
		}
	}
	b.mu.Unlock()
	if found == nil {
		// rwqueue never calls Release without having first observed, under
		// its own queue spinlock, that the corresponding wait block was
		// enqueued; reaching here means that protocol was violated by the
		// caller, not a condition this package can recover from.
		rlog.Fatalf("park: Release found no waiter for key %p", key)
		return false
	}
	close(found.done)
	return true
}
