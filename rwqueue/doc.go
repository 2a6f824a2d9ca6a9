// Package rwqueue implements a fair, FIFO reader-writer lock.
//
// A Mutex has two acquisition classes: exclusive (only one holder, excludes
// everyone else) and shared (any number of concurrent holders, excludes
// exclusive holders). Unlike sync.RWMutex, rwqueue.Mutex maintains strict
// FIFO ordering across both classes and gives exclusive waiters precedence
// over shared waiters at every release boundary: a stream of readers cannot
// starve a writer that is already queued.
//
// The lock state lives in a single packed machine word so that the
// uncontended path is one compare-and-swap. On contention, callers spin for
// a bounded, configurable number of iterations and then enqueue themselves
// on an explicit doubly-linked waiter queue (protected by a small spinlock
// distinct from the state word) before parking on an address-keyed wake
// primitive (package rwqueue/park; each Mutex allocates its own table, and on
// Linux the wait goes straight to a futex). This mirrors how an
// OS kernel implements a fast user-mode reader-writer lock: a lock-free fast
// path, a queue for the slow path, and a keyed event for the actual sleep.
//
// Example usage, where m protects some shared data structure:
//
//	m := rwqueue.New()
//	m.AcquireShared()
//	// read-only access
//	m.ReleaseShared()
//
//	m.AcquireExclusive()
//	// exclusive read-write access
//	m.ReleaseExclusive()
//
// A holder of a shared acquisition may convert to exclusive, and vice versa,
// without releasing and reacquiring; see ConvertSharedToExclusive and
// ConvertExclusiveToShared. Conversion has different fairness rules than a
// plain release-then-acquire: a converting shared holder jumps to the head
// of the waiter queue, ahead of every other waiter (§4.2 of the design
// note below), because it already owns a share of the lock and must not be
// starved behind newly arriving acquirers.
//
// Recursion, priority inheritance, cross-process sharing, timeouts and
// cancellation are explicitly not supported: a thread that acquires Mutex
// must release it itself, acquisitions block indefinitely, and a second
// exclusive acquisition by the same goroutine deadlocks exactly as it would
// with sync.Mutex.
package rwqueue
