package rwqueue

// waiterQueue is a circular, doubly-linked list of waitBlocks rooted at a
// sentinel node, protected by its own spinlock (never the packed state
// word). Exclusive waiters always precede shared waiters; within each class
// insertion order is preserved. firstShared caches the first shared waiter
// (or the sentinel, when there is none) so that a shared release or an
// exclusive-to-shared conversion can find the shared prefix without walking
// the whole list, and so that a newly-enqueued exclusive waiter knows where
// to insert itself (immediately before firstShared) in O(1).
//
// Modelled on the dll type in the nsync package: a sentinel whose own
// flink/blink point to itself when the list is empty, generalized here with
// an explicit insertBefore (needed for the exclusive class) and insertFirst
// (needed for the shared-to-exclusive conversion's fairness exception).
type waiterQueue struct {
	mu          spinlock
	sentinel    waitBlock
	firstShared *waitBlock
}

func newWaiterQueue() *waiterQueue {
	q := &waiterQueue{}
	q.sentinel.flink = &q.sentinel
	q.sentinel.blink = &q.sentinel
	q.firstShared = &q.sentinel
	return q
}

func (q *waiterQueue) isEmpty() bool {
	return q.sentinel.flink == &q.sentinel
}

// insertBefore splices w into the list immediately before p.
func insertBefore(w, p *waitBlock) {
	w.blink = p.blink
	w.flink = p
	w.blink.flink = w
	w.flink.blink = w
}

func remove(w *waitBlock) {
	w.flink.blink = w.blink
	w.blink.flink = w.flink
	w.flink, w.blink = nil, nil
}

// insertLastExclusive places an exclusive waiter at the tail of the
// exclusive run: immediately before the first shared waiter (or at the tail
// of the whole list, if there are no shared waiters). This is what gives
// exclusive waiters precedence over shared waiters that arrived earlier.
func (q *waiterQueue) insertLastExclusive(w *waitBlock) {
	insertBefore(w, q.firstShared)
}

// insertLast places a shared waiter at the tail of the whole list. If it
// lands immediately after the sentinel or after an exclusive waiter, it is
// now the first shared waiter, so firstShared is updated.
func (q *waiterQueue) insertLast(w *waitBlock) {
	insertBefore(w, &q.sentinel)
	if w.blink == &q.sentinel || w.blink.isExclusive() {
		q.firstShared = w
	}
}

// insertFirst places w at the very head of the queue, ahead of every other
// waiter of either class. Used only by ConvertSharedToExclusive's fairness
// exception (spec §4.2 step 4, "First").
func (q *waiterQueue) insertFirst(w *waitBlock) {
	insertBefore(w, q.sentinel.flink)
}

// removeUpdatingFirstShared removes w from the queue, fixing up firstShared
// if w was it.
func (q *waiterQueue) removeUpdatingFirstShared(w *waitBlock) {
	if q.firstShared == w {
		q.firstShared = w.flink
	}
	remove(w)
}
