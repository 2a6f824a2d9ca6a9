package rwqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaiterQueueOrdering(t *testing.T) {
	q := newWaiterQueue()
	assert.True(t, q.isEmpty())

	e1 := newWaitBlock(true)
	s1 := newWaitBlock(false)
	s2 := newWaitBlock(false)
	e2 := newWaitBlock(true)

	// Shared waiters arriving first, then an exclusive waiter: the
	// exclusive waiter must still land ahead of them (writer precedence).
	q.insertLast(s1)
	q.insertLastExclusive(e1)
	q.insertLast(s2)
	q.insertLastExclusive(e2)

	var order []*waitBlock
	for cur := q.sentinel.flink; cur != &q.sentinel; cur = cur.flink {
		order = append(order, cur)
	}
	assert.Equal(t, []*waitBlock{e1, e2, s1, s2}, order)
	assert.Same(t, s1, q.firstShared)
}

func TestWaiterQueueInsertFirst(t *testing.T) {
	q := newWaiterQueue()
	e1 := newWaitBlock(true)
	s1 := newWaitBlock(false)
	q.insertLastExclusive(e1)
	q.insertLast(s1)

	head := newWaitBlock(true)
	q.insertFirst(head)

	assert.Same(t, head, q.sentinel.flink)
	assert.Same(t, s1, q.firstShared)
}

func TestWaiterQueueRemoveUpdatesFirstShared(t *testing.T) {
	q := newWaiterQueue()
	s1 := newWaitBlock(false)
	s2 := newWaitBlock(false)
	q.insertLast(s1)
	q.insertLast(s2)
	assert.Same(t, s1, q.firstShared)

	q.removeUpdatingFirstShared(s1)
	assert.Same(t, s2, q.firstShared)

	q.removeUpdatingFirstShared(s2)
	assert.True(t, q.isEmpty())
	assert.Same(t, &q.sentinel, q.firstShared)
}

func TestFetchClearSpinningIsOneShot(t *testing.T) {
	w := newWaitBlock(false)
	assert.True(t, w.isSpinning())
	assert.True(t, w.fetchClearSpinning())
	assert.False(t, w.isSpinning())
	assert.False(t, w.fetchClearSpinning())
}
