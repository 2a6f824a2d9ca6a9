package rwqueue

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// invariantRecorder observes every state transition through onEvent and
// checks, on each one, that the packed state and queue agree with each
// other: a cleared waiters bit is never observed while the queue is
// non-empty. This is a white-box counterpart to the scenario tests: those
// pin down specific interleavings, this one throws random concurrent
// traffic at the lock and checks the packed-word/queue invariants hold
// throughout rather than just at the end.
type invariantRecorder struct {
	m   *Mutex
	bad int32
}

func (r *invariantRecorder) onEvent(name string, w *waitBlock) {
	r.m.q.mu.Lock()
	s := r.m.loadState()
	empty := r.m.q.isEmpty()
	r.m.q.mu.Unlock()
	if !hasWaiters(s) && !empty {
		atomic.AddInt32(&r.bad, 1)
	}
	if isOwned(s) && sharedCount(s) == 0 && name == "enqueue-shared" {
		// A shared waiter was just enqueued while the lock is held
		// exclusively (sharedCount==0 but owned): fine, this is the
		// expected contended case, not a violation. Recorded only to
		// document that this branch is reachable, not asserted on.
		_ = s
	}
}

func TestFuzzMixedAcquireRelease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in -short mode")
	}
	m := New(WithSpinCount(rand.Intn(64)))
	rec := &invariantRecorder{m: m}
	m.onEvent = rec.onEvent

	const nWorkers = 24
	const nOps = 2000
	var wg sync.WaitGroup
	wg.Add(nWorkers)
	seed := time.Now().UnixNano()
	for i := 0; i < nWorkers; i++ {
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(id)))
			for op := 0; op < nOps; op++ {
				switch rng.Intn(6) {
				case 0:
					m.AcquireExclusive()
					assert.Equal(t, 0, m.SharedOwners())
					m.ReleaseExclusive()
				case 1:
					m.AcquireShared()
					assert.GreaterOrEqual(t, m.SharedOwners(), 1)
					m.ReleaseShared()
				case 2:
					if m.TryAcquireExclusive() {
						m.ReleaseExclusive()
					}
				case 3:
					if m.TryAcquireShared() {
						m.ReleaseShared()
					}
				case 4:
					m.AcquireExclusive()
					m.ConvertExclusiveToShared()
					m.ReleaseShared()
				case 5:
					m.AcquireShared()
					m.ConvertSharedToExclusive()
					m.ReleaseExclusive()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&rec.bad), "observed waiters=0 with a non-empty queue")
	assert.False(t, m.Owned())
	assert.NoError(t, m.Close())
}
