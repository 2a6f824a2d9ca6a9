package rwqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// S1: a writer already queued must be granted the lock before a reader that
// arrives afterward, even though fast-path shared acquires are normally
// allowed to run concurrently with each other.
func TestScenarioWriterPrecedesLaterReader(t *testing.T) {
	m := New(WithSpinCount(0))
	m.AcquireShared() // first reader holds the lock

	writerQueued := make(chan struct{})
	writerDone := make(chan struct{})
	m.onEvent = func(name string, w *waitBlock) {
		if name == "enqueue-exclusive" {
			close(writerQueued)
		}
	}
	go func() {
		m.AcquireExclusive()
		close(writerDone)
		m.ReleaseExclusive()
	}()
	<-writerQueued

	// A reader arriving after the writer queued must not be able to join
	// the fast path: stateWaiters is now set.
	assert.False(t, m.TryAcquireShared())

	m.ReleaseShared()
	<-writerDone
}

// S2: multiple shared acquires complete concurrently without blocking each
// other while no writer is queued.
func TestScenarioConcurrentReadersDoNotBlock(t *testing.T) {
	m := New()
	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			m.AcquireShared()
			time.Sleep(time.Millisecond)
			m.ReleaseShared()
		}()
	}
	close(start)
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent shared acquires did not all complete; likely serialized")
	}
}

// S3: ReleaseExclusive on a lock with a queued exclusive waiter transfers
// ownership directly to it rather than ever observing "free" in between,
// which TestScenarioWriterPrecedesLaterReader above depends on implicitly;
// here we check the released waiter actually becomes the owner.
func TestScenarioExclusiveHandoffGrantsOwnership(t *testing.T) {
	m := New(WithSpinCount(0))
	m.AcquireExclusive()
	acquired := make(chan struct{})
	go func() {
		m.AcquireExclusive()
		close(acquired)
	}()
	time.Sleep(5 * time.Millisecond)
	m.ReleaseExclusive()
	<-acquired
	assert.True(t, m.Owned())
	assert.Equal(t, 0, m.SharedOwners())
	m.ReleaseExclusive()
}

// S4: a contiguous run of queued shared waiters is granted shared ownership
// together by a single release, not one at a time.
func TestScenarioSharedRunGrantedTogether(t *testing.T) {
	m := New(WithSpinCount(0))
	m.AcquireExclusive()

	const nReaders = 5
	var wg sync.WaitGroup
	wg.Add(nReaders)
	for i := 0; i < nReaders; i++ {
		go func() {
			defer wg.Done()
			m.AcquireShared()
		}()
	}
	time.Sleep(10 * time.Millisecond) // let all readers enqueue
	m.ReleaseExclusive()
	wg.Wait()
	assert.Equal(t, nReaders, m.SharedOwners())
	for i := 0; i < nReaders; i++ {
		m.ReleaseShared()
	}
}

// S5: ConvertExclusiveToShared hands shared ownership to both the converter
// and every already-queued shared waiter in one step.
func TestScenarioConvertExclusiveToSharedReleasesQueuedReaders(t *testing.T) {
	m := New(WithSpinCount(0))
	m.AcquireExclusive()

	const nReaders = 4
	var wg sync.WaitGroup
	wg.Add(nReaders)
	for i := 0; i < nReaders; i++ {
		go func() {
			defer wg.Done()
			m.AcquireShared()
			m.ReleaseShared()
		}()
	}
	time.Sleep(10 * time.Millisecond)
	m.ConvertExclusiveToShared()
	wg.Wait()
	m.ReleaseShared()
}

// S6: a ConvertSharedToExclusive that has to wait (another reader still
// holds the lock) is granted exclusive ownership before a shared waiter that
// queued after the conversion had already given up its own shared slot and
// enqueued.
func TestScenarioConvertSharedToExclusiveBeforeLaterReader(t *testing.T) {
	m := New(WithSpinCount(0))
	m.AcquireShared() // reader A, the converter
	m.AcquireShared() // reader B, keeps the lock shared while A converts

	converterQueued := make(chan struct{})
	laterReaderQueued := make(chan struct{})
	var once1, once2 sync.Once
	m.onEvent = func(name string, w *waitBlock) {
		switch name {
		case "enqueue-convert":
			once1.Do(func() { close(converterQueued) })
		case "enqueue-shared":
			once2.Do(func() { close(laterReaderQueued) })
		}
	}

	converterDone := make(chan struct{})
	go func() {
		m.ConvertSharedToExclusive()
		close(converterDone)
	}()
	<-converterQueued

	laterReaderDone := make(chan struct{})
	go func() {
		m.AcquireShared() // must queue behind the converter's exclusive waiter
		close(laterReaderDone)
		m.ReleaseShared()
	}()
	<-laterReaderQueued

	// Releasing reader B's slot hands the lock to the converter, not the
	// later reader, which stays queued behind it.
	m.ReleaseShared()
	<-converterDone

	select {
	case <-laterReaderDone:
		t.Fatal("later reader was granted shared ownership ahead of the converter")
	default:
	}

	m.ReleaseExclusive()
	<-laterReaderDone
}
