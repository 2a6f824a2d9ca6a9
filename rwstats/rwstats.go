// Package rwstats wraps a rwqueue.Mutex with Prometheus instrumentation:
// counters for acquisitions, spins, and parks by class, and gauges for the
// currently sampled shared-owner count and queue depth. Instrumentation is
// deliberately not wired into the lock's own CAS fast path (see the
// package's Non-goals): Tracked wraps the acquire and release operations from
// the outside instead, so the fast path itself never pays for a counter
// increment.
package rwstats

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nbtaylor-labs/rwqueue/rwqueue"
)

// Tracked pairs a *rwqueue.Mutex with the Prometheus instruments that
// observe it from the outside.
type Tracked struct {
	mu *rwqueue.Mutex

	acquireExclusiveTotal prometheus.Counter
	acquireSharedTotal    prometheus.Counter
	releaseExclusiveTotal prometheus.Counter
	releaseSharedTotal    prometheus.Counter
	contendedTotal        prometheus.Counter
	spinsConsumedTotal    prometheus.Counter
	parksIssuedTotal      prometheus.Counter
	wakeBatchSizeTotal    prometheus.Counter
	sharedOwners          prometheus.Gauge
	owned                 prometheus.Gauge
	queueDepth            prometheus.Gauge

	// lastSpins, lastParks and lastWakeBatch are the Mutex's own cumulative
	// counters as of the previous Sample call, so Sample can Add the delta
	// onto the Prometheus counters above instead of re-exposing mu's
	// counters directly (Counter only supports Add, not Set). Sample is
	// documented as meant for a single periodic caller, so these need no
	// synchronization of their own.
	lastSpins     uint64
	lastParks     uint64
	lastWakeBatch uint64
}

// New wraps mu with a fresh set of instruments registered under the given
// Prometheus namespace (e.g. "rwqueue_probe"), so that multiple Tracked
// instances in the same process don't collide on metric names.
func New(mu *rwqueue.Mutex, namespace string) *Tracked {
	t := &Tracked{
		mu: mu,
		acquireExclusiveTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "acquire_exclusive_total",
			Help: "Number of completed AcquireExclusive calls.",
		}),
		acquireSharedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "acquire_shared_total",
			Help: "Number of completed AcquireShared calls.",
		}),
		releaseExclusiveTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "release_exclusive_total",
			Help: "Number of ReleaseExclusive calls.",
		}),
		releaseSharedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "release_shared_total",
			Help: "Number of ReleaseShared calls.",
		}),
		contendedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "acquire_contended_total",
			Help: "Number of acquisitions that did not take the uncontended fast path.",
		}),
		spinsConsumedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "spins_consumed_total",
			Help: "Number of busy-wait iterations spent across every acquire on the wrapped lock.",
		}),
		parksIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "parks_issued_total",
			Help: "Number of times a waiter actually parked instead of being woken within its spin budget.",
		}),
		wakeBatchSizeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "wake_batch_size_total",
			Help: "Cumulative number of waiters granted ownership across every hand-off.",
		}),
		sharedOwners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "shared_owners",
			Help: "Sampled number of current shared owners.",
		}),
		owned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "owned",
			Help: "Sampled 1 if the lock is currently held, 0 otherwise.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_depth",
			Help: "Sampled number of waiters currently enqueued.",
		}),
	}
	prometheus.MustRegister(
		t.acquireExclusiveTotal, t.acquireSharedTotal,
		t.releaseExclusiveTotal, t.releaseSharedTotal,
		t.contendedTotal, t.spinsConsumedTotal, t.parksIssuedTotal,
		t.wakeBatchSizeTotal, t.sharedOwners, t.owned, t.queueDepth,
	)
	return t
}

// AcquireExclusive acquires the wrapped lock exclusively, tracking whether
// the uncontended fast path was available by racing a non-blocking try
// against the blocking call: if TryAcquireExclusive succeeds there was no
// contention to record.
func (t *Tracked) AcquireExclusive() {
	if !t.mu.TryAcquireExclusive() {
		t.contendedTotal.Inc()
		t.mu.AcquireExclusive()
	}
	t.acquireExclusiveTotal.Inc()
}

// ReleaseExclusive releases the wrapped lock's exclusive ownership.
func (t *Tracked) ReleaseExclusive() {
	t.mu.ReleaseExclusive()
	t.releaseExclusiveTotal.Inc()
}

// AcquireShared acquires the wrapped lock in shared mode.
func (t *Tracked) AcquireShared() {
	if !t.mu.TryAcquireShared() {
		t.contendedTotal.Inc()
		t.mu.AcquireShared()
	}
	t.acquireSharedTotal.Inc()
}

// ReleaseShared releases one shared ownership of the wrapped lock.
func (t *Tracked) ReleaseShared() {
	t.mu.ReleaseShared()
	t.releaseSharedTotal.Inc()
}

// Sample updates the gauges from the wrapped lock's current state and
// advances the spin/park/wake-batch counters by however much mu's own
// cumulative totals grew since the last call. It is meant to be called
// periodically (e.g. from cmd/rwprobe's reporting loop), not on every
// operation, keeping counter maintenance off the hot path.
func (t *Tracked) Sample() {
	t.sharedOwners.Set(float64(t.mu.SharedOwners()))
	if t.mu.Owned() {
		t.owned.Set(1)
	} else {
		t.owned.Set(0)
	}
	t.queueDepth.Set(float64(t.mu.QueueDepth()))

	spins := t.mu.SpinsConsumed()
	t.spinsConsumedTotal.Add(float64(spins - t.lastSpins))
	t.lastSpins = spins

	parks := t.mu.ParksIssued()
	t.parksIssuedTotal.Add(float64(parks - t.lastParks))
	t.lastParks = parks

	wakeBatch := t.mu.WakeBatchTotal()
	t.wakeBatchSizeTotal.Add(float64(wakeBatch - t.lastWakeBatch))
	t.lastWakeBatch = wakeBatch
}

// SamplePeriodically runs Sample on the given interval until stop is
// closed.
func (t *Tracked) SamplePeriodically(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Sample()
		case <-stop:
			return
		}
	}
}

// Handler returns the HTTP handler that serves the registered instruments
// on Prometheus's text exposition format, suitable for mounting at
// "/metrics".
func Handler() http.Handler {
	return prometheus.Handler()
}
