// Command rwprobe drives a rwqueue.Mutex under synthetic concurrent load
// and prints periodic snapshots of its observable state: the user-space
// analog of the inspection surface a kernel-mode resource manager would
// expose through IOCTLs.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"github.com/nbtaylor-labs/rwqueue/audit"
	"github.com/nbtaylor-labs/rwqueue/internal/rlog"
	"github.com/nbtaylor-labs/rwqueue/rwconfig"
	"github.com/nbtaylor-labs/rwqueue/rwqueue"
	"github.com/nbtaylor-labs/rwqueue/rwstats"
)

// probeLockName identifies the single Mutex this process drives, for the
// audit trail's lock_id column.
const probeLockName = "rwprobe"

var (
	flagReaders     = pflag.IntP("readers", "r", 4, "number of concurrent reader goroutines")
	flagWriters     = pflag.IntP("writers", "w", 1, "number of concurrent writer goroutines")
	flagHoldTime    = pflag.Duration("hold", time.Millisecond, "simulated critical-section duration")
	flagConfig      = pflag.String("config", "", "path to a rwconfig YAML file (optional)")
	flagSpinCount   = pflag.Int("spin-count", -1, "override the lock's spin budget (-1 uses the config/default)")
	flagReportEvery = pflag.Duration("report-every", time.Second, "interval between state snapshots")
	flagMetricsAddr = pflag.String("metrics-addr", "", "address to serve Prometheus /metrics on (overrides config)")
	flagAuditDSN    = pflag.String("audit-dsn", "", "MySQL DSN to record lock transitions to (overrides config)")
)

func main() {
	pflag.Parse()

	cfg := rwconfig.Default()
	if *flagConfig != "" {
		loaded, err := rwconfig.Load(*flagConfig)
		if err != nil {
			rlog.Fatalf("rwprobe: %v", err)
		}
		cfg = loaded
	}
	if *flagMetricsAddr != "" {
		cfg.MetricsAddr = *flagMetricsAddr
	}
	if *flagAuditDSN != "" {
		cfg.AuditDSN = *flagAuditDSN
	}
	if *flagSpinCount >= 0 {
		cfg.SpinCount = *flagSpinCount
		cfg.SpinCountSet = true
	}

	var opts []rwqueue.Option
	if cfg.SpinCountSet {
		opts = append(opts, rwqueue.WithSpinCount(cfg.SpinCount))
	}
	mu := rwqueue.New(opts...)
	tracked := rwstats.New(mu, "rwqueue_probe")

	var sink *audit.Sink
	if cfg.AuditDSN != "" {
		s, err := audit.Open(cfg.AuditDSN)
		if err != nil {
			rlog.Fatalf("rwprobe: opening audit sink: %v", err)
		}
		sink = s
		defer sink.Close()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", rwstats.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				rlog.Errorf("rwprobe: metrics listener exited: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lockID := audit.LockID(probeLockName)
	recordEvent := func(actorID, eventName string) {
		if sink == nil {
			return
		}
		ev := audit.Event{
			LockID:           lockID,
			Name:             eventName,
			ActorID:          actorID,
			SharedCountAfter: mu.SharedOwners(),
			WaitersAfter:     mu.QueueDepth() > 0,
			ObservedAt:       time.Now(),
		}
		if err := sink.Record(context.Background(), ev); err != nil {
			rlog.Errorf("rwprobe: recording audit event: %v", err)
		}
	}

	var wg sync.WaitGroup
	runWorker := func(actorID string, acquire, release func(), acquireName, releaseName string) {
		defer wg.Done()
		for ctx.Err() == nil {
			acquire()
			recordEvent(actorID, acquireName)
			time.Sleep(*flagHoldTime)
			release()
			recordEvent(actorID, releaseName)
		}
	}

	wg.Add(*flagReaders + *flagWriters)
	for i := 0; i < *flagReaders; i++ {
		actorID := fmt.Sprintf("reader-%d", i)
		go runWorker(actorID, tracked.AcquireShared, tracked.ReleaseShared, "acquire-shared", "release-shared")
	}
	for i := 0; i < *flagWriters; i++ {
		actorID := fmt.Sprintf("writer-%d", i)
		go runWorker(actorID, tracked.AcquireExclusive, tracked.ReleaseExclusive, "acquire-exclusive", "release-exclusive")
	}

	stopSampling := make(chan struct{})
	go tracked.SamplePeriodically(*flagReportEvery, stopSampling)

	ticker := time.NewTicker(*flagReportEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Printf("owned=%v shared_owners=%d\n", mu.Owned(), mu.SharedOwners())
		case <-ctx.Done():
			close(stopSampling)
			wg.Wait()
			return
		}
	}
}
