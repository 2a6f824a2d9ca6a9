// Package audit records lock transitions to a MySQL-backed forensic log: a
// stand-in for the inspection/forensics value a kernel-mode resource
// manager's driver would provide, without reimplementing any of the
// driver-side IOCTL or cross-process mechanism that remains out of scope.
//
// Connection setup is a DSN string handed to database/sql with the mysql
// driver registered, parseTime enabled so timestamps round-trip as
// time.Time, followed by a Ping.
package audit

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"
)

// LockID derives a stable, compact identifier for a human-readable lock
// name, for use as Event.LockID. Using a hash rather than the raw name
// keeps the indexed column a fixed, short width regardless of how
// descriptive callers make their lock names.
func LockID(name string) string {
	sum := blake2b.Sum256([]byte(name))
	return hex.EncodeToString(sum[:16])
}

// CreateTableSQL is the DDL for the table Sink writes to. Callers are
// expected to run it themselves (via their own migration tooling); Sink
// does not create its own table implicitly.
const CreateTableSQL = `
CREATE TABLE IF NOT EXISTS rwqueue_audit (
	id                BIGINT AUTO_INCREMENT PRIMARY KEY,
	lock_id           VARCHAR(128) NOT NULL,
	event             VARCHAR(32)  NOT NULL,
	actor_id          VARCHAR(64)  NOT NULL,
	shared_count_after INT NOT NULL,
	waiters_after     BOOLEAN NOT NULL,
	observed_at       DATETIME(6) NOT NULL
) CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci
`

// Event is one recorded lock transition.
type Event struct {
	LockID          string
	Name            string
	ActorID         string
	SharedCountAfter int
	WaitersAfter    bool
	ObservedAt      time.Time
}

// execer is the slice of *sql.DB that Record needs; factored out so tests
// can substitute a mock in place of a real database connection.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Sink writes Events to a MySQL table.
type Sink struct {
	db      *sql.DB
	exec    execer
	limiter *rate.Limiter
}

// DefaultRateLimit caps how many events per second Record will persist
// before it starts dropping them; a lock under heavy contention can
// generate far more transitions per second than a single forensic table
// can usefully absorb, so Record degrades to sampling rather than letting
// the audit sink become a bottleneck for the lock itself.
const DefaultRateLimit = 200

// Open connects to the database identified by dsn (a go-sql-driver/mysql
// data source name, "user:pass@tcp(host:port)/dbname") and returns a Sink
// ready to record events. The caller owns the returned Sink's lifetime and
// must call Close when done.
func Open(dsn string) (*Sink, error) {
	db, err := sql.Open("mysql", dsn+"?parseTime=true&loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("audit: opening database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: connecting to database: %w", err)
	}
	return &Sink{db: db, exec: db, limiter: rate.NewLimiter(DefaultRateLimit, DefaultRateLimit)}, nil
}

// newSinkWithExecer builds a Sink around an arbitrary execer, bypassing
// Open's real database connection. Used by tests to exercise Record's SQL
// and rate-limiting behavior against a mock.
func newSinkWithExecer(e execer, burst int) *Sink {
	return &Sink{exec: e, limiter: rate.NewLimiter(rate.Limit(burst), burst)}
}

// Close releases the Sink's database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Record persists ev, unless doing so would exceed the sink's rate limit,
// in which case it is silently dropped: a best-effort forensic trail is
// preferable to one that can slow down the lock it's observing. It is
// always called after the lock operation it describes has already
// completed — never while any rwqueue.Mutex's queue spinlock is held, per
// this module's rule that a spinlock is never held across a blocking I/O
// call.
func (s *Sink) Record(ctx context.Context, ev Event) error {
	if !s.limiter.Allow() {
		return nil
	}
	_, err := s.exec.ExecContext(ctx,
		`INSERT INTO rwqueue_audit (lock_id, event, actor_id, shared_count_after, waiters_after, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.LockID, ev.Name, ev.ActorID, ev.SharedCountAfter, ev.WaitersAfter, ev.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: recording event: %w", err)
	}
	return nil
}

// RecentEvents returns the last limit events recorded for lockID, most
// recent first.
func (s *Sink) RecentEvents(ctx context.Context, lockID string, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event, actor_id, shared_count_after, waiters_after, observed_at
		 FROM rwqueue_audit WHERE lock_id = ? ORDER BY observed_at DESC LIMIT ?`,
		lockID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: querying events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev := Event{LockID: lockID}
		if err := rows.Scan(&ev.Name, &ev.ActorID, &ev.SharedCountAfter, &ev.WaitersAfter, &ev.ObservedAt); err != nil {
			return nil, fmt.Errorf("audit: scanning event row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
