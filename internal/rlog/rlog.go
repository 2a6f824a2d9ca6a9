// Package rlog is a small leveled logger in the glog tradition: a global
// verbosity threshold gates V-logging, Infof/Errorf always log, and Fatalf
// logs then exits. It exists because the reference logging package this
// module would otherwise have reused (the vlog/llog pair) ships with no
// usable implementation — llog's package directory contains only its own
// test file — so this package supplies the same glog-shaped calling
// convention on top of logrus, the structured logger the wider example pack
// actually depends on for this concern.
package rlog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Level is a V-logging verbosity threshold, exactly as in glog: higher
// values are more verbose, and V(n) reports whether logging at verbosity n
// is currently enabled.
type Level int32

var verbosity int32

// SetLevel sets the process-wide V-logging threshold.
func SetLevel(l Level) {
	atomic.StoreInt32(&verbosity, int32(l))
}

// V reports whether logging at the given verbosity level is enabled.
func V(level Level) bool {
	return int32(level) <= atomic.LoadInt32(&verbosity)
}

var std = logrus.New()

// Infof logs an informational message unconditionally.
func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// VInfof logs an informational message only if V(level) is enabled, tagging
// the entry with the verbosity level it was logged at.
func VInfof(level Level, format string, args ...interface{}) {
	if !V(level) {
		return
	}
	std.WithField("v", int32(level)).Infof(format, args...)
}

// Errorf logs an error message unconditionally.
func Errorf(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// Fatalf logs a message and terminates the process. Callers use this only
// for conditions the error-handling design treats as unrecoverable (park
// table allocation failure, a park/release protocol violation) — never for
// an ordinary I/O error, which should be returned to the caller instead.
func Fatalf(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}
