//go:build linux

package park

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nbtaylor-labs/rwqueue/internal/rlog"
)

// HasFutex is true on platforms where ParkFutex/WakeFutex can be used in
// place of the portable bucketed Table: a direct futex wait avoids the
// bucket-table hash/lock round trip entirely, at the cost of being
// Linux-specific. rwqueue's block.go consults this before falling back to
// Table.Park/Release.
const HasFutex = true

const (
	futexWait = 0
	futexWake = 1
)

// ParkFutex waits on *word while *word == expect, exactly like Park except
// it is keyed directly off the wait block's flags word instead of its
// address, via the kernel's futex queue. It returns promptly (without
// sleeping) if *word has already changed by the time the syscall runs,
// which is the same "already woken, no need to sleep" race rwqueue's own
// spin phase checks for before ever reaching here.
func ParkFutex(word *uint32, expect uint32) {
	for {
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(word)),
			uintptr(futexWait),
			uintptr(expect),
			0, 0, 0,
		)
		if errno == 0 || errno == unix.EAGAIN {
			return
		}
		if errno == unix.EINTR {
			continue
		}
		rlog.Fatalf("park: futex wait failed: %v", errno)
		return
	}
}

// WakeFutex wakes a single waiter blocked in ParkFutex on word, if any.
func WakeFutex(word *uint32) {
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		uintptr(futexWake),
		1,
		0, 0, 0,
	)
}
