//go:build !linux

package park

// HasFutex is false on platforms with no direct futex syscall wrapper
// wired up; rwqueue always falls back to the portable bucketed Table here.
const HasFutex = false

// ParkFutex and WakeFutex are unreachable when HasFutex is false; they exist
// so rwqueue's block.go can reference them unconditionally.
func ParkFutex(word *uint32, expect uint32) { panic("park: ParkFutex unavailable on this platform") }
func WakeFutex(word *uint32)                { panic("park: WakeFutex unavailable on this platform") }
