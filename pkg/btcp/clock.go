package btcp

import "golang.org/x/sys/unix"

// nowMicros returns a monotonic timestamp in microseconds, read straight
// from CLOCK_MONOTONIC the way runZeroInc-sockstats' tcpinfo bindings and
// the teacher's own low-level pkg/common helpers reach for a raw syscall
// instead of going through a higher-level wrapper. Used by the send engine
// to stamp pending segments (SPEC_FULL.md §4.4's now_monotonic_microseconds).
func nowMicros() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// CLOCK_MONOTONIC is always available on the platforms bTCP
		// targets; a failure here means something is badly wrong with
		// the host, not a condition the timer loop can recover from.
		panic("btcp: clock_gettime(CLOCK_MONOTONIC): " + err.Error())
	}
	return ts.Sec*1_000_000 + ts.Nsec/1_000
}
