//go:build linux

package clock

import "golang.org/x/sys/unix"

// SystemClock reads CLOCK_MONOTONIC, the clock the GPIO character device
// stamps line events with.
type SystemClock struct{}

// Ticks returns CLOCK_MONOTONIC in milliseconds, truncated to 32 bits.
func (SystemClock) Ticks() uint32 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint32(ts.Nano() / 1e6)
}
