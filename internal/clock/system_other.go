//go:build !linux

package clock

import "time"

var epoch = time.Now()

// SystemClock counts milliseconds since process start on non-Linux
// platforms, where only the simulator produces edges.
type SystemClock struct{}

// Ticks returns the milliseconds elapsed since process start.
func (SystemClock) Ticks() uint32 {
	return uint32(time.Since(epoch).Milliseconds())
}
