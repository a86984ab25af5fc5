// Package clock provides the millisecond tick source and the one-shot timer
// slot used by the receiver engine, with fakes for testing.
package clock

import "time"

// Clock returns a wrapping millisecond counter. It must share its time base
// with the edge timestamps delivered by the GPIO layer.
type Clock interface {
	Ticks() uint32
}

// Timer is a single one-shot timer slot. Scheduling replaces any request
// that has not fired yet.
type Timer interface {
	Schedule(d time.Duration, fn func())
	Cancel()
}
