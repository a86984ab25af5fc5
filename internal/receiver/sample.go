package receiver

import (
	"time"

	"github.com/sweeney/dcf77-sensor/internal/logic"
)

// DefaultSampleOffset is where the bit is read inside the one second cell:
// after a 0 pulse (100ms) has ended and before a 1 pulse (200ms) has.
const DefaultSampleOffset = 150 * time.Millisecond

// sampleDelay returns how long to wait from now so the line is sampled at
// edge+offset, compensating for the time edge handling already took.
func sampleDelay(offset time.Duration, edge, now logic.Ticks) time.Duration {
	d := offset - time.Duration(logic.TicksDiff(now, edge))*time.Millisecond
	if d < 0 {
		return 0
	}
	return d
}
