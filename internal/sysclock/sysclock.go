// Package sysclock steps the system clock to each decoded DCF77 minute.
package sysclock

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/sweeney/dcf77-sensor/internal/logic"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
)

// DefaultTolerance is the offset below which the clock is left alone.
const DefaultTolerance = 500 * time.Millisecond

// Sink sets the system time on every sync. The frame ends at second 0 of the
// minute it names, so the decoded time is used as is.
type Sink struct {
	receiver.NopSink
	Tolerance time.Duration

	now func() time.Time
	set func(time.Time) error
}

// New returns a Sink that sets the clock through settimeofday(2).
func New() *Sink {
	return &Sink{Tolerance: DefaultTolerance, now: time.Now, set: setSystemTime}
}

// OnSync steps the clock if it is off by more than the tolerance.
func (s *Sink) OnSync(ts logic.Timestamp) {
	want := ts.Time()
	skew := s.now().Sub(want)
	if skew < 0 {
		skew = -skew
	}
	if skew < s.Tolerance {
		log.Debugf("sysclock: within %v of %s, not adjusting", skew, ts)
		return
	}
	if err := s.set(want); err != nil {
		log.Errorf("sysclock: set time to %s: %v", want.Format(time.RFC3339), err)
		return
	}
	log.Infof("sysclock: stepped clock by %v to %s", skew, want.Format(time.RFC3339))
}
