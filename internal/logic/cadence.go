package logic

const (
	// Jitter is the tolerated deviation of an edge from a second boundary.
	Jitter = 50
	// Second is the nominal pulse spacing in milliseconds.
	Second = 1000
	// historyLen is the number of consistent edges needed to lock.
	historyLen = 3
	// maxGap is the largest number of seconds bridged by one edge.
	maxGap = 3
)

// Cadence classifies edge timestamps against the expected one second
// spacing. A result greater than 1 means one or two pulses were missing,
// which DCF77 uses to mark the start of a minute.
// Not safe for concurrent use; the engine serializes access.
type Cadence struct {
	// history holds accepted edges, most recent first.
	history [historyLen]Ticks
	n       int
}

// NewCadence returns a tracker in calibration.
func NewCadence() *Cadence {
	return &Cadence{}
}

// Reset clears the history and re-enters calibration.
func (c *Cadence) Reset() {
	c.n = 0
}

// Calibrating reports whether the tracker has not yet locked.
func (c *Cadence) Calibrating() bool {
	return c.n < historyLen
}

// Len returns the number of edges in the history.
func (c *Cadence) Len() int {
	return c.n
}

func (c *Cadence) add(ts Ticks) {
	copy(c.history[1:], c.history[:historyLen-1])
	c.history[0] = ts
	if c.n < historyLen {
		c.n++
	}
}

// Classify returns the number of seconds elapsed since the last accepted
// edge (1, 2 or 3) or a *TickError. Every edge seen while calibrating is
// rejected, including the one that completes calibration.
func (c *Cadence) Classify(ts Ticks) (int, error) {
	if c.Calibrating() {
		c.calibrate(ts)
		return 0, &TickError{Reason: ReasonCalibrating}
	}

	elapsed := TicksDiff(ts, c.history[0])
	for i := 1; i <= maxGap; i++ {
		d := int32(i*Second) - elapsed
		if abs(d) < Jitter {
			c.add(ts)
			return i, nil
		}
		if d > 0 {
			if i == 1 {
				return 0, &TickError{Reason: ReasonEarly, Delta: elapsed}
			}
			c.Reset()
			return 0, &TickError{Reason: ReasonDrift, Delta: elapsed}
		}
	}

	c.Reset()
	return 0, &TickError{Reason: ReasonLost, Delta: elapsed}
}

func (c *Cadence) calibrate(ts Ticks) {
	for i := 0; i < c.n; i++ {
		if abs(int32((i+1)*Second)-TicksDiff(ts, c.history[i])) > Jitter {
			c.Reset()
			return
		}
	}
	c.add(ts)
}

func abs(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
