package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually driven Clock.
type FakeClock struct {
	mu  sync.Mutex
	now uint32
}

// NewFakeClock returns a clock reading start.
func NewFakeClock(start uint32) *FakeClock {
	return &FakeClock{now: start}
}

// Ticks returns the current fake time.
func (c *FakeClock) Ticks() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to ticks.
func (c *FakeClock) Set(ticks uint32) {
	c.mu.Lock()
	c.now = ticks
	c.mu.Unlock()
}

// Advance moves the clock forward by ms.
func (c *FakeClock) Advance(ms uint32) {
	c.mu.Lock()
	c.now += ms
	c.mu.Unlock()
}

// FakeTimer records scheduled calls; tests fire them explicitly.
type FakeTimer struct {
	mu sync.Mutex
	fn func()
	// Delays contains the delay of every Schedule call, in order.
	Delays []time.Duration
	// Cancels counts Cancel calls.
	Cancels int
}

// NewFakeTimer returns an idle fake timer.
func NewFakeTimer() *FakeTimer {
	return &FakeTimer{}
}

// Schedule records the request, replacing any pending one.
func (f *FakeTimer) Schedule(d time.Duration, fn func()) {
	f.mu.Lock()
	f.fn = fn
	f.Delays = append(f.Delays, d)
	f.mu.Unlock()
}

// Cancel drops the pending request.
func (f *FakeTimer) Cancel() {
	f.mu.Lock()
	f.fn = nil
	f.Cancels++
	f.mu.Unlock()
}

// Pending reports whether a request is waiting to fire.
func (f *FakeTimer) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fn != nil
}

// LastDelay returns the delay of the most recent Schedule call.
func (f *FakeTimer) LastDelay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Delays) == 0 {
		return -1
	}
	return f.Delays[len(f.Delays)-1]
}

// Scheduled returns the number of Schedule calls so far.
func (f *FakeTimer) Scheduled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Delays)
}

// Fire runs the pending request, if any, and reports whether it ran.
func (f *FakeTimer) Fire() bool {
	f.mu.Lock()
	fn := f.fn
	f.fn = nil
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Take removes and returns the pending request without running it, so a
// test can run it later, e.g. after Stop.
func (f *FakeTimer) Take() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn := f.fn
	f.fn = nil
	return fn
}
