package clock

import (
	"sync"
	"time"
)

// AfterFuncTimer implements Timer on top of time.AfterFunc.
type AfterFuncTimer struct {
	mu sync.Mutex
	t  *time.Timer
}

// NewTimer returns an idle timer slot.
func NewTimer() *AfterFuncTimer {
	return &AfterFuncTimer{}
}

// Schedule arranges for fn to run once after d, cancelling any pending call.
func (a *AfterFuncTimer) Schedule(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	a.mu.Lock()
	if a.t != nil {
		a.t.Stop()
	}
	a.t = time.AfterFunc(d, fn)
	a.mu.Unlock()
}

// Cancel stops a pending call. A call that already started is not affected.
func (a *AfterFuncTimer) Cancel() {
	a.mu.Lock()
	if a.t != nil {
		a.t.Stop()
		a.t = nil
	}
	a.mu.Unlock()
}
