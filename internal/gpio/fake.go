package gpio

import (
	"errors"
	"sync"
)

// FakeReceiver is a test double with scripted line levels and manually
// triggered edges.
type FakeReceiver struct {
	mu sync.Mutex
	// levels contains scripted values; each Level() consumes one.
	levels []int
	// last is returned once the script is exhausted.
	last    int
	handler func(uint32)

	// LevelError, if set, will be returned by Level().
	LevelError error
	// EdgeError, if set, will be returned by OnRisingEdge().
	EdgeError error
	// Enabled reflects the last SetEnabled call.
	Enabled bool
	// EnableCalls records every SetEnabled argument.
	EnableCalls []bool
	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeReceiver creates a FakeReceiver returning the given levels in order.
func NewFakeReceiver(levels ...int) *FakeReceiver {
	return &FakeReceiver{levels: levels}
}

// Level returns the next scripted level.
// If the script is exhausted, the last level is returned repeatedly.
func (f *FakeReceiver) Level() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LevelError != nil {
		return 0, f.LevelError
	}
	if len(f.levels) > 0 {
		f.last = f.levels[0]
		f.levels = f.levels[1:]
	}
	return f.last, nil
}

// Script appends levels to be returned by subsequent Level calls.
func (f *FakeReceiver) Script(levels ...int) {
	f.mu.Lock()
	f.levels = append(f.levels, levels...)
	f.mu.Unlock()
}

// SetEnabled records the receiver power state.
func (f *FakeReceiver) SetEnabled(on bool) error {
	f.mu.Lock()
	f.Enabled = on
	f.EnableCalls = append(f.EnableCalls, on)
	f.mu.Unlock()
	return nil
}

// OnRisingEdge stores the handler for Edge.
func (f *FakeReceiver) OnRisingEdge(fn func(ticks uint32)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EdgeError != nil {
		return f.EdgeError
	}
	f.handler = fn
	return nil
}

// ClearEdge removes the handler.
func (f *FakeReceiver) ClearEdge() error {
	f.mu.Lock()
	f.handler = nil
	f.mu.Unlock()
	return nil
}

// Listening reports whether an edge handler is installed.
func (f *FakeReceiver) Listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

// Edge delivers a rising edge stamped ticks and reports whether a handler
// received it.
func (f *FakeReceiver) Edge(ticks uint32) bool {
	f.mu.Lock()
	fn := f.handler
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(ticks)
	return true
}

// Close marks the receiver as closed.
func (f *FakeReceiver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return errors.New("gpio: already closed")
	}
	f.Closed = true
	f.handler = nil
	return nil
}
