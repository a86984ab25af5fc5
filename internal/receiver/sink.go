package receiver

import "github.com/sweeney/dcf77-sensor/internal/logic"

// Sink receives engine notifications. Methods are called one at a time from
// the engine's dispatcher goroutine, never from edge or timer context.
type Sink interface {
	// OnTick is called with every sampled bit.
	OnTick(bit int)
	// OnSync is called with the timestamp decoded at a minute boundary.
	OnSync(ts logic.Timestamp)
	// OnTickError is called for every edge rejected by the cadence tracker.
	OnTickError(err error)
	// OnBeaconError is called when a minute boundary is reached with an
	// incomplete or corrupt frame.
	OnBeaconError(err error)
}

// NopSink ignores every notification. Embed it to implement only some
// methods.
type NopSink struct{}

func (NopSink) OnTick(int)             {}
func (NopSink) OnSync(logic.Timestamp) {}
func (NopSink) OnTickError(error)      {}
func (NopSink) OnBeaconError(error)    {}

// MultiSink fans each notification out to all sinks in order.
type MultiSink []Sink

func (m MultiSink) OnTick(bit int) {
	for _, s := range m {
		s.OnTick(bit)
	}
}

func (m MultiSink) OnSync(ts logic.Timestamp) {
	for _, s := range m {
		s.OnSync(ts)
	}
}

func (m MultiSink) OnTickError(err error) {
	for _, s := range m {
		s.OnTickError(err)
	}
}

func (m MultiSink) OnBeaconError(err error) {
	for _, s := range m {
		s.OnBeaconError(err)
	}
}
