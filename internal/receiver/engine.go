// Package receiver runs the DCF77 decoding engine: it reacts to receiver
// edges, classifies them with the cadence tracker, samples each bit through
// a one-shot timer and decodes the frame at every minute boundary.
package receiver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/clock"
	"github.com/sweeney/dcf77-sensor/internal/gpio"
	"github.com/sweeney/dcf77-sensor/internal/logic"
)

// ErrReadLevel wraps a failure to sample the data line.
var ErrReadLevel = errors.New("read level")

// DefaultQueueSize is the number of notifications buffered for the sink.
const DefaultQueueSize = 128

// State is the engine's externally visible phase.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateCalibrating
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "ARMED"
	case StateCalibrating:
		return "CALIBRATING"
	case StateAccumulating:
		return "ACCUMULATING"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config tunes the engine. Zero values select the defaults.
type Config struct {
	// SampleOffset is the delay after an edge at which the line is read.
	SampleOffset time.Duration
	// MinFrameBits is the number of bits required to decode a minute.
	MinFrameBits int
	// QueueSize bounds the notifications waiting for the sink.
	QueueSize int
}

// DefaultConfig returns the standard DCF77 timing.
func DefaultConfig() Config {
	return Config{
		SampleOffset: DefaultSampleOffset,
		MinFrameBits: logic.FrameBits,
		QueueSize:    DefaultQueueSize,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleOffset <= 0 {
		c.SampleOffset = d.SampleOffset
	}
	if c.MinFrameBits <= 0 || c.MinFrameBits > logic.FrameBits {
		c.MinFrameBits = d.MinFrameBits
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}

// Diagnostics is a point-in-time view of the engine.
// It is a value type, safe to use after the lock is released.
type Diagnostics struct {
	State      State
	Bits       string
	BitCount   int
	CadenceLen int
	Dropped    uint64
}

type eventKind int

const (
	evTick eventKind = iota
	evSync
	evTickError
	evBeaconError
)

type event struct {
	kind eventKind
	bit  int
	ts   logic.Timestamp
	err  error
}

// Engine decodes DCF77 from one receiver. The edge handler and the sample
// callback run on different goroutines; mu is the critical section both
// take, and the only lock foreground readers take.
type Engine struct {
	hw    gpio.Receiver
	clk   clock.Clock
	timer clock.Timer
	sink  Sink
	cfg   Config

	mu        sync.Mutex
	armed     bool
	gen       uint64 // bumped on every Start and Stop
	sampleSeq uint64 // identifies the one sample allowed to land
	buffer    *logic.BitBuffer
	cadence   *logic.Cadence
	queue     chan event
	quit      chan struct{}
	dropped   uint64
}

// New returns an idle engine. Each engine owns its own buffer and cadence
// tracker.
func New(hw gpio.Receiver, clk clock.Clock, timer clock.Timer, sink Sink, cfg Config) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		hw:      hw,
		clk:     clk,
		timer:   timer,
		sink:    sink,
		cfg:     cfg.withDefaults(),
		buffer:  logic.NewBitBuffer(),
		cadence: logic.NewCadence(),
	}
}

// Start resets the decoder, enables edge notification and powers the
// receiver. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.armed {
		e.mu.Unlock()
		return nil
	}
	e.armed = true
	e.gen++
	e.buffer.Reset()
	e.cadence.Reset()
	e.queue = make(chan event, e.cfg.QueueSize)
	e.quit = make(chan struct{})
	go e.dispatch(e.gen, e.queue, e.quit)
	e.mu.Unlock()

	if err := e.hw.OnRisingEdge(e.handleEdge); err != nil {
		e.Stop()
		return fmt.Errorf("enable edge notification: %w", err)
	}
	if err := e.hw.SetEnabled(true); err != nil {
		e.Stop()
		return fmt.Errorf("enable receiver: %w", err)
	}
	return nil
}

// Stop disables edge notification and powers the receiver down. Stop is
// idempotent and may be called from a Sink, so it never waits for the
// dispatcher: a notification the dispatcher accepted before Stop took the
// lock may still reach the sink after Stop returns. Nothing queued behind it
// is delivered.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.armed {
		e.mu.Unlock()
		return nil
	}
	e.armed = false
	e.gen++
	e.sampleSeq++
	e.timer.Cancel()
	close(e.quit)
	e.queue, e.quit = nil, nil
	e.mu.Unlock()

	var errs []error
	if err := e.hw.ClearEdge(); err != nil {
		errs = append(errs, fmt.Errorf("clear edge notification: %w", err))
	}
	if err := e.hw.SetEnabled(false); err != nil {
		errs = append(errs, fmt.Errorf("disable receiver: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("stop errors: %v", errs)
	}
	return nil
}

// State returns the current phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	switch {
	case !e.armed:
		return StateIdle
	case e.cadence.Len() == 0:
		return StateArmed
	case e.cadence.Calibrating():
		return StateCalibrating
	}
	return StateAccumulating
}

// Snapshot returns the engine diagnostics.
func (e *Engine) Snapshot() Diagnostics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Diagnostics{
		State:      e.stateLocked(),
		Bits:       e.buffer.Bits(),
		BitCount:   e.buffer.Len(),
		CadenceLen: e.cadence.Len(),
		Dropped:    e.dropped,
	}
}

// handleEdge is the rising-edge handler.
func (e *Engine) handleEdge(ticks uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.armed {
		return
	}

	n, err := e.cadence.Classify(ticks)
	if err != nil {
		e.emit(event{kind: evTickError, err: err})
		return
	}
	if n > 1 {
		e.closeFrame()
	}
	e.scheduleSample(ticks)
}

// closeFrame decodes the bits gathered before a minute marker and starts a
// new frame.
func (e *Engine) closeFrame() {
	defer e.buffer.Reset()

	f, err := e.buffer.Frame(e.cfg.MinFrameBits)
	if err != nil {
		e.emit(event{kind: evBeaconError, err: err})
		return
	}
	ts, err := logic.Decode(f)
	if err != nil {
		e.emit(event{kind: evBeaconError, err: err})
		return
	}
	e.emit(event{kind: evSync, ts: ts})
}

func (e *Engine) scheduleSample(edge uint32) {
	e.sampleSeq++
	seq := e.sampleSeq
	delay := sampleDelay(e.cfg.SampleOffset, edge, e.clk.Ticks())
	e.timer.Schedule(delay, func() { e.sample(seq) })
}

// sample is the timer callback. A callback from before Stop or superseded
// by a later edge does nothing.
func (e *Engine) sample(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.armed || seq != e.sampleSeq {
		return
	}

	bit, err := e.hw.Level()
	if err != nil {
		e.emit(event{kind: evTickError, err: fmt.Errorf("%w: %v", ErrReadLevel, err)})
		return
	}
	e.buffer.Push(bit)
	e.emit(event{kind: evTick, bit: bit & 1})
}

// emit queues a notification without blocking; e.mu must be held.
func (e *Engine) emit(ev event) {
	select {
	case e.queue <- ev:
	default:
		e.dropped++
	}
}

func (e *Engine) live(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armed && e.gen == gen
}

// dispatch delivers queued notifications for one Start..Stop generation.
// A notification is accepted once live reports true for it.
func (e *Engine) dispatch(gen uint64, queue <-chan event, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case ev := <-queue:
			if !e.live(gen) {
				return
			}
			e.deliver(ev)
		}
	}
}

func (e *Engine) deliver(ev event) {
	switch ev.kind {
	case evTick:
		e.sink.OnTick(ev.bit)
	case evSync:
		e.sink.OnSync(ev.ts)
	case evTickError:
		e.sink.OnTickError(ev.err)
	case evBeaconError:
		e.sink.OnBeaconError(ev.err)
	}
}
