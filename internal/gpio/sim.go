package gpio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/sweeney/dcf77-sensor/internal/clock"
	"github.com/sweeney/dcf77-sensor/internal/logic"
)

// Pulse durations for a 0 and a 1 bit.
const (
	PulseZero = 100 * time.Millisecond
	PulseOne  = 200 * time.Millisecond
)

// Pulse returns whether second sec of the minute carries an edge and how
// long the line stays high. Second 59 has no pulse: it marks the minute.
func Pulse(f logic.Frame, sec int) (bool, time.Duration) {
	if sec < 0 || sec >= logic.FrameBits {
		return false, 0
	}
	if f.Bit(sec) == 1 {
		return true, PulseOne
	}
	return true, PulseZero
}

var berlin = loadBerlin()

func loadBerlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}

// TimestampFor returns the DCF77 representation of the minute containing t.
func TimestampFor(t time.Time) logic.Timestamp {
	t = t.In(berlin)
	zone := logic.ZoneCET
	if name, _ := t.Zone(); name == "CEST" {
		zone = logic.ZoneCEST
	}
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return logic.Timestamp{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Weekday: wd,
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Zone:    zone,
	}
}

// Simulator implements Receiver in software, transmitting the wall-clock
// time the way the Mainflingen transmitter does. During each minute it sends
// the frame for the following minute.
type Simulator struct {
	clk clock.Clock

	level   atomic.Int32
	enabled atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator returns a simulator stamping edges with clk.
func NewSimulator(clk clock.Clock) *Simulator {
	return &Simulator{clk: clk}
}

// Level returns the simulated line level.
func (s *Simulator) Level() (int, error) {
	return int(s.level.Load()), nil
}

// SetEnabled gates edge generation.
func (s *Simulator) SetEnabled(on bool) error {
	s.enabled.Store(on)
	return nil
}

// OnRisingEdge starts the transmitter goroutine.
func (s *Simulator) OnRisingEdge(fn func(ticks uint32)) error {
	s.ClearEdge()

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, fn, s.done)
	return nil
}

// ClearEdge stops the transmitter goroutine and waits for it to exit.
func (s *Simulator) ClearEdge() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// Close stops the simulator.
func (s *Simulator) Close() error {
	return s.ClearEdge()
}

func (s *Simulator) run(ctx context.Context, fn func(uint32), done chan struct{}) {
	defer close(done)

	var minute time.Time
	var frame logic.Frame
	for {
		next := time.Now().Truncate(time.Second).Add(time.Second)
		wait := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			wait.Stop()
			return
		case <-wait.C:
		}

		if start := next.Truncate(time.Minute); !start.Equal(minute) {
			minute = start
			frame = logic.Encode(TimestampFor(start.Add(time.Minute)))
		}

		edge, duty := Pulse(frame, next.Second())
		if !edge || !s.enabled.Load() {
			continue
		}
		s.level.Store(1)
		fn(s.clk.Ticks())
		time.AfterFunc(duty, func() { s.level.Store(0) })
	}
}
