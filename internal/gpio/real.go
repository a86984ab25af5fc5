//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"
)

// RealReceiver drives a DCF77 module through the Linux GPIO character device.
type RealReceiver struct {
	cfg     Config
	chip    *gpiocdev.Chip
	data    *gpiocdev.Line
	enable  *gpiocdev.Line
	handler atomic.Pointer[func(uint32)]
}

// NewRealReceiver requests the data and enable lines. The receiver starts
// powered off.
func NewRealReceiver(cfg Config) (*RealReceiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReceiver{cfg: cfg, chip: chip}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(r.onEvent),
	}
	switch cfg.Bias {
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case BiasNone:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}

	r.data, err = chip.RequestLine(cfg.DataPin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request data pin %d: %w", cfg.DataPin, err)
	}

	if cfg.EnablePin >= 0 {
		r.enable, err = chip.RequestLine(cfg.EnablePin, gpiocdev.AsOutput(cfg.enableValue(false)))
		if err != nil {
			r.data.Close()
			chip.Close()
			return nil, fmt.Errorf("request enable pin %d: %w", cfg.EnablePin, err)
		}
	}

	return r, nil
}

// onEvent runs on the gpiocdev watcher goroutine, one event at a time.
// Event timestamps come from CLOCK_MONOTONIC, the same base as
// clock.SystemClock.
func (r *RealReceiver) onEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}
	fn := r.handler.Load()
	if fn == nil {
		return
	}
	(*fn)(uint32(evt.Timestamp.Milliseconds()))
}

// Level returns the raw data line value.
func (r *RealReceiver) Level() (int, error) {
	v, err := r.data.Value()
	if err != nil {
		return 0, fmt.Errorf("read data pin: %w", err)
	}
	return v, nil
}

// SetEnabled drives the enable line, honouring EnableActiveLow.
func (r *RealReceiver) SetEnabled(on bool) error {
	if r.enable == nil {
		return nil
	}
	if err := r.enable.SetValue(r.cfg.enableValue(on)); err != nil {
		return fmt.Errorf("set enable pin: %w", err)
	}
	return nil
}

// OnRisingEdge installs the edge handler.
func (r *RealReceiver) OnRisingEdge(fn func(ticks uint32)) error {
	if fn == nil {
		return r.ClearEdge()
	}
	r.handler.Store(&fn)
	return nil
}

// ClearEdge removes the edge handler; events still arriving are dropped.
func (r *RealReceiver) ClearEdge() error {
	r.handler.Store(nil)
	return nil
}

// Close releases GPIO resources.
// Reconfigures the enable pin to input with pull-down (matching Pi boot
// defaults) before closing so the module is not left driven.
func (r *RealReceiver) Close() error {
	var errs []error

	r.handler.Store(nil)
	if r.data != nil {
		if err := r.data.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data pin: %w", err))
		}
	}
	if r.enable != nil {
		if err := r.enable.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			log.Warnf("gpio: reconfigure enable pin: %v", err)
		}
		if err := r.enable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close enable pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
