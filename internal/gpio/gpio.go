// Package gpio connects the DCF77 receiver module to the decoding engine.
// The real implementation uses the Linux GPIO character device.
// The fake and simulator implementations allow running without hardware.
package gpio

import "fmt"

// Receiver is the hardware capability the engine consumes: one data input
// with rising-edge notification and one receiver enable output.
type Receiver interface {
	// Level returns the instantaneous logic level (0 or 1) of the data line.
	Level() (int, error)

	// SetEnabled powers the receiver module on or off.
	SetEnabled(on bool) error

	// OnRisingEdge registers fn to be called with the edge timestamp in
	// milliseconds for every rising edge. It replaces any previous handler.
	OnRisingEdge(fn func(ticks uint32)) error

	// ClearEdge removes the edge handler.
	ClearEdge() error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultDataPin   = 17
	DefaultEnablePin = 27
	DefaultChip      = "gpiochip0"
)

// Bias is the input line termination.
type Bias string

const (
	BiasPullUp   Bias = "pullup"
	BiasPullDown Bias = "pulldown"
	BiasNone     Bias = "none"
)

// Config selects the lines the receiver module is wired to.
type Config struct {
	Chip    string
	DataPin int
	Bias    Bias
	// EnablePin drives the receiver power-on input; negative disables it.
	EnablePin int
	// EnableActiveLow is set for modules whose PON input enables at 0.
	EnableActiveLow bool
}

// DefaultConfig returns the wiring used by the reference board.
func DefaultConfig() Config {
	return Config{
		Chip:            DefaultChip,
		DataPin:         DefaultDataPin,
		Bias:            BiasPullUp,
		EnablePin:       DefaultEnablePin,
		EnableActiveLow: true,
	}
}

// Validate checks the configuration before any line is requested.
func (c Config) Validate() error {
	if c.Chip == "" {
		return fmt.Errorf("gpio: chip name is required")
	}
	if c.DataPin < 0 {
		return fmt.Errorf("gpio: invalid data pin %d", c.DataPin)
	}
	if c.EnablePin == c.DataPin {
		return fmt.Errorf("gpio: data and enable pin are both %d", c.DataPin)
	}
	switch c.Bias {
	case BiasPullUp, BiasPullDown, BiasNone:
	default:
		return fmt.Errorf("gpio: invalid bias %q", c.Bias)
	}
	return nil
}

// enableValue returns the raw output value that puts the receiver in the
// requested power state.
func (c Config) enableValue(on bool) int {
	if on != c.EnableActiveLow {
		return 1
	}
	return 0
}
