//go:build !linux

package gpio

import "errors"

// RealReceiver is not available on non-Linux platforms.
type RealReceiver struct{}

// NewRealReceiver returns an error on non-Linux platforms.
func NewRealReceiver(cfg Config) (*RealReceiver, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Level is not implemented on non-Linux platforms.
func (r *RealReceiver) Level() (int, error) {
	return 0, errors.New("gpio: not supported")
}

// SetEnabled is not implemented on non-Linux platforms.
func (r *RealReceiver) SetEnabled(on bool) error {
	return errors.New("gpio: not supported")
}

// OnRisingEdge is not implemented on non-Linux platforms.
func (r *RealReceiver) OnRisingEdge(fn func(ticks uint32)) error {
	return errors.New("gpio: not supported")
}

// ClearEdge is not implemented on non-Linux platforms.
func (r *RealReceiver) ClearEdge() error {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (r *RealReceiver) Close() error {
	return nil
}
