package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTick means an edge did not fit the expected cadence.
	ErrInvalidTick = errors.New("invalid tick")
	// ErrIncompleteFrame means a minute boundary arrived before a full frame.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrParity means a decoded field failed its even parity check.
	ErrParity = errors.New("parity error")
)

// Kind tags an engine error so callers can branch without type switches.
type Kind string

const (
	KindOther           Kind = "other"
	KindInvalidTick     Kind = "invalid_tick"
	KindIncompleteFrame Kind = "incomplete_frame"
	KindParity          Kind = "parity"
)

// KindOf returns the kind of err, KindOther if it is not a decoding error.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidTick):
		return KindInvalidTick
	case errors.Is(err, ErrIncompleteFrame):
		return KindIncompleteFrame
	case errors.Is(err, ErrParity):
		return KindParity
	}
	return KindOther
}

// TickReason says why an edge was rejected.
type TickReason string

const (
	// ReasonCalibrating: the tracker has not yet seen a stable cadence.
	ReasonCalibrating TickReason = "calibrating"
	// ReasonEarly: the edge arrived before the next second boundary.
	ReasonEarly TickReason = "early"
	// ReasonDrift: the edge overshot a second boundary beyond tolerance.
	ReasonDrift TickReason = "drift"
	// ReasonLost: more than three seconds elapsed without an edge.
	ReasonLost TickReason = "lost"
)

// TickError is returned by Cadence.Classify for rejected edges.
type TickError struct {
	Reason TickReason
	// Delta is the elapsed time since the last accepted edge in ms,
	// 0 while calibrating with an empty history.
	Delta int32
}

func (e *TickError) Error() string {
	if e.Delta == 0 {
		return fmt.Sprintf("invalid tick: %s", e.Reason)
	}
	return fmt.Sprintf("invalid tick: %s (delta %dms)", e.Reason, e.Delta)
}

func (e *TickError) Is(target error) bool {
	return target == ErrInvalidTick
}

// IncompleteFrameError is returned when extracting a frame too early.
type IncompleteFrameError struct {
	Bits int
}

func (e *IncompleteFrameError) Error() string {
	return fmt.Sprintf("incomplete frame: %d of %d bits", e.Bits, FrameBits)
}

func (e *IncompleteFrameError) Is(target error) bool {
	return target == ErrIncompleteFrame
}

// Field names a parity-protected block of the frame.
type Field string

const (
	FieldMinute Field = "minute"
	FieldHour   Field = "hour"
	FieldDate   Field = "date"
)

// ParityError names the first field that failed its parity check.
type ParityError struct {
	Field Field
	Data  uint32
}

func (e *ParityError) Error() string {
	return fmt.Sprintf("invalid parity on %s: %b", e.Field, e.Data)
}

func (e *ParityError) Is(target error) bool {
	return target == ErrParity
}
