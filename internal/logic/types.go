// Package logic contains the pure DCF77 decoding logic: the bit buffer, the
// cadence tracker and the frame decoder.
// This package has NO external dependencies (no GPIO, timers, MQTT or OS).
// Time is always injected as millisecond ticks.
package logic

import (
	"fmt"
	"time"
)

// FrameBits is the number of data bits DCF77 transmits per minute.
const FrameBits = 59

// Frame is a captured minute, right-aligned, bit 0 = first bit received.
type Frame uint64

// Bit returns the value of bit i of the frame.
func (f Frame) Bit(i int) int {
	return int(f>>uint(i)) & 1
}

// Zone is the time zone announced by bits 17 and 18.
type Zone string

const (
	ZoneUnknown Zone = ""
	ZoneCET     Zone = "CET"
	ZoneCEST    Zone = "CEST"
)

// Offset returns the zone's offset from UTC in seconds.
// An unknown zone is treated as CET.
func (z Zone) Offset() int {
	if z == ZoneCEST {
		return 2 * 3600
	}
	return 3600
}

// Timestamp is a decoded minute. Second is always 0: the frame describes the
// minute starting at the boundary that ended it.
type Timestamp struct {
	Year    int
	Month   int
	Day     int
	Weekday int // ISO, 1 = Monday
	Hour    int
	Minute  int
	Second  int
	Zone    Zone
}

// Time converts the timestamp to a time.Time in a fixed zone derived from the
// announced CET/CEST flag.
func (ts Timestamp) Time() time.Time {
	name := string(ts.Zone)
	if name == "" {
		name = string(ZoneCET)
	}
	loc := time.FixedZone(name, ts.Zone.Offset())
	return time.Date(ts.Year, time.Month(ts.Month), ts.Day, ts.Hour, ts.Minute, ts.Second, 0, loc)
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute)
}

// Ticks is a wrapping millisecond counter value captured at edge time.
type Ticks = uint32

// TicksDiff returns a-b in milliseconds, correct across counter wrap as long
// as the true difference fits in an int32.
func TicksDiff(a, b Ticks) int32 {
	return int32(a - b)
}
