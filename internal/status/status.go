// Package status provides a thread-safe status tracker for the dcf77-sensor
// daemon. It is fed by the receiver engine as a Sink and read by HTTP
// handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/logic"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip           string
	DataPin        int
	EnablePin      int
	SampleOffsetMs int64
	HeartbeatMs    int64
	Broker         string
	HTTPPort       string
	Simulate       bool
	SetClock       bool
}

// Counts tracks the number of each notification since startup.
type Counts struct {
	Ticks        int
	Syncs        int
	TickErrors   int
	BeaconErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         receiver.State
	Bits          string
	Counts        Counts
	LastSync      *logic.Timestamp
	LastSyncAt    time.Time
	LastError     string
	LastErrorKind logic.Kind
	LastErrorAt   time.Time
	Dropped       uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Synced reports whether at least one minute has been decoded.
func (s Snapshot) Synced() bool {
	return s.LastSync != nil
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

var _ receiver.Sink = (*Tracker)(nil)

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// OnTick counts a sampled bit.
func (t *Tracker) OnTick(int) {
	t.mu.Lock()
	t.snap.Counts.Ticks++
	t.mu.Unlock()
}

// OnSync records the decoded minute.
func (t *Tracker) OnSync(ts logic.Timestamp) {
	t.mu.Lock()
	t.snap.Counts.Syncs++
	t.snap.LastSync = &ts
	t.snap.LastSyncAt = t.now()
	t.mu.Unlock()
}

// OnTickError counts a rejected edge.
func (t *Tracker) OnTickError(err error) {
	t.mu.Lock()
	t.snap.Counts.TickErrors++
	t.setError(err)
	t.mu.Unlock()
}

// OnBeaconError counts a failed minute.
func (t *Tracker) OnBeaconError(err error) {
	t.mu.Lock()
	t.snap.Counts.BeaconErrors++
	t.setError(err)
	t.mu.Unlock()
}

func (t *Tracker) setError(err error) {
	t.snap.LastError = err.Error()
	t.snap.LastErrorKind = logic.KindOf(err)
	t.snap.LastErrorAt = t.now()
}

// UpdateEngine copies the engine phase, the frame in progress and queue
// drops.
func (t *Tracker) UpdateEngine(d receiver.Diagnostics) {
	t.mu.Lock()
	t.snap.State = d.State
	t.snap.Bits = d.Bits
	t.snap.Dropped = d.Dropped
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastSync != nil {
		ts := *s.LastSync
		s.LastSync = &ts
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
