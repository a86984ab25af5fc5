package main

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dcf77-sensor/internal/config"
	"github.com/sweeney/dcf77-sensor/internal/logic"
	"github.com/sweeney/dcf77-sensor/internal/mqtt"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
	"github.com/sweeney/dcf77-sensor/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	assert.Equal(t, "NETWORK_TYPE", envNetworkType)
	assert.Equal(t, "NETWORK_IP", envNetworkIP)
	assert.Equal(t, "NETWORK_STATUS", envNetworkStatus)
	assert.Equal(t, "NETWORK_GATEWAY", envNetworkGateway)
	assert.Equal(t, "NETWORK_WIFI_STATUS", envNetworkWifiStatus)
	assert.Equal(t, "NETWORK_WIFI_SSID", envNetworkWifiSSID)
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}, *info)
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	assert.Nil(t, readNetworkInfo())
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, "connected", info.Status)
	assert.Empty(t, info.IP)
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// fakeEngine returns a fixed diagnostics snapshot and counts polls.
type fakeEngine struct {
	mu    sync.Mutex
	diag  receiver.Diagnostics
	polls int
}

func (f *fakeEngine) Snapshot() receiver.Diagnostics {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.diag
}

type gaugeRecorder struct {
	last receiver.Diagnostics
	n    int
}

func (g *gaugeRecorder) UpdateEngine(d receiver.Diagnostics) {
	g.last = d
	g.n++
}

type loopRun struct {
	engine  *fakeEngine
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	gauges  *gaugeRecorder
}

func newLoopRun() *loopRun {
	return &loopRun{
		engine:  &fakeEngine{diag: receiver.Diagnostics{State: receiver.StateAccumulating, Bits: "010010001101", BitCount: 12, Dropped: 1}},
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Broker: "tcp://broker:1883"}),
		gauges:  &gaugeRecorder{},
	}
}

// run drives runLoop with nTicks ticks followed by signal.
func (r *loopRun) run(t *testing.T, heartbeat time.Duration, clock func() time.Time, nTicks int, signal os.Signal) {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(r.engine, r.pub, r.pub, r.tracker, r.gauges, heartbeat, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return after signal")
	}
}

func systemEvents(pub *mqtt.FakePublisher) []string {
	var out []string
	for _, se := range pub.RecordedSystem() {
		out = append(out, se.Event)
	}
	return out
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	r := newLoopRun()
	r.run(t, 0, fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second), 2, syscall.SIGTERM)

	events := r.pub.RecordedSystem()
	require.Len(t, events, 1)
	assert.Equal(t, "SHUTDOWN", events[0].Event)
	assert.Equal(t, "SIGTERM", events[0].Reason)
	assert.True(t, events[0].Retained)

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(events[0].RawPayload, &sj))
	assert.Equal(t, "SHUTDOWN", sj.Status.Event)
	assert.Equal(t, "SIGTERM", sj.Status.Reason)
	assert.Equal(t, "ACCUMULATING", sj.Status.State)
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	r := newLoopRun()
	r.run(t, 0, fakeClock(time.Now(), time.Second), 0, syscall.SIGINT)

	events := r.pub.RecordedSystem()
	require.Len(t, events, 1)
	assert.Equal(t, "SIGINT", events[0].Reason)
}

func TestRunLoopRefreshesStatus(t *testing.T) {
	r := newLoopRun()
	r.pub.Connected = true
	r.run(t, 0, fakeClock(time.Now(), time.Second), 3, syscall.SIGTERM)

	// Three ticks plus the final refresh at shutdown.
	assert.Equal(t, 4, r.engine.polls)
	assert.Equal(t, 4, r.gauges.n)
	assert.Equal(t, 12, r.gauges.last.BitCount)

	snap := r.tracker.Snapshot()
	assert.Equal(t, receiver.StateAccumulating, snap.State)
	assert.Equal(t, "010010001101", snap.Bits)
	assert.Equal(t, uint64(1), snap.Dropped)
	assert.True(t, snap.MQTTConnected)
}

func TestRunLoopHeartbeat(t *testing.T) {
	// Clock calls: start, then one per tick at 5 minute steps. With a 15
	// minute interval the third tick is the only heartbeat among four.
	r := newLoopRun()
	r.tracker.OnSync(logic.Timestamp{Year: 2026, Month: 1, Day: 1, Weekday: 4, Zone: logic.ZoneCET})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 5*time.Minute)
	r.run(t, 15*time.Minute, clock, 4, syscall.SIGTERM)

	assert.Equal(t, []string{"HEARTBEAT", "SHUTDOWN"}, systemEvents(r.pub))

	hb := r.pub.RecordedSystem()[0]
	assert.False(t, hb.Retained)
	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(hb.RawPayload, &sj))
	assert.Equal(t, "HEARTBEAT", sj.Status.Event)
	assert.True(t, sj.Status.Synced)
	assert.Equal(t, 1, sj.Status.Counts.Syncs)
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	r := newLoopRun()
	r.run(t, 0, fakeClock(time.Now(), time.Hour), 5, syscall.SIGTERM)
	assert.Equal(t, []string{"SHUTDOWN"}, systemEvents(r.pub))
}

func TestRunLoopHeartbeatIncludesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "10.0.0.7")

	r := newLoopRun()
	r.run(t, time.Minute, fakeClock(time.Now(), time.Minute), 1, syscall.SIGTERM)

	events := r.pub.RecordedSystem()
	require.Len(t, events, 2)
	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(events[0].RawPayload, &sj))
	require.NotNil(t, sj.Status.Network)
	assert.Equal(t, "10.0.0.7", sj.Status.Network.IP)
}

func TestRunLoopPublishError(t *testing.T) {
	r := newLoopRun()
	r.pub.PublishSystemError = errors.New("broker gone")

	// Heartbeat and shutdown both fail; the loop still exits cleanly.
	r.run(t, time.Minute, fakeClock(time.Now(), time.Minute), 2, syscall.SIGTERM)
	assert.Empty(t, r.pub.RecordedSystem())
}

func TestOpenPublisherDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Broker = ""

	pub, err := openPublisher(cfg)
	require.NoError(t, err)
	assert.False(t, pub.IsConnected())
	assert.NoError(t, pub.Publish(mqtt.Event{Type: mqtt.EventSync}))
	assert.NoError(t, pub.PublishSystem(mqtt.SystemEvent{Event: "STARTUP"}))
	assert.NoError(t, pub.Close())
}

func TestOpenReceiverSimulated(t *testing.T) {
	cfg := config.Default()
	cfg.Simulate = true

	hw, err := openReceiver(cfg)
	require.NoError(t, err)
	defer hw.Close()

	level, err := hw.Level()
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, level)
}

func TestLogSinkImplementsSink(t *testing.T) {
	var s receiver.Sink = logSink{}
	assert.NotPanics(t, func() {
		s.OnTick(1)
		s.OnSync(logic.Timestamp{Year: 2024, Month: 3, Day: 18, Weekday: 1, Hour: 14, Minute: 37, Zone: logic.ZoneCET})
		s.OnTickError(&logic.TickError{Reason: logic.ReasonEarly, Delta: 400})
		s.OnBeaconError(&logic.IncompleteFrameError{Bits: 30})
	})
}
