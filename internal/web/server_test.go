package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dcf77-sensor/internal/logic"
	"github.com/sweeney/dcf77-sensor/internal/metrics"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
	"github.com/sweeney/dcf77-sensor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Chip:           "gpiochip0",
		DataPin:        17,
		EnablePin:      27,
		SampleOffsetMs: 150,
		HeartbeatMs:    900000,
		Broker:         "tcp://192.168.1.200:1883",
		HTTPPort:       ":80",
	}
	tr := status.NewTracker(start, cfg)
	m := metrics.New()
	srv := New(":0", tr, m.Handler())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sj))
	return sj
}

func getBody(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.OnTick(1)
	tr.OnTick(0)
	tr.OnSync(logic.Timestamp{Year: 2024, Month: 3, Day: 18, Weekday: 1, Hour: 14, Minute: 37, Zone: logic.ZoneCET})
	tr.OnTick(1)
	tr.UpdateEngine(receiver.Diagnostics{State: receiver.StateAccumulating, Bits: "1", BitCount: 1, Dropped: 2})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL)
	assert.Equal(t, "ACCUMULATING", sj.Status.State)
	assert.True(t, sj.Status.Synced)
	require.NotNil(t, sj.Status.LastSync)
	assert.Equal(t, "2024-03-18T14:37:00+01:00", sj.Status.LastSync.Time)
	assert.Equal(t, "CET", sj.Status.LastSync.Zone)
	assert.Equal(t, "1", sj.Status.Bits)
	assert.Equal(t, 3, sj.Status.Counts.Ticks)
	assert.Equal(t, 1, sj.Status.Counts.Syncs)
	assert.Equal(t, uint64(2), sj.Status.Counts.Dropped)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, int64(150), sj.Status.Config.SampleOffsetMs)
	assert.Equal(t, 17, sj.Status.Config.DataPin)
}

func TestJSONBeforeSync(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL)
	assert.Equal(t, "IDLE", sj.Status.State)
	assert.False(t, sj.Status.Synced)
	assert.Nil(t, sj.Status.LastSync)
	assert.Nil(t, sj.Status.LastError)
}

func TestJSONLastError(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.OnBeaconError(&logic.ParityError{Field: logic.FieldMinute, Data: 0b1})

	sj := getJSON(t, ts.URL)
	require.NotNil(t, sj.Status.LastError)
	assert.Equal(t, "parity", sj.Status.LastError.Kind)
	assert.Equal(t, 1, sj.Status.Counts.BeaconErrors)
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL)
	require.NotNil(t, sj.Status.Network)
	assert.Equal(t, "192.168.1.42", sj.Status.Network.IP)
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.UpdateEngine(receiver.Diagnostics{State: receiver.StateCalibrating})

	code, ct, body := getBody(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, ct, "text/html")
	assert.Contains(t, body, "CALIBRATING")
	assert.Contains(t, body, "not synced")
}

func TestHTMLShowsLastSync(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.OnSync(logic.Timestamp{Year: 2019, Month: 7, Day: 31, Weekday: 3, Hour: 21, Minute: 45, Zone: logic.ZoneCEST})

	code, _, body := getBody(t, ts.URL+"/index.html")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "2019-07-31 21:45 CEST")
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, _, _ := getBody(t, ts.URL+"/nonexistent")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.OnTick(1)

	code, _, body := getBody(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `dcf77_ticks_total{bit="1"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	srv := New(":0", tr, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Falls through to the index handler, which rejects the path.
	code, _, _ := getBody(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}
