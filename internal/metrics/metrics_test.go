package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dcf77-sensor/internal/logic"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
)

func TestTicksByBit(t *testing.T) {
	m := New()
	m.OnTick(1)
	m.OnTick(0)
	m.OnTick(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("0")))
}

func TestSyncSetsTimestamp(t *testing.T) {
	m := New()
	ts := logic.Timestamp{Year: 2024, Month: 3, Day: 18, Weekday: 1, Hour: 14, Minute: 37, Zone: logic.ZoneCET}
	m.OnSync(ts)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncs))
	assert.Equal(t, float64(ts.Time().Unix()), testutil.ToFloat64(m.lastSync))
}

func TestErrorLabels(t *testing.T) {
	m := New()
	m.OnTickError(&logic.TickError{Reason: logic.ReasonDrift, Delta: 1051})
	m.OnTickError(&logic.TickError{Reason: logic.ReasonDrift, Delta: 1060})
	m.OnTickError(fmt.Errorf("%w: gpio gone", receiver.ErrReadLevel))
	m.OnTickError(errors.New("boom"))
	m.OnBeaconError(&logic.ParityError{Field: logic.FieldDate})
	m.OnBeaconError(&logic.IncompleteFrameError{Bits: 40})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tickErrors.WithLabelValues("drift")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tickErrors.WithLabelValues("read_level")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tickErrors.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.beaconErrors.WithLabelValues("parity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.beaconErrors.WithLabelValues("incomplete_frame")))
}

func TestUpdateEngine(t *testing.T) {
	m := New()
	m.UpdateEngine(receiver.Diagnostics{State: receiver.StateAccumulating, BitCount: 17, Dropped: 4})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.state))
	assert.Equal(t, 17.0, testutil.ToFloat64(m.frameBits))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.dropped))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.OnSync(logic.Timestamp{Year: 2024, Month: 1, Day: 1, Weekday: 1, Zone: logic.ZoneCET})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "dcf77_syncs_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.OnTick(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ticks.WithLabelValues("1")))
}
