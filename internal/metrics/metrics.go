// Package metrics exports decoder counters in the Prometheus exposition
// format. Collectors live on a private registry so tests can build as many
// instances as they like.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/dcf77-sensor/internal/logic"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
)

const namespace = "dcf77"

// Metrics is a receiver.Sink that counts engine notifications.
type Metrics struct {
	reg *prometheus.Registry

	ticks        *prometheus.CounterVec
	syncs        prometheus.Counter
	tickErrors   *prometheus.CounterVec
	beaconErrors *prometheus.CounterVec
	lastSync     prometheus.Gauge
	state        prometheus.Gauge
	frameBits    prometheus.Gauge
	dropped      prometheus.Gauge
}

var _ receiver.Sink = (*Metrics)(nil)

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Sampled second marks by bit value.",
		}, []string{"bit"}),
		syncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Minutes decoded successfully.",
		}),
		tickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_errors_total",
			Help:      "Edges rejected by the cadence tracker, by reason.",
		}, []string{"reason"}),
		beaconErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beacon_errors_total",
			Help:      "Minute boundaries with an incomplete or corrupt frame, by kind.",
		}, []string{"kind"}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the most recently decoded minute.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_state",
			Help:      "Engine phase: 0 idle, 1 armed, 2 calibrating, 3 accumulating.",
		}),
		frameBits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_bits",
			Help:      "Bits gathered in the frame in progress.",
		}),
		dropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_dropped",
			Help:      "Notifications dropped because the sink queue was full.",
		}),
	}

	m.reg.MustRegister(
		m.ticks, m.syncs, m.tickErrors, m.beaconErrors,
		m.lastSync, m.state, m.frameBits, m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) OnTick(bit int) {
	if bit&1 == 1 {
		m.ticks.WithLabelValues("1").Inc()
	} else {
		m.ticks.WithLabelValues("0").Inc()
	}
}

func (m *Metrics) OnSync(ts logic.Timestamp) {
	m.syncs.Inc()
	m.lastSync.Set(float64(ts.Time().Unix()))
}

func (m *Metrics) OnTickError(err error) {
	m.tickErrors.WithLabelValues(tickReason(err)).Inc()
}

func (m *Metrics) OnBeaconError(err error) {
	m.beaconErrors.WithLabelValues(string(logic.KindOf(err))).Inc()
}

// UpdateEngine copies the engine gauges from a diagnostics snapshot.
func (m *Metrics) UpdateEngine(d receiver.Diagnostics) {
	m.state.Set(float64(d.State))
	m.frameBits.Set(float64(d.BitCount))
	m.dropped.Set(float64(d.Dropped))
}

func tickReason(err error) string {
	var te *logic.TickError
	switch {
	case errors.As(err, &te):
		return string(te.Reason)
	case errors.Is(err, receiver.ErrReadLevel):
		return "read_level"
	}
	return string(logic.KindOther)
}
