package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the runner's counters and gauges, kept on a private registry so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	SourceCycles prometheus.Counter
	SlowTicks    prometheus.Counter
	FloorChanges prometheus.Counter
	Resets       *prometheus.CounterVec
	Floor        prometheus.Gauge
	Frames       *prometheus.CounterVec
}

// NewMetrics registers the controller metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SourceCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lift_source_cycles_total",
			Help: "Simulated source clock cycles.",
		}),
		SlowTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lift_slow_ticks_total",
			Help: "Rising edges of the divided clock seen by the floor state machine.",
		}),
		FloorChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lift_floor_changes_total",
			Help: "Floor code transitions.",
		}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lift_resets_total",
			Help: "Reset assertions per domain.",
		}, []string{"domain"}),
		Floor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lift_floor_code",
			Help: "Current floor code.",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lift_board_frames_total",
			Help: "Output frames sent to the board, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.SourceCycles, m.SlowTicks, m.FloorChanges, m.Resets, m.Floor, m.Frames)
	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
