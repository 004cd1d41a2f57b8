package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Connections prometheus.Gauge
	Events      *prometheus.CounterVec
	CallsReaped prometheus.Counter
	SlowDropped prometheus.Counter
}

// New registers the hub collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "hub_active_connections",
			Help: "Active websocket connections",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_events_total",
			Help: "Inbound socket events by name and result",
		}, []string{"event", "result"}),
		CallsReaped: f.NewCounter(prometheus.CounterOpts{
			Name: "calls_reaped_total",
			Help: "Calls marked missed by the stale-call reaper",
		}),
		SlowDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "hub_slow_connections_dropped_total",
			Help: "Connections closed because their send buffer was full",
		}),
	}
}

// Event records one handled inbound event.
func (m *Metrics) Event(name string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Events.WithLabelValues(name, result).Inc()
}
