package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RealtimeMetrics records the health of the websocket delivery path.
type RealtimeMetrics struct {
	openConnections prometheus.Gauge
	pushesSent      *prometheus.CounterVec
	pushesDropped   *prometheus.CounterVec
}

// NewRealtimeMetrics registers the realtime metrics on the provided registerer.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	openConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_open_connections",
		Help: "Currently open websocket connections.",
	})
	pushesSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_pushes_sent",
		Help: "Events handed to a connection send buffer.",
	}, []string{"event"})
	pushesDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_pushes_dropped",
		Help: "Events dropped because a connection send buffer was full.",
	}, []string{"event"})
	reg.MustRegister(openConnections, pushesSent, pushesDropped)
	return &RealtimeMetrics{
		openConnections: openConnections,
		pushesSent:      pushesSent,
		pushesDropped:   pushesDropped,
	}
}

// ConnOpened increments the open connection gauge.
func (m *RealtimeMetrics) ConnOpened() {
	if m == nil || m.openConnections == nil {
		return
	}
	m.openConnections.Inc()
}

// ConnClosed decrements the open connection gauge.
func (m *RealtimeMetrics) ConnClosed() {
	if m == nil || m.openConnections == nil {
		return
	}
	m.openConnections.Dec()
}

// IncSent counts a successful buffer handoff for the named event.
func (m *RealtimeMetrics) IncSent(event string) {
	if m == nil || m.pushesSent == nil {
		return
	}
	m.pushesSent.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncDropped counts a dropped push for the named event.
func (m *RealtimeMetrics) IncDropped(event string) {
	if m == nil || m.pushesDropped == nil {
		return
	}
	m.pushesDropped.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(event string) string {
	if event == "" {
		return "unknown"
	}
	return event
}
