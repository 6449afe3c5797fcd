// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/rpsarena/network"
)

type Metrics struct {
	OnlineConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	MessageLatency    prometheus.Histogram
	CountdownsStarted prometheus.Counter
	RoundsResolved    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_connections",
			Help:      "Number of connected clients",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of client messages received",
		}, []string{"type"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		CountdownsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "countdowns_started_total",
			Help:      "Countdowns started across all rooms",
		}),
		RoundsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_resolved_total",
			Help:      "Rounds resolved by outcome",
		}, []string{"outcome"}),
	}
}

// Monitor owns a private registry so several instances can coexist, e.g. in tests.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.metrics.OnlineConnections,
		m.metrics.ActiveRooms,
		m.metrics.MessagesReceived,
		m.metrics.MessageLatency,
		m.metrics.CountdownsStarted,
		m.metrics.RoundsResolved,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) IncOnlineConnections() {
	m.metrics.OnlineConnections.Inc()
}

func (m *Monitor) DecOnlineConnections() {
	m.metrics.OnlineConnections.Dec()
}

func (m *Monitor) IncMessagesReceived(msgID uint16) {
	m.metrics.MessagesReceived.WithLabelValues(network.MsgName(msgID)).Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// --- room lifecycle observer ---

func (m *Monitor) RoomCreated() {
	m.metrics.ActiveRooms.Inc()
}

func (m *Monitor) RoomDestroyed() {
	m.metrics.ActiveRooms.Dec()
}

func (m *Monitor) CountdownStarted() {
	m.metrics.CountdownsStarted.Inc()
}

func (m *Monitor) RoundResolved(outcome string) {
	m.metrics.RoundsResolved.WithLabelValues(outcome).Inc()
}
