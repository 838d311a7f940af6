package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the stream engine.
// Each instance owns its registry, so tests can create them freely.
type Metrics struct {
	registry *prometheus.Registry

	// Connection metrics
	Connections prometheus.Gauge
	Topics      prometheus.Gauge

	// Delivery metrics
	MessagesSent    *prometheus.CounterVec
	MessagesDropped *prometheus.CounterVec
	SendFailures    prometheus.Counter

	// Protocol metrics
	FramesReceived prometheus.Counter
	DecodeErrors   prometheus.Counter

	// Simulator metrics
	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram
}

// New creates a Metrics with its own registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of live streaming connections",
		}),

		Topics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "topics",
			Help:      "Number of topics with at least one subscriber",
		}),

		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound envelopes queued for delivery, by type",
		}, []string{"type"}),

		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Outbound envelopes shed under backpressure, by type",
		}, []string{"type"}),

		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Deliveries that failed and disconnected the client",
		}),

		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Inbound client frames",
		}),

		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Inbound frames that failed to decode",
		}),

		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulator_ticks_total",
			Help:      "Completed simulation ticks",
		}),

		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulator_tick_duration_seconds",
			Help:      "Wall time per simulation tick",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.Connections,
		m.Topics,
		m.MessagesSent,
		m.MessagesDropped,
		m.SendFailures,
		m.FramesReceived,
		m.DecodeErrors,
		m.Ticks,
		m.TickDuration,
	)

	return m
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
