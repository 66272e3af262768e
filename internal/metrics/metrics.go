// Package metrics exposes prometheus collectors for the relay. Collectors
// register on the default registry; main serves them via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts messages accepted by the delivery pipeline.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftline_messages_sent_total",
		Help: "Messages persisted and acknowledged to their sender.",
	})

	// DeliveryDelay observes the synthetic jitter injected per send.
	DeliveryDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "driftline_delivery_delay_seconds",
		Help:    "Mood-dependent delay injected before each delivery.",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.45, 0.6, 0.9},
	})

	// ConnectedUsers tracks the size of the connection registry.
	ConnectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftline_connected_users",
		Help: "Users currently bound to an active session.",
	})

	// PhantomEvents counts synthetic events emitted by the background
	// simulators.
	PhantomEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftline_phantom_events_total",
		Help: "Synthetic typing and harmonic sync emissions.",
	})
)
