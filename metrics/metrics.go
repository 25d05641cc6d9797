// Package metrics holds the Prometheus collectors shared across components.
// Everything registers against the default registry; the gateway exposes it
// on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedClients tracks live WebSocket connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "companion",
		Name:      "websocket_clients",
		Help:      "Number of connected WebSocket clients.",
	})

	// Broadcasts counts state snapshots fanned out to clients.
	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Name:      "broadcasts_total",
		Help:      "State broadcasts sent to WebSocket clients.",
	})

	// SnapshotsPublished counts snapshots published by the core engine.
	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Name:      "snapshots_published_total",
		Help:      "State snapshots published on the internal bus.",
	})

	// PollErrors counts failed sim bridge polls.
	PollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Name:      "sim_poll_errors_total",
		Help:      "Failed polls against the sim bridge.",
	})

	// SimConnected reports the sim link status as 0/1.
	SimConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "companion",
		Name:      "sim_connected",
		Help:      "Whether the sim bridge link is up.",
	})

	// VoiceMatches counts voice response match attempts by outcome.
	VoiceMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "companion",
		Name:      "voice_matches_total",
		Help:      "Voice response match attempts.",
	}, []string{"outcome"})
)
