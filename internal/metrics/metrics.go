// Package metrics exposes the Prometheus instruments for the webcast
// pipeline. All instruments register against the default registerer under
// the "webcast" namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "webcast"

var (
	// FramesReceived counts inbound frames per transport session outcome.
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Inbound websocket frames read off the wire.",
	})

	// FrameDecodeFailures counts frames that failed to decode. The session
	// stays open; this is the only trace such frames leave.
	FrameDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frame_decode_failures_total",
		Help:      "Frames dropped because the codec could not decode them.",
	})

	// AcksSent counts acknowledgment frames written back to the server.
	AcksSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acks_sent_total",
		Help:      "Acknowledgment frames sent for frames with an id.",
	})

	// EventsEmitted counts normalized events handed to consumers, by kind.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_emitted_total",
		Help:      "Normalized events emitted to consumers.",
	}, []string{"kind"})

	// ReconnectAttempts counts reconnect sweep attempts, by outcome.
	ReconnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnect_attempts_total",
		Help:      "Reconnect attempts made by the orchestrator sweep.",
	}, []string{"outcome"})

	// ActiveConnections tracks live connections in the registry.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Connections currently held in the registry.",
	})
)
