package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Loader metrics
var (
	TrackLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackmix_track_loads_total",
			Help: "Auxiliary track loads by outcome",
		},
		[]string{"status"},
	)

	TrackLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trackmix_track_load_duration_seconds",
			Help:    "Time to fetch and decode one auxiliary track",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Playback metrics
var (
	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackmix_sessions_total",
			Help: "Loading sessions started",
		},
	)

	ActiveNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackmix_active_playback_nodes",
			Help: "Playback nodes currently rendering",
		},
	)

	NodeStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackmix_playback_node_starts_total",
			Help: "Playback nodes started, by trigger",
		},
		[]string{"trigger"},
	)

	TransportEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackmix_transport_events_total",
			Help: "Video transport events received",
		},
		[]string{"event"},
	)

	GainUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackmix_gain_updates_total",
			Help: "Gain values applied to the audio graph",
		},
	)
)

// Bridge metrics
var (
	BridgeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackmix_bridge_connections",
			Help: "Open webview bridge connections",
		},
	)

	BridgeMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackmix_bridge_messages_total",
			Help: "Messages received from the webview, by type",
		},
		[]string{"type"},
	)
)
