package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Alert lifecycle and relay metrics, exposed on /metrics.
var (
	// FeedEventsTotal counts diff-tagged emissions per collection feed
	FeedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisecare_feed_events_total",
			Help: "Total number of feed emissions by stream and event type",
		},
		[]string{"stream", "type"},
	)

	// TransitionsTotal counts successful alert status transitions
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisecare_alert_transitions_total",
			Help: "Total number of alert status transitions by target status",
		},
		[]string{"to"},
	)

	// TransitionFailuresTotal counts rejected or failed transitions
	TransitionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisecare_alert_transition_failures_total",
			Help: "Total number of rejected alert transitions by reason",
		},
		[]string{"reason"},
	)

	// ToastsTotal counts toast notifications raised by the relay
	ToastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wisecare_relay_toasts_total",
			Help: "Total number of toast notifications raised",
		},
	)

	// AlertsByStatus is the current size of each status partition
	AlertsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wisecare_alerts_by_status",
			Help: "Current number of alerts per status",
		},
		[]string{"status"},
	)

	// WebsocketClients is the number of connected dashboard clients
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wisecare_websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)
)
