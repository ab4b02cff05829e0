package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ReadingsIngested counts accepted readings by resulting classification.
	ReadingsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldchain_readings_ingested_total",
			Help: "Total number of accepted readings by classification",
		},
		[]string{"classification", "source"},
	)

	// ReadingsRejected counts ingestion rejections by reason.
	ReadingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldchain_readings_rejected_total",
			Help: "Total number of rejected reading submissions by reason",
		},
		[]string{"reason"},
	)

	// AlertsOpened counts newly opened alerts by metric and severity.
	AlertsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldchain_alerts_opened_total",
			Help: "Total number of alerts opened by metric and severity",
		},
		[]string{"metric", "severity"},
	)

	// AlertsEscalated counts warning alerts promoted to critical in place.
	AlertsEscalated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coldchain_alerts_escalated_total",
			Help: "Total number of alerts escalated from warning to critical",
		},
	)

	// AlertsResolved counts alerts resolved by a clearing reading.
	AlertsResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coldchain_alerts_resolved_total",
			Help: "Total number of alerts resolved",
		},
	)

	// TimelineEvents counts appended timeline events by status.
	TimelineEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldchain_timeline_events_total",
			Help: "Total number of timeline events appended by status",
		},
		[]string{"status"},
	)

	// TransitionsRejected counts advance calls rejected by the state machine.
	TransitionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldchain_transitions_rejected_total",
			Help: "Total number of rejected status transitions by reason",
		},
		[]string{"reason"},
	)

	// NotifyDrops counts notifier events dropped because a subscriber was slow.
	NotifyDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coldchain_notify_drops_total",
			Help: "Total number of notification events dropped on full subscriber buffers",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ReadingsIngested,
		ReadingsRejected,
		AlertsOpened,
		AlertsEscalated,
		AlertsResolved,
		TimelineEvents,
		TransitionsRejected,
		NotifyDrops,
	)
}
