package domain

import (
	"time"

	"github.com/google/uuid"
)

// Metric names the measurement an alert tracks. Temperature and humidity
// breaches are tracked as independent alert series per shipment.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
)

// Severity is an alert's tier.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertStatus is an alert's lifecycle state.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "open"
	AlertResolved AlertStatus = "resolved"
)

// SeverityChange records one step of an alert's severity history
// (opened at a severity, escalated, resolved).
type SeverityChange struct {
	Severity  Severity  `json:"severity"`
	ReadingID string    `json:"reading_id"`
	At        time.Time `json:"at"`
}

// Alert is a tracked period during which a shipment's readings for one
// metric are out of the acceptable range. At most one alert per
// (shipment, metric) is open at a time: repeat breaches extend it, a
// critical breach escalates it in place, a clearing reading resolves it.
type Alert struct {
	ID         string      `json:"id"`
	ShipmentID string      `json:"shipment_id"`
	Metric     Metric      `json:"metric"`
	Severity   Severity    `json:"severity"`
	Status     AlertStatus `json:"status"`

	OpenedByReading string    `json:"opened_by_reading"`
	OpenedAt        time.Time `json:"opened_at"`

	LastSeenReading string    `json:"last_seen_reading"`
	LastSeenAt      time.Time `json:"last_seen_at"`

	ResolvedByReading string     `json:"resolved_by_reading,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolutionNote    string     `json:"resolution_note,omitempty"`

	// History records the severity progression, oldest first.
	History []SeverityChange `json:"history"`
}

// NewAlert opens an alert for the breaching reading.
func NewAlert(metric Metric, severity Severity, r *Reading) *Alert {
	return &Alert{
		ID:              uuid.NewString(),
		ShipmentID:      r.ShipmentID,
		Metric:          metric,
		Severity:        severity,
		Status:          AlertOpen,
		OpenedByReading: r.ID,
		OpenedAt:        r.Timestamp,
		LastSeenReading: r.ID,
		LastSeenAt:      r.Timestamp,
		History: []SeverityChange{
			{Severity: severity, ReadingID: r.ID, At: r.Timestamp},
		},
	}
}

// Extend coalesces a repeat breach into the alert: the last-seen marker
// moves, no duplicate alert is created.
func (a *Alert) Extend(r *Reading) {
	a.LastSeenReading = r.ID
	a.LastSeenAt = r.Timestamp
}

// Escalate promotes a warning alert to critical in place. Same alert
// identity; the severity change is appended to the history.
func (a *Alert) Escalate(r *Reading) {
	a.Severity = SeverityCritical
	a.Extend(r)
	a.History = append(a.History, SeverityChange{
		Severity: SeverityCritical, ReadingID: r.ID, At: r.Timestamp,
	})
}

// Resolve closes the alert with the clearing reading. The resolved-at
// timestamp never precedes opened-at, even when the clearing reading
// arrived with an out-of-order timestamp.
func (a *Alert) Resolve(r *Reading, note string) {
	ts := r.Timestamp
	if ts.Before(a.OpenedAt) {
		ts = a.OpenedAt
	}
	a.Status = AlertResolved
	a.ResolvedByReading = r.ID
	a.ResolvedAt = &ts
	a.ResolutionNote = note
	a.Extend(r)
}
