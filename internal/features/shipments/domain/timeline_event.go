package domain

import "time"

// TimelineEvent is one recorded status/location change for a shipment.
// Events are append-only and totally ordered by (timestamp, sequence);
// the per-shipment sequence number breaks timestamp ties by arrival order.
type TimelineEvent struct {
	ID         string `json:"id"`
	ShipmentID string `json:"shipment_id"`
	Status     Status `json:"status"`
	Location   string `json:"location"`
	// Sequence is strictly increasing per shipment, assigned on append.
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	// ReadingID links the event to the reading that triggered it, if any.
	ReadingID string `json:"reading_id,omitempty"`
	// AlertID links the event to the alert that triggered it, if any.
	AlertID string `json:"alert_id,omitempty"`
	Note    string `json:"note,omitempty"`
}
