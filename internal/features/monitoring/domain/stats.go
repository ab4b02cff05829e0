package domain

import "time"

// Stats is the running temperature aggregate for one shipment, updated in
// O(1) per accepted reading so stats requests never rescan a multi-day
// reading history. Min/max ties resolve to the earliest-timestamped
// reading regardless of arrival order.
type Stats struct {
	ShipmentID string  `json:"shipment_id"`
	Count      int64   `json:"count"`
	Sum        float64 `json:"sum"`

	Min          float64   `json:"min"`
	MinAt        time.Time `json:"min_at"`
	MinReadingID string    `json:"min_reading_id"`

	Max          float64   `json:"max"`
	MaxAt        time.Time `json:"max_at"`
	MaxReadingID string    `json:"max_reading_id"`

	// AlertCount is the number of alerts opened over the shipment's history.
	AlertCount int64 `json:"alert_count"`
}

// NewStats creates an empty aggregate for a shipment.
func NewStats(shipmentID string) *Stats {
	return &Stats{ShipmentID: shipmentID}
}

// Observe folds one reading into the aggregate.
func (s *Stats) Observe(r *Reading) {
	s.Count++
	s.Sum += r.Temperature

	if s.Count == 1 {
		s.Min, s.MinAt, s.MinReadingID = r.Temperature, r.Timestamp, r.ID
		s.Max, s.MaxAt, s.MaxReadingID = r.Temperature, r.Timestamp, r.ID
		return
	}

	if r.Temperature < s.Min || (r.Temperature == s.Min && r.Timestamp.Before(s.MinAt)) {
		s.Min, s.MinAt, s.MinReadingID = r.Temperature, r.Timestamp, r.ID
	}
	if r.Temperature > s.Max || (r.Temperature == s.Max && r.Timestamp.Before(s.MaxAt)) {
		s.Max, s.MaxAt, s.MaxReadingID = r.Temperature, r.Timestamp, r.ID
	}
}

// ObserveAlertOpened counts a newly opened alert.
func (s *Stats) ObserveAlertOpened() {
	s.AlertCount++
}

// StatsView is the derived statistics served to consumers.
type StatsView struct {
	ShipmentID string  `json:"shipment_id"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	Count      int64   `json:"count"`
	AlertCount int64   `json:"alert_count"`
}

// View derives the served statistics from the aggregate.
func (s *Stats) View() StatsView {
	v := StatsView{
		ShipmentID: s.ShipmentID,
		Count:      s.Count,
		AlertCount: s.AlertCount,
	}
	if s.Count > 0 {
		v.Min = s.Min
		v.Max = s.Max
		v.Avg = RoundTenth(s.Sum / float64(s.Count))
	}
	return v
}
