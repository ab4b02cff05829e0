package ports

import (
	"context"
	"time"

	"coldchain-monitor/internal/features/monitoring/domain"
	shipdomain "coldchain-monitor/internal/features/shipments/domain"
	shipports "coldchain-monitor/internal/features/shipments/ports"
)

// SubmitInput carries one temperature/humidity submission from manual entry
// or an IoT device.
type SubmitInput struct {
	ShipmentID  string
	Temperature float64
	Humidity    *float64
	// Timestamp is optional; ingestion time is used when zero. Out-of-order
	// values are accepted and positioned by timestamp.
	Timestamp time.Time
	Source    domain.Source
	DeviceID  string
	Notes     string
}

// ReadingPage is one page of timestamp-ordered readings.
type ReadingPage struct {
	Readings []domain.Reading `json:"readings"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// MonitorService is the primary port for the monitoring engine.
type MonitorService interface {
	// Submit validates, persists and synchronously classifies a reading.
	Submit(ctx context.Context, in SubmitInput) (*domain.Reading, error)
	// Readings returns a stable, timestamp-ordered page of readings.
	Readings(ctx context.Context, shipmentID string, page, pageSize int) (*ReadingPage, error)
	// Alerts returns all alerts for a shipment, open first, newest first.
	Alerts(ctx context.Context, shipmentID string) ([]domain.Alert, error)
	// OpenAlerts returns open alerts for one shipment, or globally when
	// shipmentID is empty.
	OpenAlerts(ctx context.Context, shipmentID string) ([]domain.Alert, error)
	// Stats returns derived statistics over the shipment's readings,
	// optionally restricted to a trailing window.
	Stats(ctx context.Context, shipmentID string, window time.Duration) (*domain.StatsView, error)
}

// Store is the secondary port for reading/alert/stats persistence.
type Store interface {
	// InsertReading persists the reading unless its idempotency key already
	// exists. Returns the stored reading and whether it was newly created.
	InsertReading(ctx context.Context, r *domain.Reading) (*domain.Reading, bool, error)
	// ListReadings returns one page ordered by (timestamp, sequence) plus
	// the total count.
	ListReadings(ctx context.Context, shipmentID string, page, pageSize int) ([]domain.Reading, int64, error)
	// ListReadingsSince returns all readings with timestamp >= since,
	// ordered by (timestamp, sequence).
	ListReadingsSince(ctx context.Context, shipmentID string, since time.Time) ([]domain.Reading, error)

	// SaveAlert inserts or updates an alert.
	SaveAlert(ctx context.Context, a *domain.Alert) error
	// ListAlerts returns all alerts for a shipment, newest first.
	ListAlerts(ctx context.Context, shipmentID string) ([]domain.Alert, error)
	// OpenAlertsByShipment returns the shipment's open alerts.
	OpenAlertsByShipment(ctx context.Context, shipmentID string) ([]domain.Alert, error)
	// OpenAlerts returns every open alert across shipments.
	OpenAlerts(ctx context.Context) ([]domain.Alert, error)
	// CountAlertsOpenedSince counts the shipment's alerts opened at or
	// after since.
	CountAlertsOpenedSince(ctx context.Context, shipmentID string, since time.Time) (int64, error)

	// GetStats returns the shipment's running aggregate, or nil when no
	// reading was ever accepted.
	GetStats(ctx context.Context, shipmentID string) (*domain.Stats, error)
	// SaveStats upserts the shipment's running aggregate.
	SaveStats(ctx context.Context, s *domain.Stats) error
}

// ShipmentDirectory is the read-only view onto the shipment service used to
// validate existence and resolve policy before accepting a reading.
type ShipmentDirectory interface {
	Snapshot(ctx context.Context, shipmentID string) (*shipdomain.Shipment, error)
}

// TimelineAdvancer triggers classifier-driven status transitions.
type TimelineAdvancer interface {
	Advance(ctx context.Context, in shipports.AdvanceInput) (*shipdomain.TimelineEvent, error)
}

// Snapshotter publishes derived views to a cache for cheap UI polling.
// Implementations are best effort; failures must not reject ingestion.
type Snapshotter interface {
	PublishStats(ctx context.Context, view *domain.StatsView) error
	PublishOpenAlerts(ctx context.Context, shipmentID string, alerts []domain.Alert) error
}
