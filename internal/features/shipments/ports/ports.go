package ports

import (
	"context"
	"time"

	policydomain "coldchain-monitor/internal/features/policy/domain"
	"coldchain-monitor/internal/features/shipments/domain"
)

// RegisterInput carries the attributes of a shipment being registered on
// order confirmation.
type RegisterInput struct {
	CargoType     string
	Origin        string
	Destination   string
	VehicleID     *string
	RangeOverride *policydomain.Range
}

// AdvanceInput carries one requested status transition.
type AdvanceInput struct {
	ShipmentID string
	Status     domain.Status
	Location   string
	// Timestamp defaults to the current time when zero.
	Timestamp time.Time
	Note      string
	// ReadingID/AlertID link system-generated transitions to their trigger.
	ReadingID string
	AlertID   string
}

// ShipmentService is the primary port for shipment lifecycle operations.
type ShipmentService interface {
	// Register creates a shipment in the created state with its first
	// timeline event.
	Register(ctx context.Context, in RegisterInput) (*domain.Shipment, error)
	// Advance appends a timeline event and moves the shipment's status.
	Advance(ctx context.Context, in AdvanceInput) (*domain.TimelineEvent, error)
	// Snapshot returns the shipment's current state.
	Snapshot(ctx context.Context, shipmentID string) (*domain.Shipment, error)
	// Timeline returns the shipment's events ordered by (timestamp, sequence).
	Timeline(ctx context.Context, shipmentID string) ([]domain.TimelineEvent, error)
}

// Store is the secondary port for shipment and timeline persistence.
type Store interface {
	// CreateShipment persists a new shipment.
	CreateShipment(ctx context.Context, s *domain.Shipment) error
	// GetShipment returns a shipment by id, or domain.ErrShipmentNotFound.
	GetShipment(ctx context.Context, id string) (*domain.Shipment, error)
	// UpdateShipmentStatus moves the shipment's current-status field.
	UpdateShipmentStatus(ctx context.Context, id string, status domain.Status, updatedAt time.Time) error
	// AppendEvent persists the event, assigning the next per-shipment
	// sequence number. The stored event is returned.
	AppendEvent(ctx context.Context, e *domain.TimelineEvent) (*domain.TimelineEvent, error)
	// ListEvents returns all events for a shipment ordered by
	// (timestamp, sequence).
	ListEvents(ctx context.Context, shipmentID string) ([]domain.TimelineEvent, error)
}
