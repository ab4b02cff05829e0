package domain

import (
	"errors"
	"fmt"
	"time"

	policydomain "coldchain-monitor/internal/features/policy/domain"

	"github.com/google/uuid"
)

var (
	// ErrShipmentNotFound is returned when the shipment id is unknown.
	ErrShipmentNotFound = errors.New("shipment not found")
	// ErrShipmentTerminal is returned when an operation targets a shipment
	// that already has a terminal timeline event.
	ErrShipmentTerminal = errors.New("shipment is in a terminal state")
	// ErrIllegalTransition is returned when the requested status is not
	// reachable from the shipment's current status.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrInvalidShipment is returned when a shipment registration is malformed.
	ErrInvalidShipment = errors.New("invalid shipment")
)

// Status is a shipment's lifecycle state.
type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusPickedUp   Status = "picked_up"
	StatusInTransit  Status = "in_transit"
	// StatusAtRisk is the alert sub-state of in_transit, entered when a
	// critical alert opens and left when it resolves.
	StatusAtRisk    Status = "at_risk"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// legalTransitions is the reachability graph. cancelled is additionally
// reachable from every non-terminal state (handled in CanTransition).
var legalTransitions = map[Status][]Status{
	StatusCreated:    {StatusProcessing},
	StatusProcessing: {StatusPickedUp},
	StatusPickedUp:   {StatusInTransit, StatusDelivered},
	StatusInTransit:  {StatusInTransit, StatusAtRisk, StatusDelivered},
	StatusAtRisk:     {StatusInTransit, StatusAtRisk, StatusDelivered},
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusProcessing, StatusPickedUp, StatusInTransit,
		StatusAtRisk, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s accepts no further events.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether to is reachable from s.
func (s Status) CanTransition(to Status) bool {
	if s.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	for _, next := range legalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Shipment is the tracked unit of transport. It is created once, mutated
// only through the timeline state machine, and never deleted; delivery or
// cancellation terminates it.
type Shipment struct {
	ID          string  `json:"id"`
	CargoType   string  `json:"cargo_type"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	VehicleID   *string `json:"vehicle_id,omitempty"`
	Status      Status  `json:"status"`
	// RangeOverride, when set, replaces the cargo-type default range.
	RangeOverride *policydomain.Range `json:"range_override,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewShipment creates a Shipment in the created state and validates it.
func NewShipment(cargoType, origin, destination string, vehicleID *string, override *policydomain.Range) (*Shipment, error) {
	if cargoType == "" {
		return nil, fmt.Errorf("%w: cargo type is required", ErrInvalidShipment)
	}
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidShipment)
	}

	now := time.Now().UTC()
	return &Shipment{
		ID:            uuid.NewString(),
		CargoType:     cargoType,
		Origin:        origin,
		Destination:   destination,
		VehicleID:     vehicleID,
		Status:        StatusCreated,
		RangeOverride: override,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
