package service

import (
	"context"
	"fmt"
	"time"

	"coldchain-monitor/internal/core/lock"
	"coldchain-monitor/internal/core/logger"
	"coldchain-monitor/internal/core/metrics"
	"coldchain-monitor/internal/core/notify"
	"coldchain-monitor/internal/features/shipments/domain"
	"coldchain-monitor/internal/features/shipments/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TimelineService implements ports.ShipmentService. It owns the ordered
// sequence of status events per shipment and enforces legal transitions.
// All mutations for one shipment run inside its keyed critical section.
type TimelineService struct {
	store    ports.Store
	locks    *lock.Keyed
	notifier notify.Notifier
}

// NewTimelineService creates a TimelineService.
func NewTimelineService(store ports.Store, locks *lock.Keyed, notifier notify.Notifier) *TimelineService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &TimelineService{
		store:    store,
		locks:    locks,
		notifier: notifier,
	}
}

// Register creates a shipment in the created state and appends its first
// timeline event.
func (s *TimelineService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Shipment, error) {
	shipment, err := domain.NewShipment(in.CargoType, in.Origin, in.Destination, in.VehicleID, in.RangeOverride)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(shipment.ID)
	defer unlock()

	if err := s.store.CreateShipment(ctx, shipment); err != nil {
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	event := &domain.TimelineEvent{
		ID:         uuid.NewString(),
		ShipmentID: shipment.ID,
		Status:     domain.StatusCreated,
		Location:   shipment.Origin,
		Timestamp:  shipment.CreatedAt,
		Note:       "shipment registered",
	}
	if _, err := s.store.AppendEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append initial event: %w", err)
	}

	metrics.TimelineEvents.WithLabelValues(string(domain.StatusCreated)).Inc()
	return shipment, nil
}

// Advance appends a timeline event with the next sequence number and moves
// the shipment's current status. Fails with ErrIllegalTransition when the
// target status is not reachable, and ErrShipmentTerminal when the shipment
// already holds a terminal event.
func (s *TimelineService) Advance(ctx context.Context, in ports.AdvanceInput) (*domain.TimelineEvent, error) {
	if !in.Status.IsValid() || in.Status == domain.StatusCreated {
		metrics.TransitionsRejected.WithLabelValues("invalid_status").Inc()
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrIllegalTransition, in.Status)
	}

	unlock := s.locks.Lock(in.ShipmentID)
	defer unlock()

	shipment, err := s.store.GetShipment(ctx, in.ShipmentID)
	if err != nil {
		return nil, err
	}

	if shipment.Status.IsTerminal() {
		metrics.TransitionsRejected.WithLabelValues("terminal").Inc()
		return nil, fmt.Errorf("%w: shipment %s is %s", domain.ErrShipmentTerminal, shipment.ID, shipment.Status)
	}
	if !shipment.Status.CanTransition(in.Status) {
		metrics.TransitionsRejected.WithLabelValues("illegal").Inc()
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, shipment.Status, in.Status)
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	event := &domain.TimelineEvent{
		ID:         uuid.NewString(),
		ShipmentID: in.ShipmentID,
		Status:     in.Status,
		Location:   in.Location,
		Timestamp:  ts.UTC(),
		ReadingID:  in.ReadingID,
		AlertID:    in.AlertID,
		Note:       in.Note,
	}

	stored, err := s.store.AppendEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	if err := s.store.UpdateShipmentStatus(ctx, in.ShipmentID, in.Status, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to update shipment status: %w", err)
	}

	metrics.TimelineEvents.WithLabelValues(string(in.Status)).Inc()
	logger.Get().Info("Shipment advanced",
		zap.String("shipment_id", in.ShipmentID),
		zap.String("from", string(shipment.Status)),
		zap.String("to", string(in.Status)),
		zap.Int64("sequence", stored.Sequence),
	)

	if in.Status.IsTerminal() {
		s.notifier.ShipmentTerminal(notify.Event{
			ShipmentID: in.ShipmentID,
			Status:     string(in.Status),
			Note:       in.Note,
			Timestamp:  stored.Timestamp,
		})
	}

	return stored, nil
}

// Snapshot returns the shipment's current state.
func (s *TimelineService) Snapshot(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	return s.store.GetShipment(ctx, shipmentID)
}

// Timeline returns the shipment's events ordered by (timestamp, sequence).
func (s *TimelineService) Timeline(ctx context.Context, shipmentID string) ([]domain.TimelineEvent, error) {
	if _, err := s.store.GetShipment(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, shipmentID)
}
