package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coldchain-monitor/internal/core/lock"
	"coldchain-monitor/internal/core/logger"
	"coldchain-monitor/internal/core/metrics"
	"coldchain-monitor/internal/core/notify"
	"coldchain-monitor/internal/features/monitoring/domain"
	"coldchain-monitor/internal/features/monitoring/ports"
	policydomain "coldchain-monitor/internal/features/policy/domain"
	policyservice "coldchain-monitor/internal/features/policy/service"
	shipdomain "coldchain-monitor/internal/features/shipments/domain"
	shipports "coldchain-monitor/internal/features/shipments/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// MonitorService implements ports.MonitorService: ingestion, synchronous
// classification, incremental statistics, and the read-side projections.
// All mutations for one shipment run inside its keyed critical section;
// different shipments proceed fully in parallel.
type MonitorService struct {
	store          ports.Store
	shipments      ports.ShipmentDirectory
	resolver       *policyservice.Resolver
	timeline       ports.TimelineAdvancer
	locks          *lock.Keyed
	notifier       notify.Notifier
	snapshots      ports.Snapshotter
	persistTimeout time.Duration
}

// NewMonitorService creates a MonitorService. snapshots may be nil when no
// cache is configured; notifier may be nil.
func NewMonitorService(
	store ports.Store,
	shipments ports.ShipmentDirectory,
	resolver *policyservice.Resolver,
	timeline ports.TimelineAdvancer,
	locks *lock.Keyed,
	notifier notify.Notifier,
	snapshots ports.Snapshotter,
	persistTimeout time.Duration,
) *MonitorService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &MonitorService{
		store:          store,
		shipments:      shipments,
		resolver:       resolver,
		timeline:       timeline,
		locks:          locks,
		notifier:       notifier,
		snapshots:      snapshots,
		persistTimeout: persistTimeout,
	}
}

// persistCtx bounds a persistence call with the configured timeout.
func (s *MonitorService) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.persistTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.persistTimeout)
}

// asPersistErr converts a deadline failure into the typed timeout error.
func asPersistErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceTimeout, err)
	}
	return err
}

// Submit validates and persists one reading, then classifies it
// synchronously so the caller always observes the up-to-date classification.
// A duplicate of an already-stored (shipment, device, timestamp,
// temperature, humidity) tuple is accepted without a second insert.
func (s *MonitorService) Submit(ctx context.Context, in ports.SubmitInput) (*domain.Reading, error) {
	reading := &domain.Reading{
		ID:          uuid.NewString(),
		ShipmentID:  in.ShipmentID,
		Temperature: domain.RoundTenth(in.Temperature),
		Timestamp:   in.Timestamp.UTC(),
		Source:      in.Source,
		DeviceID:    in.DeviceID,
		Notes:       in.Notes,
		IngestedAt:  time.Now().UTC(),
	}
	if in.Humidity != nil {
		h := domain.RoundTenth(*in.Humidity)
		reading.Humidity = &h
	}
	if in.Timestamp.IsZero() {
		reading.Timestamp = reading.IngestedAt
	}

	if err := reading.Validate(); err != nil {
		metrics.ReadingsRejected.WithLabelValues("invalid").Inc()
		return nil, err
	}

	shipment, err := s.shipments.Snapshot(ctx, in.ShipmentID)
	if err != nil {
		metrics.ReadingsRejected.WithLabelValues("shipment_not_found").Inc()
		return nil, err
	}
	if shipment.Status.IsTerminal() {
		metrics.ReadingsRejected.WithLabelValues("terminal").Inc()
		return nil, fmt.Errorf("%w: shipment %s is %s", shipdomain.ErrShipmentTerminal, shipment.ID, shipment.Status)
	}

	stored, outcome, criticalOpen, err := s.ingest(ctx, shipment, reading)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		// Duplicate submission or deferred classification; nothing else to do.
		return stored, nil
	}

	s.applyTransitions(ctx, shipment, stored, outcome, criticalOpen)
	s.emitNotifications(outcome)
	s.publishSnapshots(ctx, stored.ShipmentID)

	return stored, nil
}

// ingest runs the per-shipment critical section: dedup, classification
// against the current open-alert set, and persistence of the reading, the
// changed alerts and the stats aggregate. A nil outcome means no lifecycle
// changes have to be applied (duplicate or unclassified reading). The
// returned criticalOpen flag reflects the open-alert set as it stood inside
// the critical section, so the recovery decision never races a concurrent
// submission.
func (s *MonitorService) ingest(ctx context.Context, shipment *shipdomain.Shipment, reading *domain.Reading) (*domain.Reading, *Outcome, bool, error) {
	unlock := s.locks.Lock(shipment.ID)
	defer unlock()

	pctx, cancel := s.persistCtx(ctx)
	defer cancel()

	rng, policyErr := s.resolver.Resolve(shipment.CargoType, shipment.RangeOverride)
	if policyErr != nil && !errors.Is(policyErr, policydomain.ErrPolicyNotFound) {
		return nil, nil, false, policyErr
	}

	var outcome *Outcome
	var open map[domain.Metric]*domain.Alert
	if policyErr != nil {
		// Configuration gap: defer classification, never drop the reading.
		reading.Classification = domain.ClassificationUnclassified
		logger.Get().Warn("No range policy; storing reading unclassified",
			zap.String("shipment_id", shipment.ID),
			zap.String("cargo_type", shipment.CargoType),
			zap.Error(policyErr),
		)
	} else {
		openAlerts, err := s.store.OpenAlertsByShipment(pctx, shipment.ID)
		if err != nil {
			return nil, nil, false, asPersistErr(err)
		}
		open = make(map[domain.Metric]*domain.Alert, len(openAlerts))
		for i := range openAlerts {
			a := openAlerts[i]
			open[a.Metric] = &a
		}

		result := Classify(rng, reading, open)
		outcome = &result
		reading.Classification = result.Level
	}

	stored, created, err := s.store.InsertReading(pctx, reading)
	if err != nil {
		return nil, nil, false, asPersistErr(err)
	}
	if !created {
		logger.Get().Debug("Duplicate reading coalesced",
			zap.String("shipment_id", reading.ShipmentID),
			zap.String("device_id", reading.DeviceID),
		)
		return stored, nil, false, nil
	}

	stats, err := s.store.GetStats(pctx, shipment.ID)
	if err != nil {
		return nil, nil, false, asPersistErr(err)
	}
	if stats == nil {
		stats = domain.NewStats(shipment.ID)
	}
	stats.Observe(stored)
	if outcome != nil {
		for range outcome.Opened {
			stats.ObserveAlertOpened()
		}
	}
	if err := s.store.SaveStats(pctx, stats); err != nil {
		return nil, nil, false, asPersistErr(err)
	}

	if outcome != nil {
		for _, a := range outcome.Changed() {
			if err := s.store.SaveAlert(pctx, a); err != nil {
				return nil, nil, false, asPersistErr(err)
			}
		}
	}

	metrics.ReadingsIngested.WithLabelValues(string(stored.Classification), string(stored.Source)).Inc()
	return stored, outcome, openCritical(open, outcome), nil
}

// openCritical reports whether any critical alert remains open after the
// outcome was applied. Classify mutates the provided open set in place, so
// the prior alerts plus the newly opened ones cover the whole set.
func openCritical(open map[domain.Metric]*domain.Alert, outcome *Outcome) bool {
	if outcome == nil {
		return false
	}
	for _, a := range open {
		if a.Status == domain.AlertOpen && a.Severity == domain.SeverityCritical {
			return true
		}
	}
	for _, a := range outcome.Opened {
		if a.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}

// applyTransitions records classifier-triggered status changes: a critical
// alert flags the shipment at_risk, and resolving the last critical alert
// returns it to in_transit. criticalOpen was captured inside the ingest
// critical section. Both transitions follow the normal rules; a transition
// that is not legal from the current status is logged and skipped.
func (s *MonitorService) applyTransitions(ctx context.Context, shipment *shipdomain.Shipment, reading *domain.Reading, outcome *Outcome, criticalOpen bool) {
	var critical *domain.Alert
	for _, a := range append(outcome.Opened, outcome.Escalated...) {
		if a.Severity == domain.SeverityCritical {
			critical = a
			break
		}
	}

	if critical != nil && shipment.Status == shipdomain.StatusInTransit {
		s.advance(ctx, shipports.AdvanceInput{
			ShipmentID: shipment.ID,
			Status:     shipdomain.StatusAtRisk,
			Timestamp:  reading.Timestamp,
			ReadingID:  reading.ID,
			AlertID:    critical.ID,
			Note:       fmt.Sprintf("critical %s alert %s", critical.Metric, critical.ID),
		})
		return
	}

	var resolvedCritical *domain.Alert
	for _, a := range outcome.Resolved {
		if a.Severity == domain.SeverityCritical {
			resolvedCritical = a
			break
		}
	}
	if resolvedCritical == nil || shipment.Status != shipdomain.StatusAtRisk {
		return
	}

	// Only leave at_risk once no critical alert remains open.
	if criticalOpen {
		return
	}

	s.advance(ctx, shipports.AdvanceInput{
		ShipmentID: shipment.ID,
		Status:     shipdomain.StatusInTransit,
		Timestamp:  reading.Timestamp,
		ReadingID:  reading.ID,
		AlertID:    resolvedCritical.ID,
		Note:       fmt.Sprintf("%s alert %s resolved", resolvedCritical.Metric, resolvedCritical.ID),
	})
}

func (s *MonitorService) advance(ctx context.Context, in shipports.AdvanceInput) {
	if _, err := s.timeline.Advance(ctx, in); err != nil {
		logger.Get().Warn("Classifier-triggered transition skipped",
			zap.String("shipment_id", in.ShipmentID),
			zap.String("status", string(in.Status)),
			zap.Error(err),
		)
	}
}

func (s *MonitorService) emitNotifications(outcome *Outcome) {
	for _, a := range outcome.Opened {
		metrics.AlertsOpened.WithLabelValues(string(a.Metric), string(a.Severity)).Inc()
		s.notifier.AlertOpened(alertEvent(a))
	}
	for _, a := range outcome.Escalated {
		metrics.AlertsEscalated.Inc()
		s.notifier.AlertEscalated(alertEvent(a))
	}
	for _, a := range outcome.Resolved {
		metrics.AlertsResolved.Inc()
		s.notifier.AlertResolved(alertEvent(a))
	}
}

func alertEvent(a *domain.Alert) notify.Event {
	return notify.Event{
		ShipmentID: a.ShipmentID,
		AlertID:    a.ID,
		Metric:     string(a.Metric),
		Severity:   string(a.Severity),
		Status:     string(a.Status),
		Timestamp:  a.LastSeenAt,
	}
}

func (s *MonitorService) publishSnapshots(ctx context.Context, shipmentID string) {
	if s.snapshots == nil {
		return
	}

	stats, err := s.store.GetStats(ctx, shipmentID)
	if err == nil && stats != nil {
		view := stats.View()
		if err := s.snapshots.PublishStats(ctx, &view); err != nil {
			logger.Get().Warn("Failed to publish stats snapshot", zap.Error(err))
		}
	}

	open, err := s.store.OpenAlertsByShipment(ctx, shipmentID)
	if err == nil {
		if err := s.snapshots.PublishOpenAlerts(ctx, shipmentID, open); err != nil {
			logger.Get().Warn("Failed to publish alert snapshot", zap.Error(err))
		}
	}
}

// Readings returns a stable, timestamp-ordered page of readings.
func (s *MonitorService) Readings(ctx context.Context, shipmentID string, page, pageSize int) (*ports.ReadingPage, error) {
	if _, err := s.shipments.Snapshot(ctx, shipmentID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	readings, total, err := s.store.ListReadings(ctx, shipmentID, page, pageSize)
	if err != nil {
		return nil, asPersistErr(err)
	}
	return &ports.ReadingPage{
		Readings: readings,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Alerts returns all alerts for a shipment.
func (s *MonitorService) Alerts(ctx context.Context, shipmentID string) ([]domain.Alert, error) {
	if _, err := s.shipments.Snapshot(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.store.ListAlerts(ctx, shipmentID)
}

// OpenAlerts returns open alerts for one shipment, or globally when
// shipmentID is empty.
func (s *MonitorService) OpenAlerts(ctx context.Context, shipmentID string) ([]domain.Alert, error) {
	if shipmentID == "" {
		return s.store.OpenAlerts(ctx)
	}
	if _, err := s.shipments.Snapshot(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.store.OpenAlertsByShipment(ctx, shipmentID)
}

// Stats returns derived statistics for a shipment. A zero window means the
// whole history and is served from the O(1) running aggregate; a trailing
// window scans only the readings inside it.
func (s *MonitorService) Stats(ctx context.Context, shipmentID string, window time.Duration) (*domain.StatsView, error) {
	if _, err := s.shipments.Snapshot(ctx, shipmentID); err != nil {
		return nil, err
	}

	if window <= 0 {
		stats, err := s.store.GetStats(ctx, shipmentID)
		if err != nil {
			return nil, asPersistErr(err)
		}
		if stats == nil {
			stats = domain.NewStats(shipmentID)
		}
		view := stats.View()
		return &view, nil
	}

	since := time.Now().UTC().Add(-window)
	readings, err := s.store.ListReadingsSince(ctx, shipmentID, since)
	if err != nil {
		return nil, asPersistErr(err)
	}

	agg := domain.NewStats(shipmentID)
	for i := range readings {
		agg.Observe(&readings[i])
	}
	opened, err := s.store.CountAlertsOpenedSince(ctx, shipmentID, since)
	if err != nil {
		return nil, asPersistErr(err)
	}
	agg.AlertCount = opened

	view := agg.View()
	return &view, nil
}
