package adapters

import (
	"context"
	"sort"
	"sync"
	"time"

	"coldchain-monitor/internal/features/monitoring/domain"
)

// MemoryStore is the in-process implementation of ports.Store. Readings are
// kept sorted by (timestamp, arrival sequence) so out-of-order device
// deliveries land at their correct position; readers only observe fully
// committed data and always receive copies.
type MemoryStore struct {
	mu       sync.RWMutex
	readings map[string][]domain.Reading // per shipment, sorted
	dedup    map[string]string           // idempotency key -> reading id
	byID     map[string]domain.Reading
	arrivals map[string]int64
	alerts   map[string][]domain.Alert // per shipment, append order
	stats    map[string]domain.Stats
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		readings: make(map[string][]domain.Reading),
		dedup:    make(map[string]string),
		byID:     make(map[string]domain.Reading),
		arrivals: make(map[string]int64),
		alerts:   make(map[string][]domain.Alert),
		stats:    make(map[string]domain.Stats),
	}
}

// InsertReading persists the reading unless its idempotency key exists.
func (m *MemoryStore) InsertReading(_ context.Context, r *domain.Reading) (*domain.Reading, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.DedupKey()
	if existingID, ok := m.dedup[key]; ok {
		existing := m.byID[existingID]
		return &existing, false, nil
	}

	m.arrivals[r.ShipmentID]++
	cp := *r
	cp.Sequence = m.arrivals[r.ShipmentID]

	list := m.readings[r.ShipmentID]
	// First index whose timestamp is strictly after the new reading;
	// equal timestamps keep arrival order.
	idx := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(cp.Timestamp)
	})
	list = append(list, domain.Reading{})
	copy(list[idx+1:], list[idx:])
	list[idx] = cp
	m.readings[r.ShipmentID] = list

	m.dedup[key] = cp.ID
	m.byID[cp.ID] = cp

	out := cp
	return &out, true, nil
}

// ListReadings returns one page ordered by (timestamp, sequence).
func (m *MemoryStore) ListReadings(_ context.Context, shipmentID string, page, pageSize int) ([]domain.Reading, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.readings[shipmentID]
	total := int64(len(list))

	start := (page - 1) * pageSize
	if start >= len(list) {
		return []domain.Reading{}, total, nil
	}
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}

	out := make([]domain.Reading, end-start)
	copy(out, list[start:end])
	return out, total, nil
}

// ListReadingsSince returns readings with timestamp >= since.
func (m *MemoryStore) ListReadingsSince(_ context.Context, shipmentID string, since time.Time) ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.readings[shipmentID]
	idx := sort.Search(len(list), func(i int) bool {
		return !list[i].Timestamp.Before(since)
	})

	out := make([]domain.Reading, len(list)-idx)
	copy(out, list[idx:])
	return out, nil
}

// SaveAlert inserts or updates an alert.
func (m *MemoryStore) SaveAlert(_ context.Context, a *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	cp.History = append([]domain.SeverityChange(nil), a.History...)

	list := m.alerts[a.ShipmentID]
	for i := range list {
		if list[i].ID == a.ID {
			list[i] = cp
			return nil
		}
	}
	m.alerts[a.ShipmentID] = append(list, cp)
	return nil
}

// ListAlerts returns all alerts for a shipment, newest first.
func (m *MemoryStore) ListAlerts(_ context.Context, shipmentID string) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.alerts[shipmentID]
	out := make([]domain.Alert, len(src))
	for i := range src {
		out[len(src)-1-i] = src[i]
	}
	return out, nil
}

// OpenAlertsByShipment returns the shipment's open alerts.
func (m *MemoryStore) OpenAlertsByShipment(_ context.Context, shipmentID string) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Alert
	for _, a := range m.alerts[shipmentID] {
		if a.Status == domain.AlertOpen {
			out = append(out, a)
		}
	}
	return out, nil
}

// OpenAlerts returns every open alert across shipments.
func (m *MemoryStore) OpenAlerts(_ context.Context) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Alert
	for _, list := range m.alerts {
		for _, a := range list {
			if a.Status == domain.AlertOpen {
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out, nil
}

// CountAlertsOpenedSince counts the shipment's alerts opened at or after since.
func (m *MemoryStore) CountAlertsOpenedSince(_ context.Context, shipmentID string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, a := range m.alerts[shipmentID] {
		if !a.OpenedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// GetStats returns the shipment's running aggregate, or nil when absent.
func (m *MemoryStore) GetStats(_ context.Context, shipmentID string) (*domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stats[shipmentID]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

// SaveStats upserts the shipment's running aggregate.
func (m *MemoryStore) SaveStats(_ context.Context, s *domain.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats[s.ShipmentID] = *s
	return nil
}
