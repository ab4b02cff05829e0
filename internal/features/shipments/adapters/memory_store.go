package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"coldchain-monitor/internal/features/shipments/domain"
)

// MemoryStore is the in-process implementation of ports.Store. Readers only
// ever observe fully committed shipments and events; all returned values are
// copies.
type MemoryStore struct {
	mu        sync.RWMutex
	shipments map[string]*domain.Shipment
	events    map[string][]domain.TimelineEvent
	sequences map[string]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shipments: make(map[string]*domain.Shipment),
		events:    make(map[string][]domain.TimelineEvent),
		sequences: make(map[string]int64),
	}
}

// CreateShipment persists a new shipment.
func (m *MemoryStore) CreateShipment(_ context.Context, s *domain.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.shipments[s.ID]; exists {
		return fmt.Errorf("shipment %s already exists", s.ID)
	}
	cp := *s
	m.shipments[s.ID] = &cp
	return nil
}

// GetShipment returns a shipment by id.
func (m *MemoryStore) GetShipment(_ context.Context, id string) (*domain.Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.shipments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrShipmentNotFound, id)
	}
	cp := *s
	return &cp, nil
}

// UpdateShipmentStatus moves the shipment's current-status field.
func (m *MemoryStore) UpdateShipmentStatus(_ context.Context, id string, status domain.Status, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shipments[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrShipmentNotFound, id)
	}
	s.Status = status
	s.UpdatedAt = updatedAt
	return nil
}

// AppendEvent persists the event with the next per-shipment sequence number.
func (m *MemoryStore) AppendEvent(_ context.Context, e *domain.TimelineEvent) (*domain.TimelineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequences[e.ShipmentID]++
	cp := *e
	cp.Sequence = m.sequences[e.ShipmentID]
	m.events[e.ShipmentID] = append(m.events[e.ShipmentID], cp)

	out := cp
	return &out, nil
}

// ListEvents returns all events for a shipment ordered by (timestamp, sequence).
func (m *MemoryStore) ListEvents(_ context.Context, shipmentID string) ([]domain.TimelineEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.events[shipmentID]
	out := make([]domain.TimelineEvent, len(src))
	copy(out, src)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
