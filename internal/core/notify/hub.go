package notify

import (
	"sync"

	"coldchain-monitor/internal/core/logger"
	"coldchain-monitor/internal/core/metrics"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Hub is a fan-out Notifier. Subscribers receive events on buffered channels
// and publishing never blocks: an event that cannot be queued for a slow
// subscriber is dropped and counted.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function removes
// the subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

func (h *Hub) publish(e Event) {
	logger.Get().Info("Notification event",
		zap.String("type", string(e.Type)),
		zap.String("shipment_id", e.ShipmentID),
		zap.String("alert_id", e.AlertID),
		zap.String("severity", e.Severity),
	)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			metrics.NotifyDrops.Inc()
		}
	}
}

// AlertOpened implements Notifier.
func (h *Hub) AlertOpened(e Event) {
	e.Type = EventAlertOpened
	h.publish(e)
}

// AlertEscalated implements Notifier.
func (h *Hub) AlertEscalated(e Event) {
	e.Type = EventAlertEscalated
	h.publish(e)
}

// AlertResolved implements Notifier.
func (h *Hub) AlertResolved(e Event) {
	e.Type = EventAlertResolved
	h.publish(e)
}

// ShipmentTerminal implements Notifier.
func (h *Hub) ShipmentTerminal(e Event) {
	e.Type = EventShipmentTerminal
	h.publish(e)
}
