package notify

import "time"

// EventType identifies the lifecycle callback an Event corresponds to.
type EventType string

const (
	EventAlertOpened      EventType = "alert_opened"
	EventAlertEscalated   EventType = "alert_escalated"
	EventAlertResolved    EventType = "alert_resolved"
	EventShipmentTerminal EventType = "shipment_terminal"
)

// Event is the payload delivered to subscribed notification systems
// (email/SMS workers, UI push). Fields not relevant to a given type are empty.
type Event struct {
	Type       EventType `json:"type"`
	ShipmentID string    `json:"shipment_id"`
	AlertID    string    `json:"alert_id,omitempty"`
	Metric     string    `json:"metric,omitempty"`
	Severity   string    `json:"severity,omitempty"`
	Status     string    `json:"status,omitempty"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier is the outbound port the engine emits lifecycle events through.
// The engine never sends notifications itself; external systems subscribe.
type Notifier interface {
	AlertOpened(e Event)
	AlertEscalated(e Event)
	AlertResolved(e Event)
	ShipmentTerminal(e Event)
}

// Nop is a Notifier that discards every event. Useful in tests.
type Nop struct{}

func (Nop) AlertOpened(Event)      {}
func (Nop) AlertEscalated(Event)   {}
func (Nop) AlertResolved(Event)    {}
func (Nop) ShipmentTerminal(Event) {}
