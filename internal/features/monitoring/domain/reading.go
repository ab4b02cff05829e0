package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidReading is returned for malformed submissions; the caller
	// can correct the input and retry.
	ErrInvalidReading = errors.New("invalid reading")
	// ErrPersistenceTimeout is returned when a persistence call exceeds its
	// deadline. The reading is not accepted; the idempotency key makes a
	// retry safe.
	ErrPersistenceTimeout = errors.New("persistence timeout")
)

// Source identifies where a reading came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceDevice Source = "device"
)

// Classification is the alert level derived for a reading.
type Classification string

const (
	ClassificationNormal   Classification = "normal"
	ClassificationWarning  Classification = "warning"
	ClassificationCritical Classification = "critical"
	// ClassificationUnclassified marks readings stored while no range
	// policy could be resolved. They are re-evaluable once the policy gap
	// is fixed; they are never dropped.
	ClassificationUnclassified Classification = "unclassified"
)

// rank orders classifications by severity for worst-of aggregation.
func (c Classification) rank() int {
	switch c {
	case ClassificationWarning:
		return 1
	case ClassificationCritical:
		return 2
	default:
		return 0
	}
}

// Worst returns the more severe of c and other.
func (c Classification) Worst(other Classification) Classification {
	if other.rank() > c.rank() {
		return other
	}
	return c
}

// Reading is one timestamped temperature/humidity sample for a shipment.
// Immutable once accepted; ordered by (timestamp, arrival sequence), so a
// late-arriving device reading still lands at its correct position.
type Reading struct {
	ID             string         `json:"id"`
	ShipmentID     string         `json:"shipment_id"`
	Temperature    float64        `json:"temperature"`
	Humidity       *float64       `json:"humidity,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Source         Source         `json:"source"`
	DeviceID       string         `json:"device_id,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Classification Classification `json:"classification"`
	// Sequence is the per-shipment arrival order, used only to break
	// timestamp ties deterministically.
	Sequence   int64     `json:"-"`
	IngestedAt time.Time `json:"ingested_at"`
}

// RoundTenth rounds v to the API's one implied decimal digit.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Validate checks the submission invariants: a finite temperature, humidity
// (when present) within [0,100], and a known source.
func (r *Reading) Validate() error {
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return fmt.Errorf("%w: temperature must be a finite number", ErrInvalidReading)
	}
	if r.Humidity != nil {
		if math.IsNaN(*r.Humidity) || *r.Humidity < 0 || *r.Humidity > 100 {
			return fmt.Errorf("%w: humidity must be within [0,100]", ErrInvalidReading)
		}
	}
	if r.Source != SourceManual && r.Source != SourceDevice {
		return fmt.Errorf("%w: source must be %q or %q", ErrInvalidReading, SourceManual, SourceDevice)
	}
	if r.Source == SourceDevice && r.DeviceID == "" {
		return fmt.Errorf("%w: device readings require a device id", ErrInvalidReading)
	}
	return nil
}

// DedupKey is the at-most-once idempotency key protecting against IoT
// retransmissions: (shipment, device, timestamp, temperature, humidity).
func (r *Reading) DedupKey() string {
	var b strings.Builder
	b.WriteString(r.ShipmentID)
	b.WriteByte('|')
	b.WriteString(r.DeviceID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(r.Timestamp.UTC().UnixNano(), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.Temperature, 'f', 1, 64))
	b.WriteByte('|')
	if r.Humidity != nil {
		b.WriteString(strconv.FormatFloat(*r.Humidity, 'f', 1, 64))
	}
	return b.String()
}
