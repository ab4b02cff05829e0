package service

import (
	policydomain "coldchain-monitor/internal/features/policy/domain"
	"coldchain-monitor/internal/features/monitoring/domain"
)

// Outcome is the classifier's decision for one reading: the reading's level
// plus the alert lifecycle changes it implies. The alerts referenced in
// Extended/Escalated/Resolved are the caller's open alerts, mutated in
// place; Opened holds newly created ones.
type Outcome struct {
	Level     domain.Classification
	Opened    []*domain.Alert
	Extended  []*domain.Alert
	Escalated []*domain.Alert
	Resolved  []*domain.Alert
}

// Changed returns every alert the outcome created or mutated.
func (o *Outcome) Changed() []*domain.Alert {
	out := make([]*domain.Alert, 0, len(o.Opened)+len(o.Extended)+len(o.Escalated)+len(o.Resolved))
	out = append(out, o.Opened...)
	out = append(out, o.Extended...)
	out = append(out, o.Escalated...)
	out = append(out, o.Resolved...)
	return out
}

// severityFor maps a deviation to a tier. A deviation at or beyond the
// critical margin is critical; anything outside the range but inside the
// margin is a warning.
func severityFor(deviation, margin float64) (domain.Severity, bool) {
	if deviation <= 0 {
		return "", false
	}
	if deviation >= margin {
		return domain.SeverityCritical, true
	}
	return domain.SeverityWarning, true
}

// Classify is a pure decision over (policy, reading, current open-alert
// set). Temperature and humidity are evaluated as independent alert tracks;
// a metric absent from the reading (or unconstrained by the policy) leaves
// its track untouched.
func Classify(rng policydomain.Range, r *domain.Reading, open map[domain.Metric]*domain.Alert) Outcome {
	out := Outcome{Level: domain.ClassificationNormal}

	classifyMetric(&out, domain.MetricTemperature, rng.TempDeviation(r.Temperature), rng.CriticalMargin, r, open)

	if r.Humidity != nil && rng.ConstrainsHumidity() {
		classifyMetric(&out, domain.MetricHumidity, rng.HumidityDeviation(*r.Humidity), rng.CriticalMargin, r, open)
	}

	return out
}

func classifyMetric(out *Outcome, metric domain.Metric, deviation, margin float64, r *domain.Reading, open map[domain.Metric]*domain.Alert) {
	existing := open[metric]
	severity, breached := severityFor(deviation, margin)

	if !breached {
		// A normal reading for the metric is the clearing signal for its
		// open alert.
		if existing != nil {
			existing.Resolve(r, "reading returned to acceptable range")
			out.Resolved = append(out.Resolved, existing)
		}
		return
	}

	switch {
	case existing == nil:
		out.Opened = append(out.Opened, domain.NewAlert(metric, severity, r))
	case severity == domain.SeverityCritical && existing.Severity == domain.SeverityWarning:
		existing.Escalate(r)
		out.Escalated = append(out.Escalated, existing)
	default:
		// Repeat breach of an already-open track (including a warning-level
		// reading while the alert is critical) coalesces into it.
		existing.Extend(r)
		out.Extended = append(out.Extended, existing)
	}

	level := domain.ClassificationWarning
	if severity == domain.SeverityCritical {
		level = domain.ClassificationCritical
	}
	out.Level = out.Level.Worst(level)
}
