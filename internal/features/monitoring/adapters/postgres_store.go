package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coldchain-monitor/internal/features/monitoring/domain"
)

const monitoringSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id             UUID PRIMARY KEY,
	shipment_id    UUID NOT NULL,
	temperature    DOUBLE PRECISION NOT NULL,
	humidity       DOUBLE PRECISION,
	ts             TIMESTAMPTZ NOT NULL,
	source         TEXT NOT NULL,
	device_id      TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	classification TEXT NOT NULL,
	dedup_key      TEXT NOT NULL UNIQUE,
	sequence       BIGSERIAL,
	ingested_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS readings_ship_ts_idx
	ON readings (shipment_id, ts, sequence);

CREATE TABLE IF NOT EXISTS alerts (
	id                  UUID PRIMARY KEY,
	shipment_id         UUID NOT NULL,
	metric              TEXT NOT NULL,
	severity            TEXT NOT NULL,
	status              TEXT NOT NULL,
	opened_by_reading   UUID NOT NULL,
	opened_at           TIMESTAMPTZ NOT NULL,
	last_seen_reading   UUID NOT NULL,
	last_seen_at        TIMESTAMPTZ NOT NULL,
	resolved_by_reading UUID,
	resolved_at         TIMESTAMPTZ,
	resolution_note     TEXT NOT NULL DEFAULT '',
	history             JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS alerts_ship_opened_idx
	ON alerts (shipment_id, opened_at DESC);
CREATE INDEX IF NOT EXISTS alerts_open_idx
	ON alerts (status) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS shipment_stats (
	shipment_id    UUID PRIMARY KEY,
	count          BIGINT NOT NULL,
	sum            DOUBLE PRECISION NOT NULL,
	min            DOUBLE PRECISION NOT NULL,
	min_at         TIMESTAMPTZ NOT NULL,
	min_reading_id TEXT NOT NULL DEFAULT '',
	max            DOUBLE PRECISION NOT NULL,
	max_at         TIMESTAMPTZ NOT NULL,
	max_reading_id TEXT NOT NULL DEFAULT '',
	alert_count    BIGINT NOT NULL
);
`

// PostgresMonitoringStore implements ports.Store on a pgx connection pool.
// Idempotent inserts ride on the readings unique constraint; the running
// stats aggregate is upserted alongside each accepted reading.
type PostgresMonitoringStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMonitoringStore connects to Postgres and verifies the connection.
func NewPostgresMonitoringStore(ctx context.Context, databaseURL string) (*PostgresMonitoringStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &PostgresMonitoringStore{pool: pool}, nil
}

// NewPostgresMonitoringStoreWithPool wraps an existing pool.
func NewPostgresMonitoringStoreWithPool(pool *pgxpool.Pool) *PostgresMonitoringStore {
	return &PostgresMonitoringStore{pool: pool}
}

// Migrate creates the monitoring tables when missing.
func (p *PostgresMonitoringStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, monitoringSchema); err != nil {
		return fmt.Errorf("failed to migrate monitoring schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *PostgresMonitoringStore) Close() {
	p.pool.Close()
}

// InsertReading persists the reading. The domain idempotency key is stored
// as its own uniquely constrained column; SQL NULL comparison semantics
// never participate, so a humidity-less retransmission conflicts the same
// way a humidity-carrying one does.
func (p *PostgresMonitoringStore) InsertReading(ctx context.Context, r *domain.Reading) (*domain.Reading, bool, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO readings (id, shipment_id, temperature, humidity, ts, source, device_id, notes, classification, dedup_key, ingested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (dedup_key) DO NOTHING`,
		r.ID, r.ShipmentID, r.Temperature, r.Humidity, r.Timestamp, string(r.Source),
		r.DeviceID, r.Notes, string(r.Classification), r.DedupKey(), r.IngestedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert reading: %w", err)
	}

	if tag.RowsAffected() == 0 {
		existing, err := p.getReadingByKey(ctx, r.DedupKey())
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	stored := *r
	err = p.pool.QueryRow(ctx,
		`SELECT sequence FROM readings WHERE id = $1`, r.ID,
	).Scan(&stored.Sequence)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read back sequence: %w", err)
	}
	return &stored, true, nil
}

func (p *PostgresMonitoringStore) getReadingByKey(ctx context.Context, dedupKey string) (*domain.Reading, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, shipment_id, temperature, humidity, ts, source, device_id, notes, classification, sequence, ingested_at
		 FROM readings WHERE dedup_key = $1`,
		dedupKey,
	)
	existing, err := scanReading(row)
	if err != nil {
		return nil, fmt.Errorf("failed to load duplicate reading: %w", err)
	}
	return existing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*domain.Reading, error) {
	var (
		r              domain.Reading
		source         string
		classification string
	)
	err := row.Scan(&r.ID, &r.ShipmentID, &r.Temperature, &r.Humidity, &r.Timestamp,
		&source, &r.DeviceID, &r.Notes, &classification, &r.Sequence, &r.IngestedAt)
	if err != nil {
		return nil, err
	}
	r.Source = domain.Source(source)
	r.Classification = domain.Classification(classification)
	return &r, nil
}

// ListReadings returns one page ordered by (timestamp, sequence).
func (p *PostgresMonitoringStore) ListReadings(ctx context.Context, shipmentID string, page, pageSize int) ([]domain.Reading, int64, error) {
	var total int64
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM readings WHERE shipment_id = $1`, shipmentID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count readings: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, shipment_id, temperature, humidity, ts, source, device_id, notes, classification, sequence, ingested_at
		 FROM readings WHERE shipment_id = $1
		 ORDER BY ts, sequence
		 LIMIT $2 OFFSET $3`,
		shipmentID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []domain.Reading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *r)
	}
	return readings, total, rows.Err()
}

// ListReadingsSince returns readings with timestamp >= since.
func (p *PostgresMonitoringStore) ListReadingsSince(ctx context.Context, shipmentID string, since time.Time) ([]domain.Reading, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, shipment_id, temperature, humidity, ts, source, device_id, notes, classification, sequence, ingested_at
		 FROM readings WHERE shipment_id = $1 AND ts >= $2
		 ORDER BY ts, sequence`,
		shipmentID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *r)
	}
	return readings, rows.Err()
}

// SaveAlert inserts or updates an alert by id.
func (p *PostgresMonitoringStore) SaveAlert(ctx context.Context, a *domain.Alert) error {
	history, err := json.Marshal(a.History)
	if err != nil {
		return fmt.Errorf("failed to marshal alert history: %w", err)
	}

	var resolvedBy *string
	if a.ResolvedByReading != "" {
		resolvedBy = &a.ResolvedByReading
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO alerts (id, shipment_id, metric, severity, status, opened_by_reading, opened_at,
			last_seen_reading, last_seen_at, resolved_by_reading, resolved_at, resolution_note, history)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
			severity = EXCLUDED.severity,
			status = EXCLUDED.status,
			last_seen_reading = EXCLUDED.last_seen_reading,
			last_seen_at = EXCLUDED.last_seen_at,
			resolved_by_reading = EXCLUDED.resolved_by_reading,
			resolved_at = EXCLUDED.resolved_at,
			resolution_note = EXCLUDED.resolution_note,
			history = EXCLUDED.history`,
		a.ID, a.ShipmentID, string(a.Metric), string(a.Severity), string(a.Status),
		a.OpenedByReading, a.OpenedAt, a.LastSeenReading, a.LastSeenAt,
		resolvedBy, a.ResolvedAt, a.ResolutionNote, history,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

func (p *PostgresMonitoringStore) queryAlerts(ctx context.Context, query string, args ...any) ([]domain.Alert, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var (
			a          domain.Alert
			metric     string
			severity   string
			status     string
			resolvedBy *string
			history    []byte
		)
		err := rows.Scan(&a.ID, &a.ShipmentID, &metric, &severity, &status,
			&a.OpenedByReading, &a.OpenedAt, &a.LastSeenReading, &a.LastSeenAt,
			&resolvedBy, &a.ResolvedAt, &a.ResolutionNote, &history)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Metric = domain.Metric(metric)
		a.Severity = domain.Severity(severity)
		a.Status = domain.AlertStatus(status)
		if resolvedBy != nil {
			a.ResolvedByReading = *resolvedBy
		}
		if err := json.Unmarshal(history, &a.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert history: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

const alertColumns = `id, shipment_id, metric, severity, status, opened_by_reading, opened_at,
	last_seen_reading, last_seen_at, resolved_by_reading, resolved_at, resolution_note, history`

// ListAlerts returns all alerts for a shipment, newest first.
func (p *PostgresMonitoringStore) ListAlerts(ctx context.Context, shipmentID string) ([]domain.Alert, error) {
	return p.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE shipment_id = $1 ORDER BY opened_at DESC`,
		shipmentID,
	)
}

// OpenAlertsByShipment returns the shipment's open alerts.
func (p *PostgresMonitoringStore) OpenAlertsByShipment(ctx context.Context, shipmentID string) ([]domain.Alert, error) {
	return p.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE shipment_id = $1 AND status = 'open' ORDER BY opened_at`,
		shipmentID,
	)
}

// OpenAlerts returns every open alert across shipments, oldest first.
func (p *PostgresMonitoringStore) OpenAlerts(ctx context.Context) ([]domain.Alert, error) {
	return p.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE status = 'open' ORDER BY opened_at`,
	)
}

// CountAlertsOpenedSince counts the shipment's alerts opened at or after since.
func (p *PostgresMonitoringStore) CountAlertsOpenedSince(ctx context.Context, shipmentID string, since time.Time) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE shipment_id = $1 AND opened_at >= $2`,
		shipmentID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// GetStats returns the shipment's running aggregate, or nil when absent.
func (p *PostgresMonitoringStore) GetStats(ctx context.Context, shipmentID string) (*domain.Stats, error) {
	var s domain.Stats
	err := p.pool.QueryRow(ctx,
		`SELECT shipment_id, count, sum, min, min_at, min_reading_id, max, max_at, max_reading_id, alert_count
		 FROM shipment_stats WHERE shipment_id = $1`, shipmentID,
	).Scan(&s.ShipmentID, &s.Count, &s.Sum, &s.Min, &s.MinAt, &s.MinReadingID,
		&s.Max, &s.MaxAt, &s.MaxReadingID, &s.AlertCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return &s, nil
}

// SaveStats upserts the shipment's running aggregate.
func (p *PostgresMonitoringStore) SaveStats(ctx context.Context, s *domain.Stats) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO shipment_stats (shipment_id, count, sum, min, min_at, min_reading_id, max, max_at, max_reading_id, alert_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (shipment_id) DO UPDATE SET
			count = EXCLUDED.count,
			sum = EXCLUDED.sum,
			min = EXCLUDED.min,
			min_at = EXCLUDED.min_at,
			min_reading_id = EXCLUDED.min_reading_id,
			max = EXCLUDED.max,
			max_at = EXCLUDED.max_at,
			max_reading_id = EXCLUDED.max_reading_id,
			alert_count = EXCLUDED.alert_count`,
		s.ShipmentID, s.Count, s.Sum, s.Min, s.MinAt, s.MinReadingID,
		s.Max, s.MaxAt, s.MaxReadingID, s.AlertCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}
