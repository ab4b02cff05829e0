package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	policydomain "coldchain-monitor/internal/features/policy/domain"
	"coldchain-monitor/internal/features/shipments/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shipmentSchema = `
CREATE TABLE IF NOT EXISTS shipments (
	id             UUID PRIMARY KEY,
	cargo_type     TEXT NOT NULL,
	origin         TEXT NOT NULL,
	destination    TEXT NOT NULL,
	vehicle_id     TEXT,
	status         TEXT NOT NULL,
	range_override JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS timeline_events (
	id          UUID PRIMARY KEY,
	shipment_id UUID NOT NULL REFERENCES shipments(id),
	status      TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	sequence    BIGINT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	reading_id  TEXT NOT NULL DEFAULT '',
	alert_id    TEXT NOT NULL DEFAULT '',
	note        TEXT NOT NULL DEFAULT '',
	UNIQUE (shipment_id, sequence)
);

CREATE INDEX IF NOT EXISTS timeline_events_ship_ts_idx
	ON timeline_events (shipment_id, ts, sequence);
`

// PostgresStore implements ports.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool (shared with other features).
func NewPostgresStoreWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the shipment tables when missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, shipmentSchema); err != nil {
		return fmt.Errorf("failed to migrate shipment schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// CreateShipment persists a new shipment.
func (p *PostgresStore) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	var override []byte
	if s.RangeOverride != nil {
		var err error
		override, err = json.Marshal(s.RangeOverride)
		if err != nil {
			return fmt.Errorf("failed to marshal range override: %w", err)
		}
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO shipments (id, cargo_type, origin, destination, vehicle_id, status, range_override, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.CargoType, s.Origin, s.Destination, s.VehicleID, string(s.Status), override, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

// GetShipment returns a shipment by id.
func (p *PostgresStore) GetShipment(ctx context.Context, id string) (*domain.Shipment, error) {
	var (
		s        domain.Shipment
		status   string
		override []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, cargo_type, origin, destination, vehicle_id, status, range_override, created_at, updated_at
		 FROM shipments WHERE id = $1`, id,
	).Scan(&s.ID, &s.CargoType, &s.Origin, &s.Destination, &s.VehicleID, &status, &override, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrShipmentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query shipment: %w", err)
	}

	s.Status = domain.Status(status)
	if len(override) > 0 {
		var rng policydomain.Range
		if err := json.Unmarshal(override, &rng); err != nil {
			return nil, fmt.Errorf("failed to unmarshal range override: %w", err)
		}
		s.RangeOverride = &rng
	}
	return &s, nil
}

// UpdateShipmentStatus moves the shipment's current-status field.
func (p *PostgresStore) UpdateShipmentStatus(ctx context.Context, id string, status domain.Status, updatedAt time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE shipments SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update shipment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrShipmentNotFound, id)
	}
	return nil
}

// AppendEvent persists the event with the next per-shipment sequence number.
// The sequence is computed inside a transaction; callers additionally hold
// the per-shipment lock, so sequences never collide.
func (p *PostgresStore) AppendEvent(ctx context.Context, e *domain.TimelineEvent) (*domain.TimelineEvent, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	stored := *e
	err = tx.QueryRow(ctx,
		`INSERT INTO timeline_events (id, shipment_id, status, location, sequence, ts, reading_id, alert_id, note)
		 VALUES ($1, $2, $3, $4,
			 (SELECT COALESCE(MAX(sequence), 0) + 1 FROM timeline_events WHERE shipment_id = $2),
			 $5, $6, $7, $8)
		 RETURNING sequence`,
		e.ID, e.ShipmentID, string(e.Status), e.Location, e.Timestamp, e.ReadingID, e.AlertID, e.Note,
	).Scan(&stored.Sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to insert timeline event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit timeline event: %w", err)
	}
	return &stored, nil
}

// ListEvents returns all events for a shipment ordered by (timestamp, sequence).
func (p *PostgresStore) ListEvents(ctx context.Context, shipmentID string) ([]domain.TimelineEvent, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, shipment_id, status, location, sequence, ts, reading_id, alert_id, note
		 FROM timeline_events WHERE shipment_id = $1 ORDER BY ts, sequence`, shipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline events: %w", err)
	}
	defer rows.Close()

	var events []domain.TimelineEvent
	for rows.Next() {
		var (
			e      domain.TimelineEvent
			status string
		)
		if err := rows.Scan(&e.ID, &e.ShipmentID, &status, &e.Location, &e.Sequence, &e.Timestamp, &e.ReadingID, &e.AlertID, &e.Note); err != nil {
			return nil, fmt.Errorf("failed to scan timeline event: %w", err)
		}
		e.Status = domain.Status(status)
		events = append(events, e)
	}
	return events, rows.Err()
}
