package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridecore/internal/domain"
	"ridecore/internal/repository"
)

// PresenceRepository is a PostgreSQL implementation of repository.PresenceRepository.
type PresenceRepository struct {
	q Querier
}

// NewPresenceRepository creates a new PostgreSQL presence repository.
func NewPresenceRepository(db *sql.DB) *PresenceRepository {
	return &PresenceRepository{q: db}
}

// NewPresenceRepositoryWithTx creates a presence repository using a transaction.
func NewPresenceRepositoryWithTx(tx *sql.Tx) *PresenceRepository {
	return &PresenceRepository{q: tx}
}

// Get retrieves a driver's presence row.
func (r *PresenceRepository) Get(ctx context.Context, driverID string) (*domain.DriverPresence, error) {
	query := `
		SELECT driver_id, status, last_ping_at, total_online_hours, on_trip
		FROM driver_presence WHERE driver_id = $1
	`
	return r.scan(r.q.QueryRowContext(ctx, query, driverID))
}

// GetForUpdate retrieves a driver's presence row with a row lock. Concurrent
// heartbeats for the same driver serialize here.
func (r *PresenceRepository) GetForUpdate(ctx context.Context, driverID string) (*domain.DriverPresence, error) {
	query := `
		SELECT driver_id, status, last_ping_at, total_online_hours, on_trip
		FROM driver_presence WHERE driver_id = $1 FOR UPDATE
	`
	return r.scan(r.q.QueryRowContext(ctx, query, driverID))
}

// Upsert creates or replaces a driver's presence row.
func (r *PresenceRepository) Upsert(ctx context.Context, p *domain.DriverPresence) error {
	query := `
		INSERT INTO driver_presence (driver_id, status, last_ping_at, total_online_hours, on_trip)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (driver_id) DO UPDATE SET
			status = EXCLUDED.status,
			last_ping_at = EXCLUDED.last_ping_at,
			total_online_hours = EXCLUDED.total_online_hours,
			on_trip = EXCLUDED.on_trip
	`

	_, err := r.q.ExecContext(ctx, query,
		p.DriverID,
		p.Status,
		nullTime(p.LastPingAt),
		p.TotalOnlineHours,
		p.OnTrip,
	)
	return err
}

// SetOnTrip sets the driver's in-trip flag.
func (r *PresenceRepository) SetOnTrip(ctx context.Context, driverID string, onTrip bool) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE driver_presence SET on_trip = $2 WHERE driver_id = $1`,
		driverID, onTrip,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *PresenceRepository) scan(row *sql.Row) (*domain.DriverPresence, error) {
	var p domain.DriverPresence
	var lastPing sql.NullTime

	err := row.Scan(&p.DriverID, &p.Status, &lastPing, &p.TotalOnlineHours, &p.OnTrip)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	p.LastPingAt = lastPing.Time
	return &p, nil
}

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT id, name, phone, vehicle_id FROM drivers WHERE id = $1`

	var d domain.Driver
	var vehicleID sql.NullString

	err := r.q.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.Phone, &vehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	d.VehicleID = vehicleID.String
	return &d, nil
}
