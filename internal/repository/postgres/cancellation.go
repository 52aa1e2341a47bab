package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridecore/internal/domain"
)

// CancellationRepository is a PostgreSQL implementation of
// repository.CancellationRepository.
type CancellationRepository struct {
	q Querier
}

// NewCancellationRepository creates a new PostgreSQL cancellation repository.
func NewCancellationRepository(db *sql.DB) *CancellationRepository {
	return &CancellationRepository{q: db}
}

// NewCancellationRepositoryWithTx creates a cancellation repository using a transaction.
func NewCancellationRepositoryWithTx(tx *sql.Tx) *CancellationRepository {
	return &CancellationRepository{q: tx}
}

// Create persists a cancellation record.
func (r *CancellationRepository) Create(ctx context.Context, rec *domain.CancellationRecord) error {
	query := `
		INSERT INTO cancellation_records (id, driver_id, ride_id, category, strike_type, reason_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		rec.ID,
		rec.DriverID,
		rec.RideID,
		rec.Category,
		nullString(string(rec.StrikeType)),
		nullString(string(rec.ReasonType)),
		rec.CreatedAt,
	)
	return err
}

// CountValidReasonSince counts the driver's valid-reason cancellations after
// the given instant.
func (r *CancellationRepository) CountValidReasonSince(ctx context.Context, driverID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM cancellation_records
		WHERE driver_id = $1 AND category = $2 AND created_at >= $3
	`

	var count int
	err := r.q.QueryRowContext(ctx, query, driverID, domain.CancellationValidReason, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
