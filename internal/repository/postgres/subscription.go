package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridecore/internal/domain"
	"ridecore/internal/repository"
)

// SubscriptionRepository is a PostgreSQL implementation of
// repository.SubscriptionRepository.
type SubscriptionRepository struct {
	q Querier
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{q: db}
}

// NewSubscriptionRepositoryWithTx creates a subscription repository using a transaction.
func NewSubscriptionRepositoryWithTx(tx *sql.Tx) *SubscriptionRepository {
	return &SubscriptionRepository{q: tx}
}

const subscriptionColumns = `
	id, driver_id, plan_name, price, status, start_time, expire,
	remaining_minutes, daily_allowance_minutes, created_at`

// Create persists a new subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.DriverSubscription) error {
	query := `
		INSERT INTO driver_subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		sub.ID,
		sub.DriverID,
		sub.PlanName,
		sub.Price,
		sub.Status,
		sub.StartTime,
		nullTime(sub.Expire),
		nullInt(sub.RemainingMinutes),
		nullInt(sub.DailyAllowanceMinutes),
		sub.CreatedAt,
	)
	return err
}

// GetActiveByDriverID retrieves the driver's ACTIVE subscription.
func (r *SubscriptionRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.DriverSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM driver_subscriptions
		WHERE driver_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1
	`
	return r.scan(r.q.QueryRowContext(ctx, query, driverID, domain.SubscriptionStatusActive))
}

// GetActiveByDriverIDForUpdate retrieves the driver's ACTIVE subscription
// with a row lock.
func (r *SubscriptionRepository) GetActiveByDriverIDForUpdate(ctx context.Context, driverID string) (*domain.DriverSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM driver_subscriptions
		WHERE driver_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1
		FOR UPDATE
	`
	return r.scan(r.q.QueryRowContext(ctx, query, driverID, domain.SubscriptionStatusActive))
}

// GetLatestByDriverID retrieves the driver's most recent subscription
// regardless of status.
func (r *SubscriptionRepository) GetLatestByDriverID(ctx context.Context, driverID string) (*domain.DriverSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM driver_subscriptions
		WHERE driver_id = $1
		ORDER BY created_at DESC LIMIT 1
	`
	return r.scan(r.q.QueryRowContext(ctx, query, driverID))
}

// Update updates an existing subscription.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.DriverSubscription) error {
	query := `
		UPDATE driver_subscriptions SET
			plan_name = $2, price = $3, status = $4, start_time = $5,
			expire = $6, remaining_minutes = $7, daily_allowance_minutes = $8
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		sub.ID,
		sub.PlanName,
		sub.Price,
		sub.Status,
		sub.StartTime,
		nullTime(sub.Expire),
		nullInt(sub.RemainingMinutes),
		nullInt(sub.DailyAllowanceMinutes),
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

func (r *SubscriptionRepository) scan(row *sql.Row) (*domain.DriverSubscription, error) {
	var sub domain.DriverSubscription
	var expire sql.NullTime
	var remaining, daily sql.NullInt64

	err := row.Scan(
		&sub.ID,
		&sub.DriverID,
		&sub.PlanName,
		&sub.Price,
		&sub.Status,
		&sub.StartTime,
		&expire,
		&remaining,
		&daily,
		&sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	sub.Expire = expire.Time
	if remaining.Valid {
		v := int(remaining.Int64)
		sub.RemainingMinutes = &v
	}
	if daily.Valid {
		v := int(daily.Int64)
		sub.DailyAllowanceMinutes = &v
	}

	return &sub, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
