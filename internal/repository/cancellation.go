package repository

import (
	"context"
	"time"

	"ridecore/internal/domain"
)

// CancellationRepository defines the persistence operations for the
// cancellation audit trail.
type CancellationRepository interface {
	// Create persists a cancellation record.
	Create(ctx context.Context, rec *domain.CancellationRecord) error

	// CountValidReasonSince counts the driver's valid-reason cancellations
	// recorded after the given instant. Feeds the waiver rate limit.
	CountValidReasonSince(ctx context.Context, driverID string, since time.Time) (int, error)
}
