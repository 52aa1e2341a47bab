package repository

import (
	"context"

	"ridecore/internal/domain"
)

// SubscriptionRepository defines the persistence operations for driver
// subscriptions.
type SubscriptionRepository interface {
	// Create persists a new subscription.
	Create(ctx context.Context, sub *domain.DriverSubscription) error

	// GetActiveByDriverID retrieves the driver's ACTIVE subscription, or
	// ErrNotFound when there is none.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.DriverSubscription, error)

	// GetActiveByDriverIDForUpdate is GetActiveByDriverID with a row lock.
	// Only meaningful on a transaction-scoped repository.
	GetActiveByDriverIDForUpdate(ctx context.Context, driverID string) (*domain.DriverSubscription, error)

	// GetLatestByDriverID retrieves the driver's most recent subscription
	// regardless of status, or ErrNotFound.
	GetLatestByDriverID(ctx context.Context, driverID string) (*domain.DriverSubscription, error)

	// Update updates an existing subscription.
	Update(ctx context.Context, sub *domain.DriverSubscription) error
}
