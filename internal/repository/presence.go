package repository

import (
	"context"

	"ridecore/internal/domain"
)

// PresenceRepository defines the persistence operations for driver presence.
type PresenceRepository interface {
	// Get retrieves a driver's presence row.
	Get(ctx context.Context, driverID string) (*domain.DriverPresence, error)

	// GetForUpdate retrieves a driver's presence row with a row lock,
	// serializing concurrent heartbeats for the same driver. Only
	// meaningful on a transaction-scoped repository.
	GetForUpdate(ctx context.Context, driverID string) (*domain.DriverPresence, error)

	// Upsert creates or replaces a driver's presence row.
	Upsert(ctx context.Context, presence *domain.DriverPresence) error

	// SetOnTrip sets the driver's in-trip flag.
	SetOnTrip(ctx context.Context, driverID string, onTrip bool) error
}

// DriverRepository defines lookups against the external driver registry.
// Registration and verification live outside this service.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
}
