package redis

import (
	"context"
	"time"
)

// LivenessStoreInterface defines the interface for the driver liveness signal.
type LivenessStoreInterface interface {
	Refresh(ctx context.Context, driverID string) error
	Delete(ctx context.Context, driverID string) error
	IsAlive(ctx context.Context, driverID string) (bool, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireHeartbeatLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseHeartbeatLock(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LivenessStoreInterface = (*LivenessStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
