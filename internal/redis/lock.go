package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireHeartbeatLock attempts to acquire the per-driver heartbeat lock.
// Heartbeat billing is delta-based on last_ping_at, so two racing heartbeats
// for the same driver could double-decrement the allowance; the lock gives
// single-writer ordering per driver. Returns true if the lock was acquired.
func (s *LockStore) AcquireHeartbeatLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:heartbeat:%s", driverID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseHeartbeatLock releases the per-driver heartbeat lock.
func (s *LockStore) ReleaseHeartbeatLock(ctx context.Context, driverID string) error {
	key := fmt.Sprintf("lock:heartbeat:%s", driverID)

	return s.client.Del(ctx, key).Err()
}
