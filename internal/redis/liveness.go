package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const livenessKeyPrefix = "presence:alive:"

// LivenessStore maintains the short-TTL "driver is currently reachable"
// signal. Each heartbeat refreshes the key; a crashed client is detected by
// key expiry rather than by an explicit disconnect event.
type LivenessStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLivenessStore creates a new LivenessStore.
func NewLivenessStore(client *redis.Client, ttl time.Duration) *LivenessStore {
	return &LivenessStore{client: client, ttl: ttl}
}

// Refresh marks the driver reachable for the configured TTL.
func (s *LivenessStore) Refresh(ctx context.Context, driverID string) error {
	return s.client.Set(ctx, livenessKeyPrefix+driverID, "1", s.ttl).Err()
}

// Delete removes the liveness key when the driver goes offline.
func (s *LivenessStore) Delete(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, livenessKeyPrefix+driverID).Err()
}

// IsAlive reports whether the driver's liveness key is still present.
func (s *LivenessStore) IsAlive(ctx context.Context, driverID string) (bool, error) {
	n, err := s.client.Exists(ctx, livenessKeyPrefix+driverID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
