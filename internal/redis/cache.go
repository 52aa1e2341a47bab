package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	PresenceCacheTTL     = 15 * time.Second // presence flips on every heartbeat gap
	SubscriptionCacheTTL = 30 * time.Second
)

// Key prefixes
const (
	presenceCachePrefix     = "cache:presence:"
	subscriptionCachePrefix = "cache:subscription:"
)

// CachedPresence is the cached projection of a driver's presence row.
type CachedPresence struct {
	DriverID         string    `json:"driver_id"`
	Status           string    `json:"status"`
	LastPingAt       time.Time `json:"last_ping_at"`
	TotalOnlineHours float64   `json:"total_online_hours"`
	OnTrip           bool      `json:"on_trip"`
}

// CachedSubscription is the cached projection of a driver's active subscription.
type CachedSubscription struct {
	ID               string `json:"id"`
	DriverID         string `json:"driver_id"`
	Status           string `json:"status"`
	RemainingMinutes *int   `json:"remaining_minutes,omitempty"`
}

// GetPresence retrieves a presence snapshot from cache. A nil result with a
// nil error is a cache miss.
func (s *CacheStore) GetPresence(ctx context.Context, driverID string) (*CachedPresence, error) {
	data, err := s.client.Get(ctx, presenceCachePrefix+driverID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var p CachedPresence
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPresence stores a presence snapshot in cache.
func (s *CacheStore) SetPresence(ctx context.Context, p *CachedPresence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, presenceCachePrefix+p.DriverID, data, PresenceCacheTTL).Err()
}

// InvalidatePresence removes a presence snapshot from cache.
func (s *CacheStore) InvalidatePresence(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, presenceCachePrefix+driverID).Err()
}

// GetSubscription retrieves a subscription snapshot from cache.
func (s *CacheStore) GetSubscription(ctx context.Context, driverID string) (*CachedSubscription, error) {
	data, err := s.client.Get(ctx, subscriptionCachePrefix+driverID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var sub CachedSubscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SetSubscription stores a subscription snapshot in cache.
func (s *CacheStore) SetSubscription(ctx context.Context, sub *CachedSubscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, subscriptionCachePrefix+sub.DriverID, data, SubscriptionCacheTTL).Err()
}

// InvalidateSubscription removes a subscription snapshot from cache.
func (s *CacheStore) InvalidateSubscription(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, subscriptionCachePrefix+driverID).Err()
}
