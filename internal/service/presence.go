package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ridecore/internal/config"
	"ridecore/internal/domain"
	"ridecore/internal/redis"
	"ridecore/internal/repository"
	"ridecore/internal/repository/postgres"
)

// PresenceService turns driver heartbeats into presence state and allowance
// consumption. Billing is delta-based on the stored last ping, so a gap of
// missed heartbeats is billed in full on the next one; concurrent heartbeats
// for one driver are serialized by a per-driver redis lock plus a row lock
// on the presence row.
type PresenceService struct {
	db                  *sql.DB
	presenceRepo        repository.PresenceRepository
	subscriptionRepo    repository.SubscriptionRepository
	livenessStore       redis.LivenessStoreInterface
	lockStore           redis.LockStoreInterface
	cacheStore          *redis.CacheStore
	cfg                 config.PresenceConfig
	notificationService *NotificationService
}

// NewPresenceService creates a new PresenceService.
func NewPresenceService(
	db *sql.DB,
	presenceRepo repository.PresenceRepository,
	subscriptionRepo repository.SubscriptionRepository,
	livenessStore redis.LivenessStoreInterface,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
	cfg config.PresenceConfig,
	notificationService *NotificationService,
) *PresenceService {
	return &PresenceService{
		db:                  db,
		presenceRepo:        presenceRepo,
		subscriptionRepo:    subscriptionRepo,
		livenessStore:       livenessStore,
		lockStore:           lockStore,
		cacheStore:          cacheStore,
		cfg:                 cfg,
		notificationService: notificationService,
	}
}

// PresenceSnapshot is the state returned to the driver client after a
// heartbeat or availability toggle.
type PresenceSnapshot struct {
	Presence     *domain.DriverPresence
	Subscription *domain.DriverSubscription

	// ForcedOffline is true when this very call exhausted the allowance.
	ForcedOffline bool
}

// HeartbeatOutcome is the result of metering one liveness ping.
type HeartbeatOutcome struct {
	DeltaMinutes       int
	SubscriptionBilled bool
	ForcedOffline      bool
}

// heartbeatDelta returns the whole minutes elapsed since the last ping.
// Time spent OFFLINE is never billed.
func heartbeatDelta(p *domain.DriverPresence, now time.Time) int {
	if p.Status != domain.PresenceStatusOnline || p.LastPingAt.IsZero() {
		return 0
	}
	return int(now.Sub(p.LastPingAt).Minutes())
}

// MeterHeartbeat applies one liveness ping to a presence row and its active
// subscription. Whole minutes elapsed since the last ping are added to the
// online-hours accumulator and deducted from the allowance, floored at 0;
// exhaustion expires the subscription, stamps its deadline with the
// exhaustion instant and forces the presence OFFLINE in the same outcome.
// A ping from an OFFLINE driver passes the same allowance gate as the
// explicit toggle before it brings the driver back ONLINE.
//
// The function is pure: it mutates the passed values and the caller
// persists them.
func MeterHeartbeat(presence *domain.DriverPresence, sub *domain.DriverSubscription, now time.Time) (HeartbeatOutcome, error) {
	var out HeartbeatOutcome

	if presence.Status != domain.PresenceStatusOnline {
		if sub == nil {
			return out, ErrNoActiveSubscription
		}
		if !sub.Usable(now) {
			return out, ErrInsufficientAllowance
		}
	}

	out.DeltaMinutes = heartbeatDelta(presence, now)

	if out.DeltaMinutes >= 1 {
		presence.TotalOnlineHours += float64(out.DeltaMinutes) / 60.0

		if sub != nil && !sub.Unlimited() {
			remaining := *sub.RemainingMinutes - out.DeltaMinutes
			if remaining < 0 {
				remaining = 0
			}
			sub.RemainingMinutes = &remaining
			out.SubscriptionBilled = true

			if remaining == 0 {
				sub.Status = domain.SubscriptionStatusExpired
				// Anchor the exhaustion instant on the row so the grace
				// window counts down from it, not from whenever the
				// expiry is next observed.
				if sub.Expire.IsZero() || sub.Expire.After(now) {
					sub.Expire = now
				}
				out.ForcedOffline = true
			}
		}
	}

	presence.LastPingAt = now
	if out.ForcedOffline {
		presence.Status = domain.PresenceStatusOffline
		presence.OnTrip = false
	} else {
		presence.Status = domain.PresenceStatusOnline
	}

	return out, nil
}

// Heartbeat processes one liveness ping. Whole minutes elapsed since the
// last ping are added to the online-hours accumulator and deducted from the
// active subscription's allowance; hitting zero expires the subscription and
// forces the driver offline in the same transaction. Sub-minute pings only
// refresh the last-ping timestamp, so high-frequency clients are not
// over-billed. A ping from an OFFLINE driver re-onlines them only through
// the same allowance gate as ToggleAvailability.
func (s *PresenceService) Heartbeat(ctx context.Context, driverID string) (*PresenceSnapshot, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	// Serialize per driver: a duplicate ping that loses the race reads the
	// current state instead of double-billing the delta.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireHeartbeatLock(ctx, driverID, s.cfg.HeartbeatLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return s.snapshot(ctx, driverID)
		}
		defer func() { _ = s.lockStore.ReleaseHeartbeatLock(ctx, driverID) }()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txPresenceRepo := postgres.NewPresenceRepositoryWithTx(tx)
	txSubscriptionRepo := postgres.NewSubscriptionRepositoryWithTx(tx)

	now := time.Now()

	var presence *domain.DriverPresence
	presence, err = txPresenceRepo.GetForUpdate(ctx, driverID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// First heartbeat ever seen for this driver. The row starts
		// OFFLINE so the allowance gate below decides whether it may
		// come up ONLINE.
		presence = &domain.DriverPresence{
			DriverID: driverID,
			Status:   domain.PresenceStatusOffline,
		}
		err = nil
	}

	// The subscription row is only needed when there is something to bill
	// or an OFFLINE driver to gate.
	var sub *domain.DriverSubscription
	if presence.Status != domain.PresenceStatusOnline || heartbeatDelta(presence, now) >= 1 {
		sub, err = txSubscriptionRepo.GetActiveByDriverIDForUpdate(ctx, driverID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			sub = nil
			err = nil
		}
	}

	var outcome HeartbeatOutcome
	outcome, err = MeterHeartbeat(presence, sub, now)
	if err != nil {
		return nil, err
	}

	if outcome.SubscriptionBilled {
		if err = txSubscriptionRepo.Update(ctx, sub); err != nil {
			return nil, err
		}
	}

	if err = txPresenceRepo.Upsert(ctx, presence); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if outcome.ForcedOffline {
		if s.livenessStore != nil {
			_ = s.livenessStore.Delete(ctx, driverID)
		}
		if s.notificationService != nil {
			_ = s.notificationService.NotifyForcedOffline(ctx, driverID)
		}
	} else if s.livenessStore != nil {
		_ = s.livenessStore.Refresh(ctx, driverID)
	}

	s.cachePresence(ctx, presence)

	return &PresenceSnapshot{Presence: presence, Subscription: sub, ForcedOffline: outcome.ForcedOffline}, nil
}

// ToggleAvailability flips the driver's durable presence. Going online
// requires an ACTIVE subscription with unlimited or strictly positive
// remaining minutes; going offline always succeeds.
func (s *PresenceService) ToggleAvailability(ctx context.Context, driverID string, goOnline bool) (*PresenceSnapshot, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	now := time.Now()

	var sub *domain.DriverSubscription
	if goOnline {
		var err error
		sub, err = s.subscriptionRepo.GetActiveByDriverID(ctx, driverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNoActiveSubscription
			}
			return nil, err
		}
		if !sub.Usable(now) {
			return nil, ErrInsufficientAllowance
		}
	}

	presence, err := s.presenceRepo.Get(ctx, driverID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		presence = &domain.DriverPresence{DriverID: driverID}
	}

	if goOnline {
		presence.Status = domain.PresenceStatusOnline
		presence.LastPingAt = now
	} else {
		presence.Status = domain.PresenceStatusOffline
	}

	if err := s.presenceRepo.Upsert(ctx, presence); err != nil {
		return nil, err
	}

	if s.livenessStore != nil {
		if goOnline {
			_ = s.livenessStore.Refresh(ctx, driverID)
		} else {
			_ = s.livenessStore.Delete(ctx, driverID)
		}
	}

	s.cachePresence(ctx, presence)

	return &PresenceSnapshot{Presence: presence, Subscription: sub}, nil
}

// GetPresence returns the driver's presence, preferring the cached snapshot.
func (s *PresenceService) GetPresence(ctx context.Context, driverID string) (*domain.DriverPresence, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetPresence(ctx, driverID); err == nil && cached != nil {
			return &domain.DriverPresence{
				DriverID:         cached.DriverID,
				Status:           domain.PresenceStatus(cached.Status),
				LastPingAt:       cached.LastPingAt,
				TotalOnlineHours: cached.TotalOnlineHours,
				OnTrip:           cached.OnTrip,
			}, nil
		}
	}

	return s.presenceRepo.Get(ctx, driverID)
}

// snapshot assembles the current state without mutating anything.
func (s *PresenceService) snapshot(ctx context.Context, driverID string) (*PresenceSnapshot, error) {
	presence, err := s.presenceRepo.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptionRepo.GetActiveByDriverID(ctx, driverID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	return &PresenceSnapshot{Presence: presence, Subscription: sub}, nil
}

func (s *PresenceService) cachePresence(ctx context.Context, p *domain.DriverPresence) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.SetPresence(ctx, &redis.CachedPresence{
		DriverID:         p.DriverID,
		Status:           string(p.Status),
		LastPingAt:       p.LastPingAt,
		TotalOnlineHours: p.TotalOnlineHours,
		OnTrip:           p.OnTrip,
	})
}
