package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridecore/internal/config"
	"ridecore/internal/domain"
	"ridecore/internal/service"
)

// ──────────────────────────────────────────────
// 7. PRESENCE & SUBSCRIPTION METERING
// ──────────────────────────────────────────────

func testPresenceConfig() config.PresenceConfig {
	return config.PresenceConfig{
		LivenessTTL:      90 * time.Second,
		HeartbeatLockTTL: 10 * time.Second,
	}
}

func newPresenceService(presenceRepo *MockPresenceRepository, subRepo *MockSubscriptionRepository, liveness *MockLivenessStore, locks *MockLockStore) *service.PresenceService {
	// The transactional heartbeat path needs a real database; these tests
	// exercise the paths that run against the repositories directly.
	return service.NewPresenceService(nil, presenceRepo, subRepo, liveness, locks, nil, testPresenceConfig(), service.NewNotificationService())
}

func intPtr(v int) *int { return &v }

func TestToggleAvailability_OnlineRequiresSubscription(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	subRepo := NewMockSubscriptionRepository()
	svc := newPresenceService(presenceRepo, subRepo, NewMockLivenessStore(), NewMockLockStore())

	_, err := svc.ToggleAvailability(context.Background(), "driver-1", true)
	if !errors.Is(err, service.ErrNoActiveSubscription) {
		t.Errorf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestToggleAvailability_ExhaustedAllowanceRejected(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	subRepo := NewMockSubscriptionRepository()
	subRepo.AddSubscription(&domain.DriverSubscription{
		ID:               "sub-1",
		DriverID:         "driver-1",
		Status:           domain.SubscriptionStatusActive,
		Expire:           time.Now().Add(24 * time.Hour),
		RemainingMinutes: intPtr(0),
	})
	svc := newPresenceService(presenceRepo, subRepo, NewMockLivenessStore(), NewMockLockStore())

	_, err := svc.ToggleAvailability(context.Background(), "driver-1", true)
	if !errors.Is(err, service.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}
}

func TestToggleAvailability_WallClockExpiryBeatsRemainingMinutes(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	subRepo := NewMockSubscriptionRepository()
	// Plenty of minutes left, but the window itself has lapsed.
	subRepo.AddSubscription(&domain.DriverSubscription{
		ID:               "sub-1",
		DriverID:         "driver-1",
		Status:           domain.SubscriptionStatusActive,
		Expire:           time.Now().Add(-time.Hour),
		RemainingMinutes: intPtr(500),
	})
	svc := newPresenceService(presenceRepo, subRepo, NewMockLivenessStore(), NewMockLockStore())

	_, err := svc.ToggleAvailability(context.Background(), "driver-1", true)
	if !errors.Is(err, service.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}
}

func TestToggleAvailability_OnlineWithUsableSubscription(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	subRepo := NewMockSubscriptionRepository()
	subRepo.AddSubscription(&domain.DriverSubscription{
		ID:               "sub-1",
		DriverID:         "driver-1",
		Status:           domain.SubscriptionStatusActive,
		Expire:           time.Now().Add(24 * time.Hour),
		RemainingMinutes: intPtr(120),
	})
	liveness := NewMockLivenessStore()
	svc := newPresenceService(presenceRepo, subRepo, liveness, NewMockLockStore())

	snap, err := svc.ToggleAvailability(context.Background(), "driver-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Presence.Status != domain.PresenceStatusOnline {
		t.Errorf("expected ONLINE, got %s", snap.Presence.Status)
	}

	alive, _ := liveness.IsAlive(context.Background(), "driver-1")
	if !alive {
		t.Error("going online must refresh the liveness key")
	}
}

func TestToggleAvailability_UnlimitedPlanGoesOnline(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	subRepo := NewMockSubscriptionRepository()
	subRepo.AddSubscription(&domain.DriverSubscription{
		ID:       "sub-1",
		DriverID: "driver-1",
		Status:   domain.SubscriptionStatusActive,
		Expire:   time.Now().Add(24 * time.Hour),
		// RemainingMinutes nil: unlimited plan.
	})
	svc := newPresenceService(presenceRepo, subRepo, NewMockLivenessStore(), NewMockLockStore())

	snap, err := svc.ToggleAvailability(context.Background(), "driver-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Presence.Status != domain.PresenceStatusOnline {
		t.Errorf("expected ONLINE, got %s", snap.Presence.Status)
	}
}

func TestToggleAvailability_OfflineAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	presenceRepo.AddPresence(&domain.DriverPresence{
		DriverID:   "driver-1",
		Status:     domain.PresenceStatusOnline,
		LastPingAt: time.Now(),
	})
	liveness := NewMockLivenessStore()
	_ = liveness.Refresh(context.Background(), "driver-1")

	// No subscription at all; going offline must not care.
	svc := newPresenceService(presenceRepo, NewMockSubscriptionRepository(), liveness, NewMockLockStore())

	snap, err := svc.ToggleAvailability(context.Background(), "driver-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Presence.Status != domain.PresenceStatusOffline {
		t.Errorf("expected OFFLINE, got %s", snap.Presence.Status)
	}

	alive, _ := liveness.IsAlive(context.Background(), "driver-1")
	if alive {
		t.Error("going offline must delete the liveness key")
	}
}

func TestHeartbeat_LostLockReturnsSnapshotWithoutBilling(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	presenceRepo.AddPresence(&domain.DriverPresence{
		DriverID:         "driver-1",
		Status:           domain.PresenceStatusOnline,
		LastPingAt:       time.Now().Add(-5 * time.Minute),
		TotalOnlineHours: 2.0,
	})
	subRepo := NewMockSubscriptionRepository()
	subRepo.AddSubscription(&domain.DriverSubscription{
		ID:               "sub-1",
		DriverID:         "driver-1",
		Status:           domain.SubscriptionStatusActive,
		Expire:           time.Now().Add(24 * time.Hour),
		RemainingMinutes: intPtr(60),
	})

	locks := NewMockLockStore()
	locks.ForceAcquireFailure = true
	svc := newPresenceService(presenceRepo, subRepo, NewMockLivenessStore(), locks)

	snap, err := svc.Heartbeat(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The losing ping observes the current state; the concurrent winner
	// owns the delta, so nothing here may mutate.
	if presenceRepo.UpsertCallCount != 0 {
		t.Error("a lost-lock heartbeat must not write presence")
	}
	if got := *subRepo.GetSubscription("sub-1").RemainingMinutes; got != 60 {
		t.Errorf("a lost-lock heartbeat must not bill minutes, remaining changed to %d", got)
	}
	if snap.Presence.TotalOnlineHours != 2.0 {
		t.Errorf("expected unchanged online hours, got %f", snap.Presence.TotalOnlineHours)
	}
}

func TestGetPresence_FallsThroughToRepository(t *testing.T) {
	t.Parallel()

	presenceRepo := NewMockPresenceRepository()
	presenceRepo.AddPresence(&domain.DriverPresence{
		DriverID: "driver-1",
		Status:   domain.PresenceStatusOffline,
	})
	svc := newPresenceService(presenceRepo, NewMockSubscriptionRepository(), NewMockLivenessStore(), NewMockLockStore())

	p, err := svc.GetPresence(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != domain.PresenceStatusOffline {
		t.Errorf("expected OFFLINE, got %s", p.Status)
	}
}

// ──────────────────────────────────────────────
// 8. HEARTBEAT METERING
// ──────────────────────────────────────────────

func TestMeterHeartbeat_SubMinutePingOnlyRefreshes(t *testing.T) {
	t.Parallel()

	now := time.Now()
	presence := &domain.DriverPresence{
		DriverID:         "driver-1",
		Status:           domain.PresenceStatusOnline,
		LastPingAt:       now.Add(-30 * time.Second),
		TotalOnlineHours: 1.5,
	}
	sub := &domain.DriverSubscription{
		Status:           domain.SubscriptionStatusActive,
		Expire:           now.Add(24 * time.Hour),
		RemainingMinutes: intPtr(60),
	}

	out, err := service.MeterHeartbeat(presence, sub, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DeltaMinutes != 0 || out.SubscriptionBilled {
		t.Errorf("sub-minute ping must not bill, got delta=%d billed=%v", out.DeltaMinutes, out.SubscriptionBilled)
	}
	if *sub.RemainingMinutes != 60 {
		t.Errorf("expected remaining 60, got %d", *sub.RemainingMinutes)
	}
	if presence.TotalOnlineHours != 1.5 {
		t.Errorf("expected unchanged online hours, got %f", presence.TotalOnlineHours)
	}
	if !presence.LastPingAt.Equal(now) {
		t.Error("ping must refresh the last-ping timestamp")
	}
	if presence.Status != domain.PresenceStatusOnline {
		t.Errorf("expected ONLINE, got %s", presence.Status)
	}
}

func TestMeterHeartbeat_BillsWholeMinutesSinceLastPing(t *testing.T) {
	t.Parallel()

	now := time.Now()
	presence := &domain.DriverPresence{
		DriverID:         "driver-1",
		Status:           domain.PresenceStatusOnline,
		LastPingAt:       now.Add(-5*time.Minute - 30*time.Second),
		TotalOnlineHours: 2.0,
	}
	sub := &domain.DriverSubscription{
		Status:           domain.SubscriptionStatusActive,
		Expire:           now.Add(24 * time.Hour),
		RemainingMinutes: intPtr(60),
	}

	out, err := service.MeterHeartbeat(presence, sub, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DeltaMinutes != 5 {
		t.Errorf("expected delta 5, got %d", out.DeltaMinutes)
	}
	if !out.SubscriptionBilled || out.ForcedOffline {
		t.Errorf("expected billed without exhaustion, got billed=%v forced=%v", out.SubscriptionBilled, out.ForcedOffline)
	}
	if *sub.RemainingMinutes != 55 {
		t.Errorf("expected remaining 55, got %d", *sub.RemainingMinutes)
	}
	if !almostEqual(presence.TotalOnlineHours, 2.0+5.0/60.0) {
		t.Errorf("expected online hours %f, got %f", 2.0+5.0/60.0, presence.TotalOnlineHours)
	}
	if presence.Status != domain.PresenceStatusOnline {
		t.Errorf("expected ONLINE, got %s", presence.Status)
	}
}

func TestMeterHeartbeat_ExhaustionForcesOfflineAndAnchorsExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	presence := &domain.DriverPresence{
		DriverID:   "driver-1",
		Status:     domain.PresenceStatusOnline,
		LastPingAt: now.Add(-10 * time.Minute),
		OnTrip:     true,
	}
	// Deadline far in the future; exhaustion must not wait for it.
	sub := &domain.DriverSubscription{
		Status:           domain.SubscriptionStatusActive,
		Expire:           now.Add(20 * 24 * time.Hour),
		RemainingMinutes: intPtr(3),
	}

	out, err := service.MeterHeartbeat(presence, sub, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.ForcedOffline {
		t.Fatal("expected the exhausting ping to force the driver offline")
	}
	if *sub.RemainingMinutes != 0 {
		t.Errorf("remaining minutes must floor at 0, got %d", *sub.RemainingMinutes)
	}
	if sub.Status != domain.SubscriptionStatusExpired {
		t.Errorf("expected EXPIRED, got %s", sub.Status)
	}
	if !sub.Expire.Equal(now) {
		t.Errorf("exhaustion must clamp the deadline to the exhaustion instant, got %v", sub.Expire)
	}
	if presence.Status != domain.PresenceStatusOffline {
		t.Errorf("expected OFFLINE in the same outcome, got %s", presence.Status)
	}
	if presence.OnTrip {
		t.Error("forced offline must clear the trip flag")
	}
}

func TestMeterHeartbeat_AllowanceNeverNegative(t *testing.T) {
	t.Parallel()

	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	presence := &domain.DriverPresence{
		DriverID:   "driver-1",
		Status:     domain.PresenceStatusOnline,
		LastPingAt: clock,
	}
	sub := &domain.DriverSubscription{
		Status:           domain.SubscriptionStatusActive,
		Expire:           clock.Add(24 * time.Hour),
		RemainingMinutes: intPtr(7),
	}

	for i := 0; i < 5; i++ {
		clock = clock.Add(3 * time.Minute)
		out, err := service.MeterHeartbeat(presence, sub, clock)

		if *sub.RemainingMinutes < 0 {
			t.Fatalf("remaining minutes went negative: %d", *sub.RemainingMinutes)
		}
		if *sub.RemainingMinutes == 0 && out.ForcedOffline {
			// The exhausting ping and the offline flip are one snapshot.
			if presence.Status != domain.PresenceStatusOffline {
				t.Fatal("exhaustion and forced offline must land together")
			}
			// A later ping from the now-offline driver is gated, not billed.
			clock = clock.Add(3 * time.Minute)
			if _, err := service.MeterHeartbeat(presence, sub, clock); !errors.Is(err, service.ErrInsufficientAllowance) {
				t.Errorf("expected ErrInsufficientAllowance after exhaustion, got %v", err)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error on ping %d: %v", i, err)
		}
	}
	t.Fatal("allowance of 7 minutes never exhausted over 15 billed minutes")
}

func TestMeterHeartbeat_UnlimitedPlanAccruesHoursOnly(t *testing.T) {
	t.Parallel()

	now := time.Now()
	presence := &domain.DriverPresence{
		DriverID:   "driver-1",
		Status:     domain.PresenceStatusOnline,
		LastPingAt: now.Add(-30 * time.Minute),
	}
	sub := &domain.DriverSubscription{
		Status: domain.SubscriptionStatusActive,
		Expire: now.Add(24 * time.Hour),
	}

	out, err := service.MeterHeartbeat(presence, sub, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SubscriptionBilled || out.ForcedOffline {
		t.Errorf("unlimited plan must not bill, got billed=%v forced=%v", out.SubscriptionBilled, out.ForcedOffline)
	}
	if !almostEqual(presence.TotalOnlineHours, 0.5) {
		t.Errorf("expected 0.5 online hours, got %f", presence.TotalOnlineHours)
	}
}

func TestMeterHeartbeat_OfflineDriverPassesAllowanceGate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	offline := func() *domain.DriverPresence {
		return &domain.DriverPresence{
			DriverID:   "driver-1",
			Status:     domain.PresenceStatusOffline,
			LastPingAt: now.Add(-10 * time.Minute),
		}
	}

	if _, err := service.MeterHeartbeat(offline(), nil, now); !errors.Is(err, service.ErrNoActiveSubscription) {
		t.Errorf("expected ErrNoActiveSubscription without a subscription, got %v", err)
	}

	exhausted := &domain.DriverSubscription{
		Status:           domain.SubscriptionStatusActive,
		Expire:           now.Add(24 * time.Hour),
		RemainingMinutes: intPtr(0),
	}
	if _, err := service.MeterHeartbeat(offline(), exhausted, now); !errors.Is(err, service.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance on exhausted plan, got %v", err)
	}

	usable := &domain.DriverSubscription{
		Status:           domain.SubscriptionStatusActive,
		Expire:           now.Add(24 * time.Hour),
		RemainingMinutes: intPtr(60),
	}
	presence := offline()
	out, err := service.MeterHeartbeat(presence, usable, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if presence.Status != domain.PresenceStatusOnline {
		t.Errorf("expected the gated driver back ONLINE, got %s", presence.Status)
	}
	// Offline time is not billable.
	if out.DeltaMinutes != 0 || *usable.RemainingMinutes != 60 {
		t.Errorf("re-onlining must not bill, got delta=%d remaining=%d", out.DeltaMinutes, *usable.RemainingMinutes)
	}
}

// ──────────────────────────────────────────────
// 9. SUBSCRIPTION ALLOWANCE SEMANTICS
// ──────────────────────────────────────────────

func TestSubscription_Usable(t *testing.T) {
	t.Parallel()

	now := time.Now()

	testCases := []struct {
		name string
		sub  domain.DriverSubscription
		want bool
	}{
		{
			name: "active with minutes",
			sub:  domain.DriverSubscription{Status: domain.SubscriptionStatusActive, Expire: now.Add(time.Hour), RemainingMinutes: intPtr(10)},
			want: true,
		},
		{
			name: "active unlimited",
			sub:  domain.DriverSubscription{Status: domain.SubscriptionStatusActive, Expire: now.Add(time.Hour)},
			want: true,
		},
		{
			name: "zero minutes",
			sub:  domain.DriverSubscription{Status: domain.SubscriptionStatusActive, Expire: now.Add(time.Hour), RemainingMinutes: intPtr(0)},
			want: false,
		},
		{
			name: "expired status",
			sub:  domain.DriverSubscription{Status: domain.SubscriptionStatusExpired, Expire: now.Add(time.Hour), RemainingMinutes: intPtr(10)},
			want: false,
		},
		{
			name: "past wall-clock deadline",
			sub:  domain.DriverSubscription{Status: domain.SubscriptionStatusActive, Expire: now.Add(-time.Minute), RemainingMinutes: intPtr(10)},
			want: false,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.sub.Usable(now); got != tc.want {
				t.Errorf("expected usable=%v, got %v", tc.want, got)
			}
		})
	}
}
