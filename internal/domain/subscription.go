package domain

import "time"

// SubscriptionStatus represents the status of a driver subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// DriverSubscription is a prepaid online-time allowance window.
//
// At most one ACTIVE subscription exists per driver; activating a new one
// cancels the previous ACTIVE one. RemainingMinutes, when non-nil, only
// decreases and never below 0; reaching 0 forces Status to EXPIRED and the
// driver's presence to OFFLINE in the same transaction.
type DriverSubscription struct {
	ID       string
	DriverID string
	PlanName string
	Price    float64
	Status   SubscriptionStatus

	StartTime time.Time

	// Expire is the hard wall-clock deadline regardless of remaining minutes.
	Expire time.Time

	// RemainingMinutes is nil for unlimited plans.
	RemainingMinutes *int

	// DailyAllowanceMinutes is an optional per-day cap for metered plans.
	DailyAllowanceMinutes *int

	CreatedAt time.Time
}

// Unlimited reports whether the subscription has no minute allowance cap.
func (s *DriverSubscription) Unlimited() bool {
	return s.RemainingMinutes == nil
}

// Usable reports whether the subscription currently permits going online.
func (s *DriverSubscription) Usable(now time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	if !s.Expire.IsZero() && now.After(s.Expire) {
		return false
	}
	return s.Unlimited() || *s.RemainingMinutes > 0
}
