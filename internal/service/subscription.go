package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"ridecore/internal/config"
	"ridecore/internal/domain"
	"ridecore/internal/redis"
	"ridecore/internal/repository"
	"ridecore/internal/repository/postgres"
)

// SubscriptionService manages the prepaid online-time allowance windows.
type SubscriptionService struct {
	db               *sql.DB
	subscriptionRepo repository.SubscriptionRepository
	cacheStore       *redis.CacheStore
	cfg              config.SubscriptionConfig
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(
	db *sql.DB,
	subscriptionRepo repository.SubscriptionRepository,
	cacheStore *redis.CacheStore,
	cfg config.SubscriptionConfig,
) *SubscriptionService {
	return &SubscriptionService{
		db:               db,
		subscriptionRepo: subscriptionRepo,
		cacheStore:       cacheStore,
		cfg:              cfg,
	}
}

// SubscriptionStatusView is the reconciled view of a driver's latest
// subscription: whether it is still usable and, after expiry, how much of
// the grace period remains. Reconciliation reports, it never bills.
type SubscriptionStatusView struct {
	Subscription *domain.DriverSubscription

	Expired             bool
	InGracePeriod       bool
	GraceHoursRemaining int
}

// GetCurrentSubscription returns the driver's latest subscription together
// with its grace-period standing.
func (s *SubscriptionService) GetCurrentSubscription(ctx context.Context, driverID string) (*SubscriptionStatusView, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	sub, err := s.subscriptionRepo.GetLatestByDriverID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}

	view := &SubscriptionStatusView{Subscription: sub}

	now := time.Now()
	expiredAt := expiryInstant(sub, now)
	if expiredAt.IsZero() {
		return view, nil
	}

	view.Expired = true
	graceEnds := expiredAt.Add(time.Duration(s.cfg.GraceHours) * time.Hour)
	if now.Before(graceEnds) {
		view.InGracePeriod = true
		view.GraceHoursRemaining = int(graceEnds.Sub(now).Hours())
	}

	return view, nil
}

// expiryInstant returns when the subscription stopped being usable, or the
// zero time when it still is.
func expiryInstant(sub *domain.DriverSubscription, now time.Time) time.Time {
	switch sub.Status {
	case domain.SubscriptionStatusExpired, domain.SubscriptionStatusCancelled:
		// Minute exhaustion clamps Expire to the exhaustion instant, so a
		// past deadline is the real stop marker in both expiry modes.
		if !sub.Expire.IsZero() && sub.Expire.Before(now) {
			return sub.Expire
		}
		return now
	case domain.SubscriptionStatusActive:
		if !sub.Expire.IsZero() && sub.Expire.Before(now) {
			return sub.Expire
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// ActivateSubscriptionRequest contains the parameters for activating a
// subscription. Payment verification happens upstream; PaymentRef is the
// verified proof carried onto the ledger entry.
type ActivateSubscriptionRequest struct {
	DriverID string
	PlanName string
	Price    float64
	Duration time.Duration

	// RemainingMinutes is nil for unlimited plans.
	RemainingMinutes      *int
	DailyAllowanceMinutes *int

	// ReferrerID, when set, receives the referral bonus in the same
	// transaction.
	ReferrerID string

	PaymentRef string
}

// ActivateSubscription activates a new allowance window in one atomic unit:
// the previous ACTIVE subscription is cancelled, outstanding wallet debt is
// recovered, the plan price is debited, the referral bonus is credited and
// the new subscription row is created. Either all of it lands or none of it.
func (s *SubscriptionService) ActivateSubscription(ctx context.Context, req ActivateSubscriptionRequest) (*domain.DriverSubscription, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.Price < 0 {
		return nil, ErrInvalidAmount
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

	txSubscriptionRepo := postgres.NewSubscriptionRepositoryWithTx(tx)
	txWalletRepo := postgres.NewWalletRepositoryWithTx(tx)

	// At most one ACTIVE subscription per driver: activating a new one
	// cancels the previous one.
	var prev *domain.DriverSubscription
	prev, err = txSubscriptionRepo.GetActiveByDriverIDForUpdate(ctx, req.DriverID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		err = nil
	} else {
		prev.Status = domain.SubscriptionStatusCancelled
		now := time.Now()
		if prev.Expire.IsZero() || prev.Expire.After(now) {
			prev.Expire = now
		}
		if err = txSubscriptionRepo.Update(ctx, prev); err != nil {
			return nil, err
		}
	}

	// Debt is paid off before new spend: a negative balance is credited
	// back in full ahead of the price debit, so the ledger shows the
	// recovery explicitly.
	var wallet *domain.Wallet
	wallet, err = lockOrCreateWallet(ctx, txWalletRepo, req.DriverID, domain.WalletOwnerDriver)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < 0 {
		if _, err = ApplyCredit(ctx, txWalletRepo, req.DriverID, domain.WalletOwnerDriver,
			-wallet.Balance, "negative balance recovery", "subscription", req.PaymentRef); err != nil {
			return nil, err
		}
	}

	if _, err = ApplyDebit(ctx, txWalletRepo, req.DriverID, domain.WalletOwnerDriver,
		req.Price, "subscription purchase", "subscription", req.PaymentRef); err != nil {
		return nil, err
	}

	if req.ReferrerID != "" && s.cfg.ReferralBonus > 0 {
		if _, err = ApplyCredit(ctx, txWalletRepo, req.ReferrerID, domain.WalletOwnerDriver,
			s.cfg.ReferralBonus, "referral bonus", "subscription", req.PaymentRef); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	sub := &domain.DriverSubscription{
		ID:                    uuid.New().String(),
		DriverID:              req.DriverID,
		PlanName:              req.PlanName,
		Price:                 req.Price,
		Status:                domain.SubscriptionStatusActive,
		StartTime:             now,
		RemainingMinutes:      req.RemainingMinutes,
		DailyAllowanceMinutes: req.DailyAllowanceMinutes,
		CreatedAt:             now,
	}
	if req.Duration > 0 {
		sub.Expire = now.Add(req.Duration)
	}

	if err = txSubscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateSubscription(ctx, req.DriverID)
	}

	return sub, nil
}
