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
// 9. RIDE LIFECYCLE EDGE CASES
// ──────────────────────────────────────────────

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		WaitingTariff: testTariff(),
		Cancellation:  testCancellationPolicy(),
		Geofence:      config.GeofenceConfig{CompletionRadiusKm: 3.0},
	}
}

func newRideService(rideRepo *MockRideRepository, driverRepo *MockDriverRepository) *service.RideService {
	// The transactional transitions (accept/start/complete/cancel) need a
	// real database; these tests cover the repository-backed operations.
	return service.NewRideService(nil, rideRepo, driverRepo, testPolicy(), service.NewNotificationService(), nil)
}

func TestArrivedAtPickup_RecordsTimestampOnce(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())
	ctx := context.Background()

	ride, err := svc.ArrivedAtPickup(ctx, "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.DriverArrivedAtPickupAt.IsZero() {
		t.Fatal("arrival timestamp was not recorded")
	}
	first := ride.DriverArrivedAtPickupAt

	// A replayed arrival keeps the original timestamp.
	ride, err = svc.ArrivedAtPickup(ctx, "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if !ride.DriverArrivedAtPickupAt.Equal(first) {
		t.Error("replayed arrival must not move the timestamp")
	}
	if rideRepo.UpdateCallCount != 1 {
		t.Errorf("expected exactly one update, got %d", rideRepo.UpdateCallCount)
	}
}

func TestArrivedAtPickup_WrongDriverRejected(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:       "ride-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())

	_, err := svc.ArrivedAtPickup(context.Background(), "ride-1", "driver-2")
	if !errors.Is(err, service.ErrDriverMismatch) {
		t.Errorf("expected ErrDriverMismatch, got %v", err)
	}
}

func TestArrivedAtPickup_TerminalRideRejected(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:       "ride-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusCancelled,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())

	_, err := svc.ArrivedAtPickup(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrRideAlreadyFinished) {
		t.Errorf("expected ErrRideAlreadyFinished, got %v", err)
	}
}

func TestRecordRiderCallAttempt_Idempotent(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:       "ride-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())
	ctx := context.Background()

	ride, err := svc.RecordRiderCallAttempt(ctx, "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.RiderCallAttemptedAt.IsZero() {
		t.Fatal("call attempt was not recorded")
	}
	first := ride.RiderCallAttemptedAt

	ride, err = svc.RecordRiderCallAttempt(ctx, "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if !ride.RiderCallAttemptedAt.Equal(first) {
		t.Error("replayed call attempt must keep the first timestamp")
	}
}

func TestConfirmCashPayment(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:            "ride-1",
		DriverID:      "driver-1",
		Status:        domain.RideStatusCompleted,
		PaymentMethod: domain.PaymentMethodCash,
		PaymentStatus: domain.PaymentStatusPending,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())
	ctx := context.Background()

	ride, err := svc.ConfirmCashPayment(ctx, "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected PAID, got %s", ride.PaymentStatus)
	}

	// Settling twice is harmless.
	if _, err := svc.ConfirmCashPayment(ctx, "ride-1", "driver-1"); err != nil {
		t.Errorf("unexpected error on replay: %v", err)
	}
	if rideRepo.UpdateCallCount != 1 {
		t.Errorf("expected exactly one update, got %d", rideRepo.UpdateCallCount)
	}
}

func TestConfirmCashPayment_RequiresCompletedRide(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:       "ride-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusInProgress,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())

	if _, err := svc.ConfirmCashPayment(context.Background(), "ride-1", "driver-1"); err == nil {
		t.Error("expected error confirming payment on a ride still in progress")
	}
}

func TestRateRide(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:     "ride-1",
		Status: domain.RideStatusCompleted,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())
	ctx := context.Background()

	for _, bad := range []float64{0, 0.5, 5.5, -1} {
		if _, err := svc.RateRide(ctx, "ride-1", bad); !errors.Is(err, service.ErrInvalidAmount) {
			t.Errorf("rating %.1f: expected ErrInvalidAmount, got %v", bad, err)
		}
	}

	ride, err := svc.RateRide(ctx, "ride-1", 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.RiderRating == nil || *ride.RiderRating != 4.5 {
		t.Errorf("expected rating 4.5, got %v", ride.RiderRating)
	}
}

func TestRateRide_OnlyCompletedRides(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(&domain.Ride{
		ID:     "ride-1",
		Status: domain.RideStatusInProgress,
	})
	svc := newRideService(rideRepo, NewMockDriverRepository())

	if _, err := svc.RateRide(context.Background(), "ride-1", 5); err == nil {
		t.Error("expected error rating a ride still in progress")
	}
}

func TestGetRide_NotFound(t *testing.T) {
	t.Parallel()

	svc := newRideService(NewMockRideRepository(), NewMockDriverRepository())

	if _, err := svc.GetRide(context.Background(), "nope"); err == nil {
		t.Error("expected not-found error")
	}
}

// ──────────────────────────────────────────────
// 10. TERMINAL STATE INVARIANTS
// ──────────────────────────────────────────────

func TestRide_Terminal(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status domain.RideStatus
		want   bool
	}{
		{domain.RideStatusPending, false},
		{domain.RideStatusAccepted, false},
		{domain.RideStatusInProgress, false},
		{domain.RideStatusCompleted, true},
		{domain.RideStatusCancelled, true},
	}

	for _, tc := range testCases {
		ride := domain.Ride{Status: tc.status}
		if got := ride.Terminal(); got != tc.want {
			t.Errorf("status %s: expected terminal=%v, got %v", tc.status, tc.want, got)
		}
	}
}

// ──────────────────────────────────────────────
// 11. OTP-GATED START
// ──────────────────────────────────────────────

func acceptedRide() *domain.Ride {
	return &domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
		RideOTP:  "4217",
	}
}

func TestStartTransition_OTPSingleUse(t *testing.T) {
	t.Parallel()

	ride := acceptedRide()
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	if err := service.StartTransition(ride, "driver-1", "4217", now, testTariff()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", ride.Status)
	}
	if ride.RideOTP != "" {
		t.Error("the start code must be cleared on use")
	}
	if !ride.StartTime.Equal(now) {
		t.Error("start time was not recorded")
	}

	// A client that remembered the code cannot start the ride twice.
	err := service.StartTransition(ride, "driver-1", "4217", now.Add(time.Minute), testTariff())
	if !errors.Is(err, service.ErrRideNotAccepted) {
		t.Errorf("expected ErrRideNotAccepted on replay, got %v", err)
	}
	if ride.Status != domain.RideStatusInProgress {
		t.Errorf("replay must leave the ride untouched, got %s", ride.Status)
	}
}

func TestStartTransition_Gate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	testCases := []struct {
		name    string
		mutate  func(*domain.Ride)
		driver  string
		otp     string
		wantErr error
	}{
		{
			name:    "wrong driver",
			mutate:  func(*domain.Ride) {},
			driver:  "driver-2",
			otp:     "4217",
			wantErr: service.ErrDriverMismatch,
		},
		{
			name:    "wrong code",
			mutate:  func(*domain.Ride) {},
			driver:  "driver-1",
			otp:     "0000",
			wantErr: service.ErrInvalidOTP,
		},
		{
			name:    "no code issued",
			mutate:  func(r *domain.Ride) { r.RideOTP = "" },
			driver:  "driver-1",
			otp:     "4217",
			wantErr: service.ErrOTPNotIssued,
		},
		{
			name:    "already finished",
			mutate:  func(r *domain.Ride) { r.Status = domain.RideStatusCompleted },
			driver:  "driver-1",
			otp:     "4217",
			wantErr: service.ErrRideAlreadyFinished,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ride := acceptedRide()
			tc.mutate(ride)
			before := *ride

			err := service.StartTransition(ride, tc.driver, tc.otp, now, testTariff())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if *ride != before {
				t.Error("a failed gate must leave the ride unchanged")
			}
		})
	}
}

func TestStartTransition_BillsWaiting(t *testing.T) {
	t.Parallel()

	arrived := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	started := arrived.Add(8 * time.Minute)

	ride := acceptedRide()
	ride.DriverArrivedAtPickupAt = arrived

	if err := service.StartTransition(ride, "driver-1", "4217", started, testTariff()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ride.WaitingRecorded {
		t.Fatal("expected the waiting computation on the ride row")
	}
	if ride.WaitingMinutes != 8 {
		t.Errorf("expected 8 waiting minutes, got %d", ride.WaitingMinutes)
	}
	if !almostEqual(ride.WaitingCharges, 5.0) {
		t.Errorf("expected charge 5.0 (minutes 4..8 at day rate), got %.2f", ride.WaitingCharges)
	}

	// A ride whose driver never marked arrival records no waiting at all.
	bare := acceptedRide()
	if err := service.StartTransition(bare, "driver-1", "4217", started, testTariff()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bare.WaitingRecorded {
		t.Error("waiting must stay unrecorded without an arrival timestamp")
	}
}
