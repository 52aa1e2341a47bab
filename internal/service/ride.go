package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"ridecore/internal/config"
	"ridecore/internal/domain"
	"ridecore/internal/repository"
	"ridecore/internal/repository/postgres"
)

// RideService drives a ride through its lifecycle:
//
//	PENDING -> accept -> ACCEPTED -> start (OTP) -> IN_PROGRESS -> complete (geofence) -> COMPLETED
//	ACCEPTED/IN_PROGRESS -> cancel -> CANCELLED
//
// Every transition validates its preconditions before mutating anything and
// applies all of its writes (ride row, ledger entries, audit rows, presence
// flag) in one database transaction.
type RideService struct {
	db                  *sql.DB
	rideRepo            repository.RideRepository
	driverRepo          repository.DriverRepository
	policy              config.PolicyConfig
	notificationService *NotificationService
	receiptService      *ReceiptService
}

// NewRideService creates a new RideService.
func NewRideService(
	db *sql.DB,
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	policy config.PolicyConfig,
	notificationService *NotificationService,
	receiptService *ReceiptService,
) *RideService {
	return &RideService{
		db:                  db,
		rideRepo:            rideRepo,
		driverRepo:          driverRepo,
		policy:              policy,
		notificationService: notificationService,
		receiptService:      receiptService,
	}
}

// AcceptRideRequest contains the parameters for accepting a ride.
type AcceptRideRequest struct {
	RideID   string
	DriverID string

	// Driver position at accept time, kept for the cancellation policy's
	// distance checks.
	DriverLat float64
	DriverLng float64
}

// AcceptRide assigns the driver to a pending ride and issues a fresh
// 4-digit start code.
func (s *RideService) AcceptRide(ctx context.Context, req AcceptRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
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

	txRideRepo := postgres.NewRideRepositoryWithTx(tx)

	var ride *domain.Ride
	ride, err = txRideRepo.GetByIDForUpdate(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if ride.DriverID != "" && ride.DriverID != req.DriverID {
		err = ErrRideAlreadyClaimed
		return nil, err
	}
	if ride.Status != domain.RideStatusPending {
		err = ErrRideNotPending
		return nil, err
	}

	// Vehicle lookup from the driver registry; the vehicle is frozen on
	// the ride at accept time.
	driver, derr := s.driverRepo.GetByID(ctx, req.DriverID)
	if derr != nil {
		err = derr
		return nil, err
	}

	now := time.Now()
	ride.DriverID = req.DriverID
	ride.VehicleID = driver.VehicleID
	ride.RideOTP = generateOTP()
	ride.Status = domain.RideStatusAccepted
	ride.AcceptedAt = now
	ride.DriverAcceptLat = req.DriverLat
	ride.DriverAcceptLng = req.DriverLng

	if err = txRideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideAccepted(ctx, ride)
	}

	return ride, nil
}

// ArrivedAtPickup records the driver's arrival at the pickup point. It is
// idempotent: if an arrival is already recorded the existing timestamp is
// returned without mutation.
func (s *RideService) ArrivedAtPickup(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if !ride.DriverArrivedAtPickupAt.IsZero() {
		return ride, nil
	}

	if ride.Status != domain.RideStatusPending && ride.Status != domain.RideStatusAccepted {
		if ride.Terminal() {
			return nil, ErrRideAlreadyFinished
		}
		return nil, ErrRideNotAccepted
	}
	if ride.DriverID != driverID {
		return nil, ErrDriverMismatch
	}

	ride.DriverArrivedAtPickupAt = time.Now()
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyDriverArrived(ctx, ride)
	}

	return ride, nil
}

// RecordRiderCallAttempt records that the driver tried to reach the rider.
// The timestamp is the evidence the cancellation policy requires for a
// no-show claim.
func (s *RideService) RecordRiderCallAttempt(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if ride.Terminal() {
		return nil, ErrRideAlreadyFinished
	}
	if ride.DriverID != driverID {
		return nil, ErrDriverMismatch
	}

	if !ride.RiderCallAttemptedAt.IsZero() {
		return ride, nil
	}

	ride.RiderCallAttemptedAt = time.Now()
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	return ride, nil
}

// StartRideRequest contains the parameters for starting a ride.
type StartRideRequest struct {
	RideID   string
	DriverID string
	OTP      string
}

// StartTransition applies the OTP-gated start to a ride: it verifies the
// status, driver and start code, bills the waiting time per the tariff and
// moves the ride to IN_PROGRESS with the code cleared. The code is
// single-use: once cleared, a replayed start fails on status, not on the
// code. Pure; the caller persists the mutated ride.
func StartTransition(ride *domain.Ride, driverID, otp string, now time.Time, tariff config.WaitingTariff) error {
	if ride.Status != domain.RideStatusPending && ride.Status != domain.RideStatusAccepted {
		if ride.Terminal() {
			return ErrRideAlreadyFinished
		}
		return ErrRideNotAccepted
	}
	if ride.DriverID != driverID {
		return ErrDriverMismatch
	}
	if ride.RideOTP == "" {
		return ErrOTPNotIssued
	}
	if ride.RideOTP != otp {
		return ErrInvalidOTP
	}

	if waiting := Waiting(ride.DriverArrivedAtPickupAt, now, tariff); waiting != nil {
		ride.WaitingRecorded = true
		ride.WaitingMinutes = waiting.Minutes
		ride.WaitingCharges = waiting.Charge
	}

	ride.RideOTP = ""
	ride.Status = domain.RideStatusInProgress
	ride.StartTime = now

	return nil
}

// StartRide verifies the start code, bills the waiting time and moves the
// ride to IN_PROGRESS.
func (s *RideService) StartRide(ctx context.Context, req StartRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
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

	txRideRepo := postgres.NewRideRepositoryWithTx(tx)
	txPresenceRepo := postgres.NewPresenceRepositoryWithTx(tx)

	var ride *domain.Ride
	ride, err = txRideRepo.GetByIDForUpdate(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if err = StartTransition(ride, req.DriverID, req.OTP, time.Now(), s.policy.WaitingTariff); err != nil {
		return nil, err
	}

	if err = txRideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	if err = txPresenceRepo.SetOnTrip(ctx, req.DriverID, true); err != nil {
		// A driver who never sent a heartbeat has no presence row yet;
		// the trip flag has nothing to mark in that case.
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		err = nil
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideStarted(ctx, ride)
	}

	return ride, nil
}

// CompleteRideRequest contains the parameters for completing a ride.
type CompleteRideRequest struct {
	RideID   string
	DriverID string

	// Completion point, checked against the drop geofence.
	CompletionLat float64
	CompletionLng float64

	// Actuals reported by the driver client; zero values are derived.
	ActualDistanceKm float64
	ActualDuration   time.Duration
}

// CompleteRideResponse contains the result of completing a ride.
type CompleteRideResponse struct {
	Ride    *domain.Ride
	Receipt *Receipt
}

// CompleteRide gates completion on the drop geofence, settles the fare and
// moves the ride to COMPLETED.
func (s *RideService) CompleteRide(ctx context.Context, req CompleteRideRequest) (*CompleteRideResponse, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !isValidLatitude(req.CompletionLat) || !isValidLongitude(req.CompletionLng) {
		return nil, ErrInvalidLocation
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

	txRideRepo := postgres.NewRideRepositoryWithTx(tx)
	txPresenceRepo := postgres.NewPresenceRepositoryWithTx(tx)

	var ride *domain.Ride
	ride, err = txRideRepo.GetByIDForUpdate(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if ride.Status != domain.RideStatusInProgress {
		if ride.Terminal() {
			err = ErrRideAlreadyFinished
		} else {
			err = ErrRideNotInProgress
		}
		return nil, err
	}
	if ride.DriverID != req.DriverID {
		err = ErrDriverMismatch
		return nil, err
	}

	// Geofence gate: the completion point must be within the configured
	// radius of the drop point, falling back to the last recorded waypoint
	// when the ride has no drop coordinates.
	targetLat, targetLng := ride.DropLat, ride.DropLng
	if !ride.HasDropPoint() {
		targetLat, targetLng = ride.LastWaypointLat, ride.LastWaypointLng
	}
	if HaversineKm(req.CompletionLat, req.CompletionLng, targetLat, targetLng) > s.policy.Geofence.CompletionRadiusKm {
		err = ErrGeofenceViolation
		return nil, err
	}

	now := time.Now()
	ride.Status = domain.RideStatusCompleted
	ride.EndTime = now

	ride.ActualDuration = req.ActualDuration
	if ride.ActualDuration == 0 && !ride.StartTime.IsZero() {
		ride.ActualDuration = now.Sub(ride.StartTime)
	}
	if req.ActualDistanceKm > 0 {
		ride.ActualDistanceKm = req.ActualDistanceKm
	}

	baseFare := ride.BaseFare
	if baseFare == 0 {
		baseFare = ride.EstimatedFare
	}
	ride.ActualFare = FinalFare(baseFare, ride.SurgeMultiplier, ride.WaitingCharges)

	if ride.PaymentMethod == domain.PaymentMethodCash {
		ride.PaymentStatus = domain.PaymentStatusPending
	} else {
		ride.PaymentStatus = domain.PaymentStatusPaid
	}

	if err = txRideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	if err = txPresenceRepo.SetOnTrip(ctx, req.DriverID, false); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		err = nil
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideCompleted(ctx, ride)
	}

	var receipt *Receipt
	if s.receiptService != nil {
		receipt = s.receiptService.BuildReceipt(ctx, ride)
	}

	return &CompleteRideResponse{Ride: ride, Receipt: receipt}, nil
}

// CancelRideRequest contains the parameters for a driver-initiated
// cancellation.
type CancelRideRequest struct {
	RideID             string
	DriverID           string
	Reason             string
	ReasonType         domain.CancellationReasonType
	RiderCallAttempted bool
	DriverLat          float64
	DriverLng          float64
	HasDriverPosition  bool
}

// CancelRide cancels a non-terminal ride. The policy decision, the ride
// mutation, the rider debit, the driver compensation credit and the strike
// audit row all commit in one transaction or not at all.
func (s *RideService) CancelRide(ctx context.Context, req CancelRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
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

	txRideRepo := postgres.NewRideRepositoryWithTx(tx)
	txWalletRepo := postgres.NewWalletRepositoryWithTx(tx)
	txCancellationRepo := postgres.NewCancellationRepositoryWithTx(tx)
	txPresenceRepo := postgres.NewPresenceRepositoryWithTx(tx)

	var ride *domain.Ride
	ride, err = txRideRepo.GetByIDForUpdate(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if ride.Terminal() {
		err = ErrRideAlreadyFinished
		return nil, err
	}
	if ride.DriverID != req.DriverID {
		err = ErrDriverMismatch
		return nil, err
	}

	now := time.Now()

	if req.RiderCallAttempted && ride.RiderCallAttemptedAt.IsZero() {
		ride.RiderCallAttemptedAt = now
	}

	var validReasonCount int
	validReasonCount, err = txCancellationRepo.CountValidReasonSince(ctx, req.DriverID, now.Add(-s.policy.Cancellation.ValidReasonWindow))
	if err != nil {
		return nil, err
	}

	outcome := DecideCancellation(CancellationFacts{
		AcceptedAt:        ride.AcceptedAt,
		CancelledAt:       now,
		PickupLat:         ride.PickupLat,
		PickupLng:         ride.PickupLng,
		DriverAcceptLat:   ride.DriverAcceptLat,
		DriverAcceptLng:   ride.DriverAcceptLng,
		DriverLat:         req.DriverLat,
		DriverLng:         req.DriverLng,
		HasDriverPosition: req.HasDriverPosition,
		CallAttempted:     !ride.RiderCallAttemptedAt.IsZero(),
		ReasonType:        req.ReasonType,
		ValidReasonCount:  validReasonCount,
	}, s.policy.Cancellation)

	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = now
	ride.RideOTP = ""
	ride.CancellationReason = req.Reason
	ride.CancellationFee = outcome.RiderChargedAmount
	ride.DriverStrikeType = string(outcome.DriverStrikeType)
	ride.DriverCompensationAmount = outcome.DriverCompensationAmount
	ride.DriverCancellationReasonType = string(outcome.DriverReasonType)

	if err = txRideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	if outcome.RiderChargedAmount > 0 {
		if _, err = ApplyDebit(ctx, txWalletRepo, ride.RiderID, domain.WalletOwnerRider,
			outcome.RiderChargedAmount, "cancellation fee", "ride", ride.ID); err != nil {
			return nil, err
		}
	}
	if outcome.DriverCompensationAmount > 0 {
		if _, err = ApplyCredit(ctx, txWalletRepo, ride.DriverID, domain.WalletOwnerDriver,
			outcome.DriverCompensationAmount, "cancellation compensation", "ride", ride.ID); err != nil {
			return nil, err
		}
	}

	if outcome.Category == domain.CancellationValidReason || outcome.DriverStrikeType != domain.StrikeNone {
		if err = txCancellationRepo.Create(ctx, newCancellationRecord(ride, outcome, now)); err != nil {
			return nil, err
		}
	}

	if err = txPresenceRepo.SetOnTrip(ctx, req.DriverID, false); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		err = nil
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	// Delivery failures never roll back the committed cancellation.
	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideCancelled(ctx, ride, outcome.Message)
	}

	return ride, nil
}

// ConfirmCashPayment records settlement of a cash fare on a completed ride.
// This is the only mutation permitted after a ride reaches a terminal state.
func (s *RideService) ConfirmCashPayment(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if ride.Status != domain.RideStatusCompleted {
		return nil, ErrRideNotInProgress
	}
	if ride.DriverID != driverID {
		return nil, ErrDriverMismatch
	}

	if ride.PaymentStatus == domain.PaymentStatusPaid {
		return ride, nil
	}

	ride.PaymentStatus = domain.PaymentStatusPaid
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	return ride, nil
}

// RateRide attaches the rider's rating to a completed ride.
func (s *RideService) RateRide(ctx context.Context, rideID string, rating float64) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidAmount
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if ride.Status != domain.RideStatusCompleted {
		return nil, ErrRideNotInProgress
	}

	ride.RiderRating = &rating
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	return ride, nil
}

// GetRide retrieves a ride by ID.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	return s.rideRepo.GetByID(ctx, rideID)
}

func newCancellationRecord(ride *domain.Ride, outcome domain.CancellationOutcome, now time.Time) *domain.CancellationRecord {
	return &domain.CancellationRecord{
		ID:         uuid.New().String(),
		DriverID:   ride.DriverID,
		RideID:     ride.ID,
		Category:   outcome.Category,
		StrikeType: outcome.DriverStrikeType,
		ReasonType: outcome.DriverReasonType,
		CreatedAt:  now,
	}
}

// generateOTP returns a fresh 4-digit start code.
func generateOTP() string {
	return fmt.Sprintf("%04d", rand.Intn(10000))
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
