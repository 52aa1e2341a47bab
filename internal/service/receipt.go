package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ridecore/internal/domain"
)

// Receipt is the fare breakdown assembled for a completed ride. It is a
// projection of the ride row, not separately persisted.
type Receipt struct {
	ID       string
	RideID   string
	DriverID string
	RiderID  string

	BaseFare        float64
	SurgeMultiplier float64
	SurgeAmount     float64
	WaitingMinutes  int
	WaitingCharges  float64
	TotalFare       float64

	PaymentMethod domain.PaymentMethod
	PaymentStatus domain.PaymentStatus

	DistanceKm float64
	Duration   time.Duration
	StartedAt  time.Time
	EndedAt    time.Time
	CreatedAt  time.Time
}

// ReceiptService builds receipts for completed rides.
type ReceiptService struct {
	notificationService *NotificationService
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(notificationService *NotificationService) *ReceiptService {
	return &ReceiptService{notificationService: notificationService}
}

// BuildReceipt assembles the receipt for a completed ride and notifies the
// rider that it is ready.
func (s *ReceiptService) BuildReceipt(ctx context.Context, ride *domain.Ride) *Receipt {
	surge := ride.SurgeMultiplier
	if surge < 1.0 {
		surge = 1.0
	}

	baseFare := ride.BaseFare
	if baseFare == 0 {
		baseFare = ride.EstimatedFare
	}

	receipt := &Receipt{
		ID:              uuid.New().String(),
		RideID:          ride.ID,
		DriverID:        ride.DriverID,
		RiderID:         ride.RiderID,
		BaseFare:        baseFare,
		SurgeMultiplier: surge,
		SurgeAmount:     baseFare * (surge - 1.0),
		WaitingMinutes:  ride.WaitingMinutes,
		WaitingCharges:  ride.WaitingCharges,
		TotalFare:       ride.ActualFare,
		PaymentMethod:   ride.PaymentMethod,
		PaymentStatus:   ride.PaymentStatus,
		DistanceKm:      ride.ActualDistanceKm,
		Duration:        ride.ActualDuration,
		StartedAt:       ride.StartTime,
		EndedAt:         ride.EndTime,
		CreatedAt:       time.Now(),
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyReceiptReady(ctx, receipt)
	}

	return receipt
}
