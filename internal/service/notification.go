package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"ridecore/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideAccepted        NotificationType = "RIDE_ACCEPTED"
	NotificationDriverArrived       NotificationType = "DRIVER_ARRIVED"
	NotificationRideStarted         NotificationType = "RIDE_STARTED"
	NotificationRideCompleted       NotificationType = "RIDE_COMPLETED"
	NotificationRideCancelled       NotificationType = "RIDE_CANCELLED"
	NotificationForcedOffline       NotificationType = "FORCED_OFFLINE"
	NotificationSubscriptionExpired NotificationType = "SUBSCRIPTION_EXPIRED"
	NotificationReceiptReady        NotificationType = "RECEIPT_READY"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService dispatches notifications to riders and drivers.
// Delivery is fire-and-forget: a failure here never rolls back the
// transition that triggered it.
type NotificationService struct {
	// In a real deployment this would hold push/SMS/email clients; the
	// delivery transport lives outside this service.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyRideAccepted tells the rider a driver took the ride.
func (s *NotificationService) NotifyRideAccepted(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideAccepted,
		RecipientID: ride.RiderID,
		Title:       "Driver Assigned",
		Message:     "Your driver is on the way. Share the start code when they arrive.",
		Data: map[string]interface{}{
			"ride_id":   ride.ID,
			"driver_id": ride.DriverID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyDriverArrived tells the rider the driver reached the pickup point.
func (s *NotificationService) NotifyDriverArrived(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationDriverArrived,
		RecipientID: ride.RiderID,
		Title:       "Driver Arrived",
		Message:     "Your driver is waiting at the pickup point.",
		Data: map[string]interface{}{
			"ride_id": ride.ID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRideStarted tells the rider the trip began.
func (s *NotificationService) NotifyRideStarted(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideStarted,
		RecipientID: ride.RiderID,
		Title:       "Ride Started",
		Message:     "Your ride is in progress.",
		Data: map[string]interface{}{
			"ride_id":         ride.ID,
			"waiting_minutes": ride.WaitingMinutes,
			"waiting_charges": ride.WaitingCharges,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRideCompleted tells the rider the trip ended and what it cost.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideCompleted,
		RecipientID: ride.RiderID,
		Title:       "Ride Completed",
		Message:     fmt.Sprintf("Your ride is complete. Fare: %.2f", ride.ActualFare),
		Data: map[string]interface{}{
			"ride_id":        ride.ID,
			"actual_fare":    ride.ActualFare,
			"payment_status": string(ride.PaymentStatus),
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRideCancelled tells the rider the ride was cancelled.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride, message string) error {
	return s.send(ctx, Notification{
		Type:        NotificationRideCancelled,
		RecipientID: ride.RiderID,
		Title:       "Ride Cancelled",
		Message:     message,
		Data: map[string]interface{}{
			"ride_id":          ride.ID,
			"cancellation_fee": ride.CancellationFee,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyForcedOffline tells the driver their allowance ran out.
func (s *NotificationService) NotifyForcedOffline(ctx context.Context, driverID string) error {
	return s.send(ctx, Notification{
		Type:        NotificationForcedOffline,
		RecipientID: driverID,
		Title:       "You Are Offline",
		Message:     "Your subscription minutes are exhausted. Renew to go back online.",
		CreatedAt:   time.Now(),
	})
}

// NotifyReceiptReady tells the rider their receipt is available.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, receipt *Receipt) error {
	return s.send(ctx, Notification{
		Type:        NotificationReceiptReady,
		RecipientID: receipt.RiderID,
		Title:       "Receipt Ready",
		Message:     fmt.Sprintf("Receipt for your ride: total %.2f", receipt.TotalFare),
		Data: map[string]interface{}{
			"ride_id": receipt.RideID,
		},
		CreatedAt: time.Now(),
	})
}

// send delivers a notification. The stand-in logs; real transports plug in
// behind the same call.
func (s *NotificationService) send(ctx context.Context, n Notification) error {
	log.Printf("[notification] type=%s recipient=%s title=%q message=%q",
		n.Type, n.RecipientID, n.Title, n.Message)
	return nil
}
