package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending    RideStatus = "PENDING"
	RideStatusAccepted   RideStatus = "ACCEPTED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCancelled  RideStatus = "CANCELLED"
)

// PaymentMethod represents the payment method for a ride.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
	PaymentMethodUPI    PaymentMethod = "UPI"
)

// PaymentStatus represents the settlement status of a ride's fare.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Ride represents one ride between a rider and a driver.
//
// Invariants: RideOTP is non-empty iff Status is ACCEPTED; StartTime is set
// iff Status is IN_PROGRESS or COMPLETED; a ride only moves forward and is
// never mutated after COMPLETED/CANCELLED except to record a late cash
// payment confirmation.
type Ride struct {
	ID       string
	RiderID  string
	DriverID string

	// VehicleID is the driver's vehicle captured at accept time.
	VehicleID string

	PickupLat     float64
	PickupLng     float64
	PickupAddress string
	DropLat       float64
	DropLng       float64
	DropAddress   string

	Status RideStatus

	// RideOTP is the 4-digit start code, present only between accept and start.
	RideOTP string

	AcceptedAt              time.Time
	DriverArrivedAtPickupAt time.Time
	RiderCallAttemptedAt    time.Time
	StartTime               time.Time
	EndTime                 time.Time
	CancelledAt             time.Time

	EstimatedFare   float64
	ActualFare      float64
	BaseFare        float64
	SurgeMultiplier float64

	// WaitingRecorded distinguishes "no wait recorded" (no arrival
	// timestamp) from a genuine zero-minute wait.
	WaitingRecorded bool
	WaitingMinutes  int
	WaitingCharges  float64

	CancellationReason           string
	CancellationFee              float64
	DriverStrikeType             string
	DriverCompensationAmount     float64
	DriverCancellationReasonType string

	// Driver position captured at accept time, used by the cancellation
	// policy's distance checks.
	DriverAcceptLat float64
	DriverAcceptLng float64

	// Last known in-trip waypoint; geofence fallback when drop
	// coordinates are absent.
	LastWaypointLat float64
	LastWaypointLng float64

	ActualDistanceKm float64
	ActualDuration   time.Duration

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus

	// RiderRating is an optional post-ride rating (nil when never rated).
	RiderRating *float64

	CreatedAt time.Time
}

// Terminal reports whether the ride has reached a terminal state.
func (r *Ride) Terminal() bool {
	return r.Status == RideStatusCompleted || r.Status == RideStatusCancelled
}

// HasDropPoint reports whether the ride has usable drop coordinates.
func (r *Ride) HasDropPoint() bool {
	return r.DropLat != 0 || r.DropLng != 0
}
