package service

import "errors"

// Sentinel errors returned by the core services. Handlers map these to
// their external representation; the core never partially applies a
// mutation after returning one.
var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidAmount is returned when a money amount is negative.
	ErrInvalidAmount = errors.New("invalid amount")

	// InvalidState: the ride or subscription is in the wrong status for
	// the requested transition.

	// ErrRideNotPending is returned when accepting a ride that is not pending.
	ErrRideNotPending = errors.New("ride is not pending")

	// ErrRideNotAccepted is returned when starting a ride that is not accepted.
	ErrRideNotAccepted = errors.New("ride is not accepted")

	// ErrRideNotInProgress is returned when completing a ride that is not in progress.
	ErrRideNotInProgress = errors.New("ride is not in progress")

	// ErrRideAlreadyFinished is returned when acting on a completed or
	// cancelled ride.
	ErrRideAlreadyFinished = errors.New("ride already completed or cancelled")

	// Unauthorized / Conflict: identity mismatch or resource already claimed.

	// ErrDriverMismatch is returned when the caller is not the ride's driver.
	ErrDriverMismatch = errors.New("driver not assigned to this ride")

	// ErrRideAlreadyClaimed is returned when another driver holds the ride.
	ErrRideAlreadyClaimed = errors.New("ride already claimed by another driver")

	// Security gates.

	// ErrInvalidOTP is returned when the supplied start code does not match.
	ErrInvalidOTP = errors.New("invalid ride otp")

	// ErrOTPNotIssued is returned when no start code was ever issued.
	ErrOTPNotIssued = errors.New("ride otp was never issued")

	// ErrGeofenceViolation is returned when completion is attempted too far
	// from the drop point.
	ErrGeofenceViolation = errors.New("completion point outside drop geofence")

	// Allowance.

	// ErrInsufficientAllowance is returned when going online without a
	// usable subscription.
	ErrInsufficientAllowance = errors.New("no usable subscription minutes")

	// ErrNoActiveSubscription is returned when no ACTIVE subscription exists.
	ErrNoActiveSubscription = errors.New("no active subscription")

	// ErrSubscriptionExpired is returned when the subscription's wall-clock
	// deadline has passed.
	ErrSubscriptionExpired = errors.New("subscription expired")
)
