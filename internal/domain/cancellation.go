package domain

import "time"

// CancellationReasonType is the driver's claimed reason for cancelling.
type CancellationReasonType string

const (
	ReasonRiderNoShow     CancellationReasonType = "RIDER_NO_SHOW"
	ReasonVehicleMismatch CancellationReasonType = "VEHICLE_MISMATCH"
	ReasonSafetyConcern   CancellationReasonType = "SAFETY_CONCERN"
	ReasonOther           CancellationReasonType = "OTHER"
)

// StrikeType grades the severity of a penalized cancellation. Closer
// cancellations waste more of the rider's wait and are penalized harder.
type StrikeType string

const (
	StrikeNone   StrikeType = ""
	StrikeMinor  StrikeType = "MINOR"
	StrikeMajor  StrikeType = "MAJOR"
	StrikeSevere StrikeType = "SEVERE"
)

// CancellationCategory labels which policy rule produced the outcome.
type CancellationCategory string

const (
	CancellationFreeWindow  CancellationCategory = "FREE_WINDOW"
	CancellationValidReason CancellationCategory = "VALID_REASON"
	CancellationPenalty     CancellationCategory = "PENALTY"
)

// CancellationOutcome is the policy engine's decision. It is a transient
// value consumed once by the ride state machine to drive ledger writes; it
// is never persisted as-is.
type CancellationOutcome struct {
	Category                 CancellationCategory
	RiderChargedAmount       float64
	DriverCompensationAmount float64
	DriverStrikeType         StrikeType
	DriverReasonType         CancellationReasonType
	Message                  string
}

// CancellationRecord is the persisted audit row for a cancellation that
// carried a strike or consumed a valid-reason waiver. Valid-reason rows are
// what the 7-day rate limit counts.
type CancellationRecord struct {
	ID         string
	DriverID   string
	RideID     string
	Category   CancellationCategory
	StrikeType StrikeType
	ReasonType CancellationReasonType
	CreatedAt  time.Time
}
