package service

import (
	"time"

	"ridecore/internal/config"
	"ridecore/internal/domain"
)

// CancellationFacts gathers everything the policy needs to decide a
// driver-initiated cancellation. The caller assembles it from the ride row,
// the driver's reported position and the trailing valid-reason count.
type CancellationFacts struct {
	AcceptedAt  time.Time
	CancelledAt time.Time

	PickupLat float64
	PickupLng float64

	// Driver position captured when the ride was accepted.
	DriverAcceptLat float64
	DriverAcceptLng float64

	// Driver position reported with the cancellation request.
	DriverLat         float64
	DriverLng         float64
	HasDriverPosition bool

	// CallAttempted is true when a rider call attempt was recorded before
	// the cancellation.
	CallAttempted bool

	ReasonType domain.CancellationReasonType

	// ValidReasonCount is the driver's valid-reason cancellations in the
	// trailing policy window.
	ValidReasonCount int
}

// DecideCancellation evaluates the cancellation policy rules in order and
// returns the outcome. It is pure: no I/O, no errors. Malformed input
// degrades to the regular penalty outcome, since a cancellation must always
// resolve to something.
func DecideCancellation(facts CancellationFacts, policy config.CancellationPolicy) domain.CancellationOutcome {
	// Rule 1: free window after acceptance.
	if !facts.AcceptedAt.IsZero() && !facts.CancelledAt.IsZero() {
		if facts.CancelledAt.Sub(facts.AcceptedAt) <= policy.FreeWindow {
			return domain.CancellationOutcome{
				Category: domain.CancellationFreeWindow,
				Message:  "cancelled within the free window",
			}
		}
	}

	// Rule 2: valid-reason waiver, rate-limited. A no-show claim needs a
	// recorded call attempt as evidence; without one it falls through to
	// the penalty (rule 3 of the policy).
	if reasonIsValid(facts) {
		if facts.ValidReasonCount < policy.ValidReasonCap {
			return domain.CancellationOutcome{
				Category:                 domain.CancellationValidReason,
				DriverCompensationAmount: policy.ValidReasonCompensation,
				DriverReasonType:         facts.ReasonType,
				Message:                  "valid reason accepted",
			}
		}
		// Waiver exhausted for the window; demote to penalty.
	}

	// Rule 4: distance/time-based penalty.
	return penaltyOutcome(facts, policy)
}

// reasonIsValid reports whether the claimed reason qualifies for the waiver.
func reasonIsValid(facts CancellationFacts) bool {
	switch facts.ReasonType {
	case domain.ReasonRiderNoShow:
		return facts.CallAttempted
	case domain.ReasonVehicleMismatch, domain.ReasonSafetyConcern:
		return true
	default:
		return false
	}
}

// penaltyOutcome builds the regular penalty: rider pays the fee, the driver
// gets the smaller compensation, and a strike is graded by how close the
// driver already was to the pickup.
func penaltyOutcome(facts CancellationFacts, policy config.CancellationPolicy) domain.CancellationOutcome {
	strike := domain.StrikeMinor
	if facts.HasDriverPosition {
		distanceKm := HaversineKm(facts.DriverLat, facts.DriverLng, facts.PickupLat, facts.PickupLng)
		switch {
		case distanceKm <= policy.SevereDistanceKm:
			strike = domain.StrikeSevere
		case distanceKm <= policy.MajorDistanceKm:
			strike = domain.StrikeMajor
		}
	}

	return domain.CancellationOutcome{
		Category:                 domain.CancellationPenalty,
		RiderChargedAmount:       policy.PenaltyFee,
		DriverCompensationAmount: policy.PenaltyCompensation,
		DriverStrikeType:         strike,
		Message:                  "cancellation penalty applied",
	}
}
