package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridecore/internal/repository"
	"ridecore/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code, kind := classifyError(err)
	c.JSON(code, ErrorResponse{Error: err.Error(), Kind: kind})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// classifyError maps service/repository errors to an HTTP status and a
// stable error kind clients can branch on.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"

	// Validation errors.
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_ARGUMENT"

	// Wrong lifecycle status for the requested transition.
	case errors.Is(err, service.ErrRideNotPending),
		errors.Is(err, service.ErrRideNotAccepted),
		errors.Is(err, service.ErrRideNotInProgress),
		errors.Is(err, service.ErrRideAlreadyFinished):
		return http.StatusConflict, "INVALID_STATE"

	// Identity mismatch / resource already claimed.
	case errors.Is(err, service.ErrDriverMismatch):
		return http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, service.ErrRideAlreadyClaimed):
		return http.StatusConflict, "CONFLICT"

	// Security gates.
	case errors.Is(err, service.ErrInvalidOTP):
		return http.StatusUnauthorized, "INVALID_OTP"
	case errors.Is(err, service.ErrOTPNotIssued):
		return http.StatusPreconditionFailed, "PRECONDITION_FAILED"
	case errors.Is(err, service.ErrGeofenceViolation):
		return http.StatusUnprocessableEntity, "GEOFENCE_VIOLATION"

	// Allowance.
	case errors.Is(err, service.ErrInsufficientAllowance),
		errors.Is(err, service.ErrNoActiveSubscription),
		errors.Is(err, service.ErrSubscriptionExpired):
		return http.StatusPaymentRequired, "INSUFFICIENT_ALLOWANCE"

	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
