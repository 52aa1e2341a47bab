package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridecore/internal/domain"
	"ridecore/internal/service"
)

// RideHandler handles HTTP requests for ride transitions.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// AcceptRideRequest is the HTTP request body for accepting a ride.
type AcceptRideRequest struct {
	DriverID  string  `json:"driver_id"`
	DriverLat float64 `json:"driver_lat"`
	DriverLng float64 `json:"driver_lng"`
}

// StartRideRequest is the HTTP request body for starting a ride.
type StartRideRequest struct {
	DriverID string `json:"driver_id"`
	OTP      string `json:"otp"`
}

// CompleteRideRequest is the HTTP request body for completing a ride.
type CompleteRideRequest struct {
	DriverID         string  `json:"driver_id"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	ActualDistanceKm float64 `json:"actual_distance_km,omitempty"`
	ActualDurationS  int64   `json:"actual_duration_seconds,omitempty"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	DriverID           string   `json:"driver_id"`
	Reason             string   `json:"reason,omitempty"`
	ReasonType         string   `json:"reason_type,omitempty"`
	RiderCallAttempted bool     `json:"rider_call_attempted,omitempty"`
	DriverLat          *float64 `json:"driver_lat,omitempty"`
	DriverLng          *float64 `json:"driver_lng,omitempty"`
}

// DriverActionRequest is the HTTP request body for driver-identified actions
// without extra parameters.
type DriverActionRequest struct {
	DriverID string `json:"driver_id"`
}

// RateRideRequest is the HTTP request body for rating a completed ride.
type RateRideRequest struct {
	Rating float64 `json:"rating"`
}

// RideResponse is the HTTP projection of a ride.
type RideResponse struct {
	ID             string  `json:"id"`
	RiderID        string  `json:"rider_id"`
	DriverID       string  `json:"driver_id,omitempty"`
	VehicleID      string  `json:"vehicle_id,omitempty"`
	Status         string  `json:"status"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	DropLat        float64 `json:"drop_lat"`
	DropLng        float64 `json:"drop_lng"`
	RideOTP        string  `json:"ride_otp,omitempty"`
	AcceptedAt     string  `json:"accepted_at,omitempty"`
	ArrivedAt      string  `json:"arrived_at,omitempty"`
	StartTime      string  `json:"start_time,omitempty"`
	EndTime        string  `json:"end_time,omitempty"`
	CancelledAt    string  `json:"cancelled_at,omitempty"`
	EstimatedFare  float64 `json:"estimated_fare"`
	ActualFare     float64 `json:"actual_fare,omitempty"`
	WaitingMinutes int     `json:"waiting_minutes,omitempty"`
	WaitingCharges float64 `json:"waiting_charges,omitempty"`

	CancellationFee          float64 `json:"cancellation_fee,omitempty"`
	DriverStrikeType         string  `json:"driver_strike_type,omitempty"`
	DriverCompensationAmount float64 `json:"driver_compensation_amount,omitempty"`

	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// Accept handles POST /v1/rides/:id/accept
func (h *RideHandler) Accept(c *gin.Context) {
	var req AcceptRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.AcceptRide(c.Request.Context(), service.AcceptRideRequest{
		RideID:    c.Param("id"),
		DriverID:  req.DriverID,
		DriverLat: req.DriverLat,
		DriverLng: req.DriverLng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Arrived handles POST /v1/rides/:id/arrived
func (h *RideHandler) Arrived(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.ArrivedAtPickup(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CallAttempt handles POST /v1/rides/:id/call-attempt
func (h *RideHandler) CallAttempt(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.RecordRiderCallAttempt(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Start handles POST /v1/rides/:id/start
func (h *RideHandler) Start(c *gin.Context) {
	var req StartRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), service.StartRideRequest{
		RideID:   c.Param("id"),
		DriverID: req.DriverID,
		OTP:      req.OTP,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Complete handles POST /v1/rides/:id/complete
func (h *RideHandler) Complete(c *gin.Context) {
	var req CompleteRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.rideService.CompleteRide(c.Request.Context(), service.CompleteRideRequest{
		RideID:           c.Param("id"),
		DriverID:         req.DriverID,
		CompletionLat:    req.Lat,
		CompletionLng:    req.Lng,
		ActualDistanceKm: req.ActualDistanceKm,
		ActualDuration:   time.Duration(req.ActualDurationS) * time.Second,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"ride":    toRideResponse(result.Ride),
		"receipt": result.Receipt,
	})
}

// Cancel handles POST /v1/rides/:id/cancel
func (h *RideHandler) Cancel(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq := service.CancelRideRequest{
		RideID:             c.Param("id"),
		DriverID:           req.DriverID,
		Reason:             req.Reason,
		ReasonType:         domain.CancellationReasonType(req.ReasonType),
		RiderCallAttempted: req.RiderCallAttempted,
	}
	if req.DriverLat != nil && req.DriverLng != nil {
		svcReq.DriverLat = *req.DriverLat
		svcReq.DriverLng = *req.DriverLng
		svcReq.HasDriverPosition = true
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ConfirmPayment handles POST /v1/rides/:id/confirm-payment
func (h *RideHandler) ConfirmPayment(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.ConfirmCashPayment(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Rate handles POST /v1/rides/:id/rate
func (h *RideHandler) Rate(c *gin.Context) {
	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.RateRide(c.Request.Context(), c.Param("id"), req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Get handles GET /v1/rides/:id
func (h *RideHandler) Get(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

func toRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:             ride.ID,
		RiderID:        ride.RiderID,
		DriverID:       ride.DriverID,
		VehicleID:      ride.VehicleID,
		Status:         string(ride.Status),
		PickupLat:      ride.PickupLat,
		PickupLng:      ride.PickupLng,
		DropLat:        ride.DropLat,
		DropLng:        ride.DropLng,
		RideOTP:        ride.RideOTP,
		EstimatedFare:  ride.EstimatedFare,
		ActualFare:     ride.ActualFare,
		WaitingMinutes: ride.WaitingMinutes,
		WaitingCharges: ride.WaitingCharges,

		CancellationFee:          ride.CancellationFee,
		DriverStrikeType:         ride.DriverStrikeType,
		DriverCompensationAmount: ride.DriverCompensationAmount,

		PaymentMethod: string(ride.PaymentMethod),
		PaymentStatus: string(ride.PaymentStatus),
	}

	resp.AcceptedAt = formatTime(ride.AcceptedAt)
	resp.ArrivedAt = formatTime(ride.DriverArrivedAtPickupAt)
	resp.StartTime = formatTime(ride.StartTime)
	resp.EndTime = formatTime(ride.EndTime)
	resp.CancelledAt = formatTime(ride.CancelledAt)

	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
