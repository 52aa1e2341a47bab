package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridecore/internal/service"
)

// SubscriptionHandler handles HTTP requests for driver subscriptions.
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// ActivateSubscriptionRequest is the HTTP request body for activating a plan.
type ActivateSubscriptionRequest struct {
	PlanName              string  `json:"plan_name"`
	Price                 float64 `json:"price"`
	DurationDays          int     `json:"duration_days"`
	RemainingMinutes      *int    `json:"remaining_minutes,omitempty"`
	DailyAllowanceMinutes *int    `json:"daily_allowance_minutes,omitempty"`
	ReferrerID            string  `json:"referrer_id,omitempty"`
	PaymentRef            string  `json:"payment_ref"`
}

// SubscriptionResponse is the HTTP projection of a subscription.
type SubscriptionResponse struct {
	ID               string `json:"id"`
	DriverID         string `json:"driver_id"`
	PlanName         string `json:"plan_name"`
	Status           string `json:"status"`
	StartTime        string `json:"start_time,omitempty"`
	Expire           string `json:"expire,omitempty"`
	RemainingMinutes *int   `json:"remaining_minutes,omitempty"`

	Expired             bool `json:"expired"`
	InGracePeriod       bool `json:"in_grace_period"`
	GraceHoursRemaining int  `json:"grace_hours_remaining,omitempty"`
}

// Get handles GET /v1/drivers/:id/subscription
func (h *SubscriptionHandler) Get(c *gin.Context) {
	view, err := h.subscriptionService.GetCurrentSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	sub := view.Subscription
	respondJSON(c, http.StatusOK, SubscriptionResponse{
		ID:                  sub.ID,
		DriverID:            sub.DriverID,
		PlanName:            sub.PlanName,
		Status:              string(sub.Status),
		StartTime:           formatTime(sub.StartTime),
		Expire:              formatTime(sub.Expire),
		RemainingMinutes:    sub.RemainingMinutes,
		Expired:             view.Expired,
		InGracePeriod:       view.InGracePeriod,
		GraceHoursRemaining: view.GraceHoursRemaining,
	})
}

// Activate handles POST /v1/drivers/:id/subscription
func (h *SubscriptionHandler) Activate(c *gin.Context) {
	var req ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sub, err := h.subscriptionService.ActivateSubscription(c.Request.Context(), service.ActivateSubscriptionRequest{
		DriverID:              c.Param("id"),
		PlanName:              req.PlanName,
		Price:                 req.Price,
		Duration:              time.Duration(req.DurationDays) * 24 * time.Hour,
		RemainingMinutes:      req.RemainingMinutes,
		DailyAllowanceMinutes: req.DailyAllowanceMinutes,
		ReferrerID:            req.ReferrerID,
		PaymentRef:            req.PaymentRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, SubscriptionResponse{
		ID:               sub.ID,
		DriverID:         sub.DriverID,
		PlanName:         sub.PlanName,
		Status:           string(sub.Status),
		StartTime:        formatTime(sub.StartTime),
		Expire:           formatTime(sub.Expire),
		RemainingMinutes: sub.RemainingMinutes,
	})
}
