package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridecore/internal/service"
)

// DriverHandler handles HTTP requests for driver presence.
type DriverHandler struct {
	presenceService *service.PresenceService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(presenceService *service.PresenceService) *DriverHandler {
	return &DriverHandler{presenceService: presenceService}
}

// ToggleAvailabilityRequest is the HTTP request body for the availability toggle.
type ToggleAvailabilityRequest struct {
	Online bool `json:"online"`
}

// PresenceResponse is the HTTP projection of a driver's presence state.
type PresenceResponse struct {
	DriverID         string  `json:"driver_id"`
	Status           string  `json:"status"`
	LastPingAt       string  `json:"last_ping_at,omitempty"`
	TotalOnlineHours float64 `json:"total_online_hours"`
	OnTrip           bool    `json:"on_trip"`

	SubscriptionStatus string `json:"subscription_status,omitempty"`
	RemainingMinutes   *int   `json:"remaining_minutes,omitempty"`
	ForcedOffline      bool   `json:"forced_offline,omitempty"`
}

// Heartbeat handles POST /v1/drivers/:id/heartbeat
func (h *DriverHandler) Heartbeat(c *gin.Context) {
	snapshot, err := h.presenceService.Heartbeat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPresenceResponse(snapshot))
}

// ToggleAvailability handles POST /v1/drivers/:id/availability
func (h *DriverHandler) ToggleAvailability(c *gin.Context) {
	var req ToggleAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	snapshot, err := h.presenceService.ToggleAvailability(c.Request.Context(), c.Param("id"), req.Online)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPresenceResponse(snapshot))
}

// GetPresence handles GET /v1/drivers/:id/presence
func (h *DriverHandler) GetPresence(c *gin.Context) {
	presence, err := h.presenceService.GetPresence(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPresenceResponse(&service.PresenceSnapshot{Presence: presence}))
}

func toPresenceResponse(s *service.PresenceSnapshot) PresenceResponse {
	resp := PresenceResponse{
		ForcedOffline: s.ForcedOffline,
	}

	if s.Presence != nil {
		resp.DriverID = s.Presence.DriverID
		resp.Status = string(s.Presence.Status)
		resp.LastPingAt = formatTime(s.Presence.LastPingAt)
		resp.TotalOnlineHours = s.Presence.TotalOnlineHours
		resp.OnTrip = s.Presence.OnTrip
	}

	if s.Subscription != nil {
		resp.SubscriptionStatus = string(s.Subscription.Status)
		resp.RemainingMinutes = s.Subscription.RemainingMinutes
	}

	return resp
}
