package domain

import "time"

// PresenceStatus represents a driver's durable online/offline state.
type PresenceStatus string

const (
	PresenceStatusOnline  PresenceStatus = "ONLINE"
	PresenceStatusOffline PresenceStatus = "OFFLINE"
)

// DriverPresence is the per-driver presence row.
//
// TotalOnlineHours is a monotonically non-decreasing accumulator; it and
// LastPingAt are mutated only by the presence metering service.
type DriverPresence struct {
	DriverID         string
	Status           PresenceStatus
	LastPingAt       time.Time
	TotalOnlineHours float64

	// OnTrip is true while the driver has a ride in progress.
	OnTrip bool
}

// Driver represents a driver known to the system.
type Driver struct {
	ID        string
	Name      string
	Phone     string
	VehicleID string
}
