package service

import (
	"math"
	"time"

	"ridecore/internal/config"
)

// WaitingResult is the billed delay between driver arrival and ride start.
type WaitingResult struct {
	Minutes int
	Charge  float64
}

// Waiting computes waiting minutes and the tariff-weighted charge for the
// delay between arrivedAt and startedAt.
//
// Returns nil when arrivedAt was never recorded: waiting is undefined, not
// zero, so callers can distinguish "no wait recorded" from a zero-minute
// wait. The first tariff.FreeMinutes minutes are free; each later whole
// minute is priced by the rate in force at that minute's wall-clock time,
// not at call time.
func Waiting(arrivedAt, startedAt time.Time, tariff config.WaitingTariff) *WaitingResult {
	if arrivedAt.IsZero() {
		return nil
	}

	elapsed := startedAt.Sub(arrivedAt)
	if elapsed <= 0 {
		return &WaitingResult{}
	}

	minutes := int(math.Ceil(elapsed.Seconds() / 60.0))

	var charge float64
	for m := tariff.FreeMinutes + 1; m <= minutes; m++ {
		at := arrivedAt.Add(time.Duration(m) * time.Minute)
		charge += minuteRate(at, tariff)
	}

	return &WaitingResult{Minutes: minutes, Charge: charge}
}

// minuteRate returns the per-minute waiting rate in force at t.
func minuteRate(t time.Time, tariff config.WaitingTariff) float64 {
	hour := t.Hour()
	if hour >= tariff.DayStartHour && hour < tariff.DayEndHour {
		return tariff.DayRate
	}
	return tariff.NightRate
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// FinalFare assembles the settled fare for a completed ride: the base fare
// scaled by surge, plus any waiting charge recorded at start.
func FinalFare(baseFare, surgeMultiplier, waitingCharge float64) float64 {
	if surgeMultiplier < 1.0 {
		surgeMultiplier = 1.0
	}
	return baseFare*surgeMultiplier + waitingCharge
}
