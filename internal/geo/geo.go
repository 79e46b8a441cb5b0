// Package geo implements the impossible-travel heuristic: if two logins
// from the same user imply a travel speed no airliner reaches, the second
// login is suspect.
package geo

import (
	"context"
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// Travel speed thresholds in km/h.
const (
	// SuspiciousSpeedKmh is the speed above which travel is flagged.
	SuspiciousSpeedKmh = 1000
	// CriticalSpeedKmh marks clearly impossible travel.
	CriticalSpeedKmh = 5000
	// riskSpeedScale normalizes speed into a [0,1] risk score.
	riskSpeedScale = 10000
)

// Location is one geolocated login.
type Location struct {
	UserID    string    `json:"userId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	City      string    `json:"city,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TravelCheck is the outcome of comparing consecutive logins.
type TravelCheck struct {
	Suspicious bool    `json:"suspicious"`
	Critical   bool    `json:"critical"`
	DistanceKm float64 `json:"distanceKm"`
	SpeedKmh   float64 `json:"speedKmh"`
	RiskScore  float64 `json:"riskScore"`
}

// Store keeps each user's most recent login location.
type Store interface {
	LastLocation(ctx context.Context, userID string) (*Location, error)
	SaveLocation(ctx context.Context, loc *Location) error
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// CheckTravel evaluates whether moving from prev to current within their
// timestamps' gap is physically plausible. A nil prev (first sighting)
// is never suspicious.
func CheckTravel(prev, current *Location) *TravelCheck {
	if prev == nil {
		return &TravelCheck{}
	}

	distance := HaversineKm(prev.Latitude, prev.Longitude, current.Latitude, current.Longitude)
	hours := current.Timestamp.Sub(prev.Timestamp).Hours()
	if hours <= 0 {
		// Simultaneous logins from distant places are treated as
		// instantaneous travel.
		if distance < 1 {
			return &TravelCheck{DistanceKm: distance}
		}
		return &TravelCheck{
			Suspicious: true,
			Critical:   true,
			DistanceKm: distance,
			SpeedKmh:   math.Inf(1),
			RiskScore:  1,
		}
	}

	speed := distance / hours
	check := &TravelCheck{
		DistanceKm: distance,
		SpeedKmh:   speed,
	}
	if speed > SuspiciousSpeedKmh {
		check.Suspicious = true
		check.Critical = speed > CriticalSpeedKmh
		check.RiskScore = math.Min(1, speed/riskSpeedScale)
	}
	return check
}
