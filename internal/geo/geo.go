// Package geo holds the coordinate value types and great-circle helpers shared by the
// claiming engine and the HTTP host.
package geo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// EarthRadiusM is the mean Earth radius used by every distance and area computation.
const EarthRadiusM = 6371000.0

// ErrInvalidCoordinate is returned by Validate for NaN, infinite or out-of-range values.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// GeoPoint is a WGS84 position in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Sample is one position fix delivered by the device's positioning sensor.
type Sample struct {
	Point      GeoPoint  `json:"point"`
	CapturedAt time.Time `json:"captured_at"`
	Accuracy   float64   `json:"accuracy"` // horizontal accuracy in meters, 0 if unknown
}

// Validate rejects points that cannot come from a real sensor.
func (p GeoPoint) Validate() error {
	switch {
	case math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude):
		return fmt.Errorf("%w: NaN component", ErrInvalidCoordinate)
	case math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0):
		return fmt.Errorf("%w: infinite component", ErrInvalidCoordinate)
	case p.Latitude < -90 || p.Latitude > 90:
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidCoordinate, p.Latitude)
	case p.Longitude < -180 || p.Longitude > 180:
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidCoordinate, p.Longitude)
	}
	return nil
}

// Distance calculates the great-circle distance in meters between two points.
func Distance(a, b GeoPoint) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

// PathLength sums the consecutive great-circle distances along points.
func PathLength(points []GeoPoint) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Offset moves p by northM meters along the meridian and eastM meters along the parallel.
// It is a local tangent-plane shift, accurate for the tens-of-meters scale of a claim.
func Offset(p GeoPoint, northM, eastM float64) GeoPoint {
	dLat := northM / EarthRadiusM
	dLon := eastM / (EarthRadiusM * math.Cos(toRadians(p.Latitude)))
	return GeoPoint{
		Latitude:  p.Latitude + toDegrees(dLat),
		Longitude: p.Longitude + toDegrees(dLon),
	}
}

// Points extracts the coordinates of a sample sequence.
func Points(samples []Sample) []GeoPoint {
	out := make([]GeoPoint, len(samples))
	for i, s := range samples {
		out[i] = s.Point
	}
	return out
}

// ToRadians converts an angle from degrees to radians.
func ToRadians(deg float64) float64 { return toRadians(deg) }

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
