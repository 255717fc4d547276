// Package territory implements the claiming engine: it samples positions into a path,
// gates them on walking speed, detects when the path closes on itself and validates the
// closed loop as a territory.
//
// The engine is synchronous and does no locking. A TrackingSession must only be driven by
// one caller at a time; independent sessions share no state.
package territory

import (
	"fmt"
	"strings"
)

// StopPolicy selects what Stop does with a path that has not closed on its own.
// The choice belongs to the host; the engine never guesses.
type StopPolicy string

const (
	// StopDiscard drops the path and returns no result.
	StopDiscard StopPolicy = "discard"
	// StopRejectOpen validates only paths that already meet the closure rule and reports
	// ReasonNotClosed otherwise.
	StopRejectOpen StopPolicy = "reject-open"
	// StopAutoClose treats the stop point as joined back to the start and runs the full
	// validator on the path as walked.
	StopAutoClose StopPolicy = "auto-close"
)

// ParseStopPolicy maps a config string onto a StopPolicy.
func ParseStopPolicy(s string) (StopPolicy, error) {
	switch p := StopPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case StopDiscard, StopRejectOpen, StopAutoClose:
		return p, nil
	case "":
		return StopRejectOpen, nil
	default:
		return "", fmt.Errorf("unknown stop policy %q", s)
	}
}

// Thresholds are the tunable limits of the engine. Distances are meters, speeds km/h,
// areas square meters.
type Thresholds struct {
	MinPointDistanceM float64
	WarnSpeedKmh      float64
	HardSpeedKmh      float64
	MinPathPoints     int
	ClosureDistanceM  float64
	MinTotalDistanceM float64
	MinEnclosedAreaM2 float64
	StopPolicy        StopPolicy
}

// DefaultThresholds returns the production limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPointDistanceM: 10,
		WarnSpeedKmh:      15,
		HardSpeedKmh:      30,
		MinPathPoints:     10,
		ClosureDistanceM:  30,
		MinTotalDistanceM: 50,
		MinEnclosedAreaM2: 100,
		StopPolicy:        StopRejectOpen,
	}
}

// Validate checks that the limits are internally consistent.
func (t Thresholds) Validate() error {
	switch {
	case t.MinPointDistanceM < 0:
		return fmt.Errorf("min point distance must not be negative")
	case t.WarnSpeedKmh <= 0 || t.HardSpeedKmh <= 0:
		return fmt.Errorf("speed thresholds must be positive")
	case t.WarnSpeedKmh > t.HardSpeedKmh:
		return fmt.Errorf("warn speed %.1f km/h exceeds hard speed %.1f km/h", t.WarnSpeedKmh, t.HardSpeedKmh)
	case t.MinPathPoints < 3:
		return fmt.Errorf("min path points must be at least 3, got %d", t.MinPathPoints)
	case t.ClosureDistanceM <= 0:
		return fmt.Errorf("closure distance must be positive")
	case t.MinTotalDistanceM < 0 || t.MinEnclosedAreaM2 < 0:
		return fmt.Errorf("minimum distance and area must not be negative")
	}
	if _, err := ParseStopPolicy(string(t.StopPolicy)); err != nil {
		return err
	}
	return nil
}
