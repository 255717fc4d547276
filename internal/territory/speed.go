package territory

import "geoclaim/internal/geo"

// SpeedClass is the severity assigned to the movement between two samples.
type SpeedClass int

const (
	SpeedClassNormal SpeedClass = iota
	SpeedClassWarning
	SpeedClassHardViolation
)

func (c SpeedClass) String() string {
	switch c {
	case SpeedClassWarning:
		return "warning"
	case SpeedClassHardViolation:
		return "hard_violation"
	default:
		return "normal"
	}
}

// mpsToKmh converts meters per second to kilometers per hour.
const mpsToKmh = 3.6

// SpeedKmh estimates the speed implied by moving from previous to candidate. A
// non-positive elapsed time yields 0.
func SpeedKmh(candidate, previous geo.Sample) float64 {
	elapsed := candidate.CapturedAt.Sub(previous.CapturedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return geo.Distance(previous.Point, candidate.Point) / elapsed * mpsToKmh
}

// ClassifySpeed grades the move from previous to candidate against the thresholds.
// The warning band tolerates GPS spikes while walking; anything above the hard limit
// is not on foot.
func ClassifySpeed(candidate, previous geo.Sample, t Thresholds) (SpeedClass, float64) {
	if !candidate.CapturedAt.After(previous.CapturedAt) {
		return SpeedClassNormal, 0
	}
	kmh := SpeedKmh(candidate, previous)
	switch {
	case kmh > t.HardSpeedKmh:
		return SpeedClassHardViolation, kmh
	case kmh > t.WarnSpeedKmh:
		return SpeedClassWarning, kmh
	default:
		return SpeedClassNormal, kmh
	}
}
