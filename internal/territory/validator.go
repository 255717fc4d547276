package territory

import "geoclaim/internal/geo"

// ValidationResult is the verdict on a closed path.
type ValidationResult struct {
	Valid      bool    `json:"is_valid"`
	Reason     Reason  `json:"reason,omitempty"`
	AreaM2     float64 `json:"area_m2"`
	PointCount int     `json:"point_count"`
	PerimeterM float64 `json:"perimeter_m"`
}

// Validate runs the territory checks in cost order and stops at the first failure:
// point count, walked distance, self-intersection, enclosed area. The area is only
// reported once the path reaches that check.
func Validate(path []geo.GeoPoint, t Thresholds) ValidationResult {
	res := ValidationResult{PointCount: len(path)}

	if len(path) < t.MinPathPoints {
		res.Reason = ReasonInsufficientPoints
		return res
	}

	res.PerimeterM = geo.PathLength(path)
	if res.PerimeterM < t.MinTotalDistanceM {
		res.Reason = ReasonInsufficientDistance
		return res
	}

	if HasSelfIntersection(path) {
		res.Reason = ReasonSelfIntersecting
		return res
	}

	res.AreaM2 = EnclosedArea(path)
	if res.AreaM2 < t.MinEnclosedAreaM2 {
		res.Reason = ReasonInsufficientArea
		return res
	}

	res.Valid = true
	return res
}
