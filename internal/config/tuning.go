package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"geoclaim/internal/territory"
)

// Tuning is the optional YAML file overriding engine thresholds. Omitted keys keep the
// built-in defaults.
type Tuning struct {
	MinPointDistanceM *float64 `yaml:"min_point_distance_m"`
	WarnSpeedKmh      *float64 `yaml:"warn_speed_kmh"`
	HardSpeedKmh      *float64 `yaml:"hard_speed_kmh"`
	MinPathPoints     *int     `yaml:"min_path_points"`
	ClosureDistanceM  *float64 `yaml:"closure_distance_m"`
	MinTotalDistanceM *float64 `yaml:"min_total_distance_m"`
	MinEnclosedAreaM2 *float64 `yaml:"min_enclosed_area_m2"`
	StopPolicy        *string  `yaml:"stop_policy"`
}

// LoadTuning reads a tuning file.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if t.StopPolicy != nil {
		if _, err := territory.ParseStopPolicy(*t.StopPolicy); err != nil {
			return t, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return t, nil
}

// Apply overlays the set fields on th.
func (t Tuning) Apply(th territory.Thresholds) territory.Thresholds {
	if t.MinPointDistanceM != nil {
		th.MinPointDistanceM = *t.MinPointDistanceM
	}
	if t.WarnSpeedKmh != nil {
		th.WarnSpeedKmh = *t.WarnSpeedKmh
	}
	if t.HardSpeedKmh != nil {
		th.HardSpeedKmh = *t.HardSpeedKmh
	}
	if t.MinPathPoints != nil {
		th.MinPathPoints = *t.MinPathPoints
	}
	if t.ClosureDistanceM != nil {
		th.ClosureDistanceM = *t.ClosureDistanceM
	}
	if t.MinTotalDistanceM != nil {
		th.MinTotalDistanceM = *t.MinTotalDistanceM
	}
	if t.MinEnclosedAreaM2 != nil {
		th.MinEnclosedAreaM2 = *t.MinEnclosedAreaM2
	}
	if t.StopPolicy != nil {
		// Already checked by LoadTuning.
		th.StopPolicy, _ = territory.ParseStopPolicy(*t.StopPolicy)
	}
	return th
}
