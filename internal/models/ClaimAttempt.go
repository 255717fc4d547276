package models

import (
	"time"

	"gorm.io/gorm"
)

// ClaimAttempt records how a tracking attempt ended, whether or not it produced a
// territory.
type ClaimAttempt struct {
	gorm.Model
	AttemptID   string    `json:"attempt_id" gorm:"index;size:36"`
	UserID      uint      `json:"user_id" gorm:"index"`
	Outcome     string    `json:"outcome"` // "claimed", "rejected", "aborted", "stopped", "discarded", "cancelled", "expired"
	Reason      string    `json:"reason,omitempty"`
	SpeedKmh    float64   `json:"speed_kmh"` // speed that aborted the attempt, if any
	PointCount  int       `json:"point_count"`
	PerimeterM  float64   `json:"perimeter_m"`
	AreaM2      float64   `json:"area_m2"`
	TerritoryID *uint     `json:"territory_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}
