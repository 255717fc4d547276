package models

import (
	"time"

	"gorm.io/gorm"
)

// Territory is a validated, claimed loop owned by one player.
type Territory struct {
	gorm.Model

	UserID    uint   `json:"user_id" gorm:"index"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AttemptID string `json:"attempt_id" gorm:"uniqueIndex;size:36"`

	AreaM2     float64 `json:"area_m2"`
	PerimeterM float64 `json:"perimeter_m"`
	PointCount int     `json:"point_count"`

	// Closed POLYGON ring (SRID 4326) as little-endian WKB.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	// Bounding box, indexed for proximity lookups.
	MinLat float64 `json:"min_lat" gorm:"index:idx_territory_bbox"`
	MinLng float64 `json:"min_lng" gorm:"index:idx_territory_bbox"`
	MaxLat float64 `json:"max_lat" gorm:"index:idx_territory_bbox"`
	MaxLng float64 `json:"max_lng" gorm:"index:idx_territory_bbox"`

	StartedAt time.Time `json:"started_at"`
	ClaimedAt time.Time `json:"claimed_at" gorm:"index"`
}
