package tracker

import (
	"context"
	"time"

	"geoclaim/internal/geo"
	"geoclaim/internal/territory"
)

// Attempt outcomes as stored in the audit trail.
const (
	OutcomeClaimed   = "claimed"
	OutcomeRejected  = "rejected"
	OutcomeAborted   = "aborted"
	OutcomeStopped   = "stopped"
	OutcomeDiscarded = "discarded"
	OutcomeCancelled = "cancelled"
	OutcomeExpired   = "expired"
)

// Claim is a validated territory ready to be persisted.
type Claim struct {
	AttemptID string
	UserID    uint
	Path      []geo.GeoPoint
	Result    territory.ValidationResult
	StartedAt time.Time
	ClaimedAt time.Time
}

// Attempt is the audit record of one finished tracking attempt.
type Attempt struct {
	AttemptID   string
	UserID      uint
	Outcome     string
	Reason      territory.Reason
	SpeedKmh    float64
	PointCount  int
	PerimeterM  float64
	AreaM2      float64
	TerritoryID *uint
	StartedAt   time.Time
	EndedAt     time.Time
}

// ClaimStore persists claimed territories and attempt outcomes.
type ClaimStore interface {
	SaveTerritory(ctx context.Context, claim Claim) (uint, error)
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// ClaimEvent is broadcast to feed subscribers when a territory is claimed.
type ClaimEvent struct {
	TerritoryID uint       `json:"territory_id"`
	UserID      uint       `json:"user_id"`
	AttemptID   string     `json:"attempt_id"`
	AreaM2      float64    `json:"area_m2"`
	PerimeterM  float64    `json:"perimeter_m"`
	PointCount  int        `json:"point_count"`
	Bounds      geo.Bounds `json:"bounds"`
	ClaimedAt   time.Time  `json:"claimed_at"`
}

// Publisher receives claim events. Implementations must not block.
type Publisher interface {
	Publish(ClaimEvent)
}
