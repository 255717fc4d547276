// Package store persists territories and claim attempts with GORM on PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"geoclaim/internal/geo"
	"geoclaim/internal/models"
	"geoclaim/internal/tracker"
)

const uniqueViolation = "23505"

var (
	// ErrNotFound is returned when a territory does not exist.
	ErrNotFound = errors.New("territory not found")
	// ErrDuplicate is returned when a row violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// IsUniqueViolation reports whether err comes from a unique constraint, either as a raw
// postgres error or as translated by gorm.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// GormStore implements tracker.ClaimStore and the territory read queries.
type GormStore struct {
	db *gorm.DB
}

var _ tracker.ClaimStore = (*GormStore)(nil)

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SaveTerritory stores a claimed loop as a WKB polygon and returns its id.
func (s *GormStore) SaveTerritory(ctx context.Context, claim tracker.Claim) (uint, error) {
	t, err := territoryRow(claim)
	if err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		if IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: attempt %s already claimed", ErrDuplicate, claim.AttemptID)
		}
		return 0, err
	}
	return t.ID, nil
}

// RecordAttempt appends an audit row.
func (s *GormStore) RecordAttempt(ctx context.Context, a tracker.Attempt) error {
	row := attemptRow(a)
	return s.db.WithContext(ctx).Create(&row).Error
}

// ListByUser returns a player's territories, newest first.
func (s *GormStore) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Territory, error) {
	var out []models.Territory
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("claimed_at DESC").
		Limit(clampLimit(limit)).
		Find(&out).Error
	return out, err
}

// Get loads one territory.
func (s *GormStore) Get(ctx context.Context, id uint) (models.Territory, error) {
	var t models.Territory
	err := s.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, ErrNotFound
	}
	return t, err
}

// Near returns territories whose outline contains p, largest first. The bounding-box
// columns narrow the candidates and the stored polygon decides.
func (s *GormStore) Near(ctx context.Context, p geo.GeoPoint, limit int) ([]models.Territory, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var candidates []models.Territory
	err := s.db.WithContext(ctx).
		Where("min_lat <= ? AND max_lat >= ? AND min_lng <= ? AND max_lng >= ?",
			p.Latitude, p.Latitude, p.Longitude, p.Longitude).
		Order("area_m2 DESC").
		Limit(clampLimit(limit)).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	out := candidates[:0]
	for _, t := range candidates {
		ring, err := geo.DecodeWKB(t.Geometry)
		if err != nil {
			return nil, fmt.Errorf("territory %d: %w", t.ID, err)
		}
		if geo.RingContains(ring, p) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Attempts returns a player's audit trail, newest first.
func (s *GormStore) Attempts(ctx context.Context, userID uint, limit int) ([]models.ClaimAttempt, error) {
	var out []models.ClaimAttempt
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("ended_at DESC").
		Limit(clampLimit(limit)).
		Find(&out).Error
	return out, err
}

func territoryRow(c tracker.Claim) (models.Territory, error) {
	raw, bounds, err := geo.EncodeWKB(c.Path)
	if err != nil {
		return models.Territory{}, fmt.Errorf("encode territory geometry: %w", err)
	}
	return models.Territory{
		UserID:     c.UserID,
		AttemptID:  c.AttemptID,
		AreaM2:     c.Result.AreaM2,
		PerimeterM: c.Result.PerimeterM,
		PointCount: c.Result.PointCount,
		Geometry:   raw,
		MinLat:     bounds.MinLat,
		MinLng:     bounds.MinLng,
		MaxLat:     bounds.MaxLat,
		MaxLng:     bounds.MaxLng,
		StartedAt:  c.StartedAt,
		ClaimedAt:  c.ClaimedAt,
	}, nil
}

func attemptRow(a tracker.Attempt) models.ClaimAttempt {
	return models.ClaimAttempt{
		AttemptID:   a.AttemptID,
		UserID:      a.UserID,
		Outcome:     a.Outcome,
		Reason:      string(a.Reason),
		SpeedKmh:    a.SpeedKmh,
		PointCount:  a.PointCount,
		PerimeterM:  a.PerimeterM,
		AreaM2:      a.AreaM2,
		TerritoryID: a.TerritoryID,
		StartedAt:   a.StartedAt,
		EndedAt:     a.EndedAt,
	}
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	}
	return n
}
