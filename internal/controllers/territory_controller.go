package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"geoclaim/internal/geo"
	"geoclaim/internal/models"
	"geoclaim/internal/store"
)

// TerritoryReader is the read side of the territory store.
type TerritoryReader interface {
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Territory, error)
	Get(ctx context.Context, id uint) (models.Territory, error)
	Near(ctx context.Context, p geo.GeoPoint, limit int) ([]models.Territory, error)
	Attempts(ctx context.Context, userID uint, limit int) ([]models.ClaimAttempt, error)
}

// TerritoryController serves claimed territories.
type TerritoryController struct {
	Store TerritoryReader
}

func NewTerritoryController(r TerritoryReader) *TerritoryController {
	return &TerritoryController{Store: r}
}

// TerritoryResponse mirrors models.Territory with the geometry as GeoJSON.
type TerritoryResponse struct {
	ID         uint            `json:"id"`
	UserID     uint            `json:"user_id"`
	AttemptID  string          `json:"attempt_id"`
	AreaM2     float64         `json:"area_m2"`
	PerimeterM float64         `json:"perimeter_m"`
	PointCount int             `json:"point_count"`
	Bounds     geo.Bounds      `json:"bounds"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	ClaimedAt  time.Time       `json:"claimed_at"`
}

// toTerritoryResponse converts a models.Territory; withGeometry decodes the stored WKB.
func toTerritoryResponse(t models.Territory, withGeometry bool) (TerritoryResponse, error) {
	out := TerritoryResponse{
		ID:         t.ID,
		UserID:     t.UserID,
		AttemptID:  t.AttemptID,
		AreaM2:     t.AreaM2,
		PerimeterM: t.PerimeterM,
		PointCount: t.PointCount,
		Bounds:     geo.Bounds{MinLat: t.MinLat, MinLng: t.MinLng, MaxLat: t.MaxLat, MaxLng: t.MaxLng},
		StartedAt:  t.StartedAt,
		ClaimedAt:  t.ClaimedAt,
	}
	if withGeometry {
		gj, err := geo.WKBToGeoJSON(t.Geometry)
		if err != nil {
			return out, err
		}
		if gj != "" {
			out.Geometry = json.RawMessage(gj)
		}
	}
	return out, nil
}

func toTerritoryResponses(ts []models.Territory) []TerritoryResponse {
	out := make([]TerritoryResponse, 0, len(ts))
	for _, t := range ts {
		r, _ := toTerritoryResponse(t, false)
		out = append(out, r)
	}
	return out
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}

// ListMyTerritories returns the caller's territories, newest first.
func (tc *TerritoryController) ListMyTerritories(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	ts, err := tc.Store.ListByUser(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("ListMyTerritories: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing territories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toTerritoryResponses(ts)})
}

// GetTerritory returns one territory with its polygon as GeoJSON.
func (tc *TerritoryController) GetTerritory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid territory ID"})
		return
	}

	t, err := tc.Store.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Territory not found"})
			return
		}
		logrus.WithError(err).WithField("territory_id", id).Error("GetTerritory: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading territory"})
		return
	}

	resp, err := toTerritoryResponse(t, true)
	if err != nil {
		logrus.WithError(err).WithField("territory_id", id).Error("GetTerritory: stored geometry is unreadable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error decoding territory geometry"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NearTerritories returns territories whose bounding box contains ?lat=&lng=.
func (tc *TerritoryController) NearTerritories(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}
	p := geo.GeoPoint{Latitude: lat, Longitude: lng}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts, err := tc.Store.Near(c.Request.Context(), p, queryLimit(c))
	if err != nil {
		logrus.WithError(err).Error("NearTerritories: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error searching territories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toTerritoryResponses(ts)})
}

// ListMyAttempts returns the caller's claim audit trail.
func (tc *TerritoryController) ListMyAttempts(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	as, err := tc.Store.Attempts(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("ListMyAttempts: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing attempts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": as})
}

// ListUserAttempts returns any player's audit trail for review by admins.
func (tc *TerritoryController) ListUserAttempts(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	as, err := tc.Store.Attempts(c.Request.Context(), uint(id), queryLimit(c))
	if err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("ListUserAttempts: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing attempts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": as})
}
