package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoclaim/internal/geo"
	"geoclaim/internal/models"
	"geoclaim/internal/store"
)

type fakeReader struct {
	territories []models.Territory
	attempts    []models.ClaimAttempt
	err         error
}

func (f *fakeReader) ListByUser(_ context.Context, userID uint, _ int) ([]models.Territory, error) {
	var out []models.Territory
	for _, t := range f.territories {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, f.err
}

func (f *fakeReader) Get(_ context.Context, id uint) (models.Territory, error) {
	if f.err != nil {
		return models.Territory{}, f.err
	}
	for _, t := range f.territories {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Territory{}, store.ErrNotFound
}

func (f *fakeReader) Near(_ context.Context, p geo.GeoPoint, _ int) ([]models.Territory, error) {
	var out []models.Territory
	for _, t := range f.territories {
		b := geo.Bounds{MinLat: t.MinLat, MinLng: t.MinLng, MaxLat: t.MaxLat, MaxLng: t.MaxLng}
		if b.Contains(p) {
			out = append(out, t)
		}
	}
	return out, f.err
}

func (f *fakeReader) Attempts(_ context.Context, userID uint, _ int) ([]models.ClaimAttempt, error) {
	var out []models.ClaimAttempt
	for _, a := range f.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, f.err
}

func storedTerritory(t *testing.T, id, userID uint) models.Territory {
	t.Helper()
	path := []geo.GeoPoint{
		origin,
		geo.Offset(origin, 0, 50),
		geo.Offset(origin, 50, 50),
		geo.Offset(origin, 50, 0),
	}
	raw, b, err := geo.EncodeWKB(path)
	require.NoError(t, err)
	row := models.Territory{
		UserID:     userID,
		AttemptID:  "attempt",
		AreaM2:     2500,
		PerimeterM: 150,
		PointCount: 4,
		Geometry:   raw,
		MinLat:     b.MinLat,
		MinLng:     b.MinLng,
		MaxLat:     b.MaxLat,
		MaxLng:     b.MaxLng,
		ClaimedAt:  epoch,
	}
	row.ID = id
	return row
}

func territoryRouter(reader TerritoryReader, userID uint) *gin.Engine {
	tc := NewTerritoryController(reader)
	r := gin.New()
	g := r.Group("/territories", asUser(userID))
	g.GET("", tc.ListMyTerritories)
	g.GET("/near", tc.NearTerritories)
	g.GET("/attempts", tc.ListMyAttempts)
	g.GET("/:id", tc.GetTerritory)
	r.GET("/admin/users/:id/attempts", tc.ListUserAttempts)
	return r
}

func TestGetTerritoryReturnsGeoJSON(t *testing.T) {
	t.Parallel()
	r := territoryRouter(&fakeReader{territories: []models.Territory{storedTerritory(t, 3, 1)}}, 1)

	w := doJSON(t, r, http.MethodGet, "/territories/3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		ID       uint    `json:"id"`
		AreaM2   float64 `json:"area_m2"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	decode(t, w, &body)
	assert.Equal(t, uint(3), body.ID)
	assert.Equal(t, "Polygon", body.Geometry.Type)
	require.Len(t, body.Geometry.Coordinates, 1)
	ring := body.Geometry.Coordinates[0]
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
	assert.InDelta(t, origin.Longitude, ring[0][0], 1e-9, "GeoJSON is lng,lat")
	assert.InDelta(t, origin.Latitude, ring[0][1], 1e-9)
}

func TestGetTerritoryErrors(t *testing.T) {
	t.Parallel()
	r := territoryRouter(&fakeReader{}, 1)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/territories/9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/territories/nine", nil).Code)

	broken := territoryRouter(&fakeReader{err: errors.New("connection reset")}, 1)
	assert.Equal(t, http.StatusInternalServerError, doJSON(t, broken, http.MethodGet, "/territories/9", nil).Code)
}

func TestListAndNear(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{territories: []models.Territory{
		storedTerritory(t, 1, 1),
		storedTerritory(t, 2, 2),
	}}
	r := territoryRouter(reader, 1)

	w := doJSON(t, r, http.MethodGet, "/territories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []map[string]json.RawMessage `json:"data"`
	}
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	_, hasGeometry := list.Data[0]["geometry"]
	assert.False(t, hasGeometry, "listings omit geometry")

	inside := geo.Offset(origin, 25, 25)
	w = doJSON(t, r, http.MethodGet, "/territories/near?lat="+ftoa(inside.Latitude)+"&lng="+ftoa(inside.Longitude), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Len(t, list.Data, 2)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/territories/near?lat=1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/territories/near?lat=95&lng=1", nil).Code)
}

func TestAttemptListings(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{attempts: []models.ClaimAttempt{
		{UserID: 1, Outcome: "claimed"},
		{UserID: 2, Outcome: "aborted"},
		{UserID: 2, Outcome: "rejected"},
	}}
	r := territoryRouter(reader, 1)

	var body struct {
		Data []struct {
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	w := doJSON(t, r, http.MethodGet, "/territories/attempts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Len(t, body.Data, 1)

	w = doJSON(t, r, http.MethodGet, "/admin/users/2/attempts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Len(t, body.Data, 2)
}

func ftoa(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
