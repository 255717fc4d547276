package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"geoclaim/internal/geo"
	"geoclaim/internal/middleware"
	"geoclaim/internal/territory"
	"geoclaim/internal/tracker"
)

var (
	origin = geo.GeoPoint{Latitude: -1.2921, Longitude: 36.8219}
	epoch  = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.Configure("controllers-test-secret", time.Hour)
}

type fakeClaims struct {
	mu       sync.Mutex
	claims   []tracker.Claim
	attempts []tracker.Attempt
	saveErr  error
}

func (f *fakeClaims) SaveTerritory(_ context.Context, c tracker.Claim) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.claims = append(f.claims, c)
	return uint(len(f.claims)), nil
}

func (f *fakeClaims) RecordAttempt(_ context.Context, a tracker.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, a)
	return nil
}

func newService(t *testing.T, pub tracker.Publisher) (*tracker.Service, *fakeClaims) {
	t.Helper()
	engine, err := territory.NewEngine(territory.DefaultThresholds(), nil)
	require.NoError(t, err)
	claims := &fakeClaims{}
	return tracker.NewService(engine, claims, tracker.Options{MaxAccuracyM: 50, Publisher: pub}), claims
}

// asUser stands in for RequireAuth.
func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, id)
		c.Next()
	}
}

// squarePayloads walks a 48 m square at 12 m every 5 s; the 15th sample closes it.
func squarePayloads() []SamplePayload {
	var offs [][2]float64
	for k := 0.0; k < 4; k++ {
		offs = append(offs, [2]float64{0, k * 12})
	}
	for k := 0.0; k < 4; k++ {
		offs = append(offs, [2]float64{k * 12, 48})
	}
	for k := 0.0; k < 4; k++ {
		offs = append(offs, [2]float64{48, 48 - k*12})
	}
	for k := 0.0; k < 4; k++ {
		offs = append(offs, [2]float64{48 - k*12, 0})
	}
	out := make([]SamplePayload, len(offs))
	for i, o := range offs {
		p := geo.Offset(origin, o[0], o[1])
		out[i] = SamplePayload{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Accuracy:  4,
			Timestamp: epoch.Add(time.Duration(i) * 5 * time.Second),
		}
	}
	return out
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
