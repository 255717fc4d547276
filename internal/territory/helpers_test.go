package territory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"geoclaim/internal/geo"
)

var (
	origin = geo.GeoPoint{Latitude: -1.2921, Longitude: 36.8219}
	epoch  = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
)

// at returns the point northM/eastM meters from origin.
func at(northM, eastM float64) geo.GeoPoint {
	return geo.Offset(origin, northM, eastM)
}

// plan builds a path from (north, east) pairs in meters.
func plan(offsets ...[2]float64) []geo.GeoPoint {
	out := make([]geo.GeoPoint, len(offsets))
	for i, o := range offsets {
		out[i] = at(o[0], o[1])
	}
	return out
}

// timed turns points into samples spaced step apart.
func timed(points []geo.GeoPoint, step time.Duration) []geo.Sample {
	out := make([]geo.Sample, len(points))
	for i, p := range points {
		out[i] = geo.Sample{Point: p, CapturedAt: epoch.Add(time.Duration(i) * step)}
	}
	return out
}

func reversed(points []geo.GeoPoint) []geo.GeoPoint {
	out := make([]geo.GeoPoint, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

// squareLoop walks a side x side square counter-clockwise from origin with perSide
// points per side, stopping at the last point before the start.
func squareLoop(side float64, perSide int) []geo.GeoPoint {
	step := side / float64(perSide)
	var offs [][2]float64
	for k := 0; k < perSide; k++ {
		offs = append(offs, [2]float64{0, float64(k) * step})
	}
	for k := 0; k < perSide; k++ {
		offs = append(offs, [2]float64{float64(k) * step, side})
	}
	for k := 0; k < perSide; k++ {
		offs = append(offs, [2]float64{side, side - float64(k)*step})
	}
	for k := 0; k < perSide; k++ {
		offs = append(offs, [2]float64{side - float64(k)*step, 0})
	}
	return plan(offs...)
}

// figureEight crosses itself once near (20, 20).
func figureEight() []geo.GeoPoint {
	return plan(
		[2]float64{0, 0}, [2]float64{13, 13}, [2]float64{26, 26}, [2]float64{40, 40},
		[2]float64{27, 40}, [2]float64{13, 40}, [2]float64{0, 40},
		[2]float64{13, 27}, [2]float64{27, 13}, [2]float64{40, 0},
		[2]float64{27, 0}, [2]float64{13, 0},
	)
}

func newTestEngine(t *testing.T, mutate ...func(*Thresholds)) *Engine {
	t.Helper()
	cfg := DefaultThresholds()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	return e
}
