package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"geoclaim/internal/geo"
)

func TestEnclosedArea(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		path []geo.GeoPoint
		want float64
		tol  float64
	}{
		{"too few points", plan([2]float64{0, 0}, [2]float64{0, 50}), 0, 0},
		{"25 m square", squareLoop(25, 3), 625, 2},
		{"40 m square", squareLoop(40, 4), 1600, 4},
		{"right triangle", plan([2]float64{0, 0}, [2]float64{0, 30}, [2]float64{40, 0}), 600, 2},
		{"collinear", plan([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{0, 20}), 0, 1e-6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, EnclosedArea(tc.path), tc.tol)
		})
	}
}

func TestEnclosedAreaOrientationInvariant(t *testing.T) {
	t.Parallel()

	for _, p := range [][]geo.GeoPoint{squareLoop(25, 3), squareLoop(60, 5), figureEight()} {
		assert.InDelta(t, EnclosedArea(p), EnclosedArea(reversed(p)), 1e-6)
	}
}

func TestEnclosedAreaFarFromEquator(t *testing.T) {
	t.Parallel()

	oslo := geo.GeoPoint{Latitude: 59.9139, Longitude: 10.7522}
	path := []geo.GeoPoint{
		oslo,
		geo.Offset(oslo, 0, 50),
		geo.Offset(oslo, 50, 50),
		geo.Offset(oslo, 50, 0),
	}
	assert.InDelta(t, 2500, EnclosedArea(path), 15)
}
