package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"geoclaim/internal/geo"
)

func TestHasSelfIntersection(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		path []geo.GeoPoint
		want bool
	}{
		{"empty", nil, false},
		{"three points", plan([2]float64{0, 0}, [2]float64{0, 20}, [2]float64{20, 0}), false},
		{"simple square", squareLoop(40, 4), false},
		{"figure eight", figureEight(), true},
		{
			// A crossing in the middle of the path, away from the seam.
			"bowtie in the middle",
			plan(
				[2]float64{0, 0}, [2]float64{0, 15}, [2]float64{0, 30}, [2]float64{15, 45},
				[2]float64{30, 60}, [2]float64{30, 45}, [2]float64{15, 60}, [2]float64{0, 75},
				[2]float64{-15, 60}, [2]float64{-15, 30}, [2]float64{-15, 0},
			),
			true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, HasSelfIntersection(tc.path))
		})
	}
}

func TestHasSelfIntersectionIgnoresClosureSeam(t *testing.T) {
	t.Parallel()

	// The walker overshoots the start: the last segment crosses the first one. That is
	// the closure itself, not a cheat.
	path := plan(
		[2]float64{0, 0}, [2]float64{0, 20}, [2]float64{0, 40},
		[2]float64{20, 40}, [2]float64{40, 40}, [2]float64{40, 20},
		[2]float64{40, 0}, [2]float64{20, 0}, [2]float64{5, -3}, [2]float64{-5, 8},
	)
	assert.True(t, segmentsIntersect(path[0], path[1], path[8], path[9]))
	assert.False(t, HasSelfIntersection(path))
}

func TestHasSelfIntersectionReverseSymmetric(t *testing.T) {
	t.Parallel()

	paths := [][]geo.GeoPoint{
		squareLoop(40, 4),
		squareLoop(25, 3),
		figureEight(),
		plan(
			[2]float64{0, 0}, [2]float64{0, 20}, [2]float64{0, 40},
			[2]float64{20, 40}, [2]float64{40, 40}, [2]float64{40, 20},
			[2]float64{40, 0}, [2]float64{20, 0}, [2]float64{5, -3}, [2]float64{-5, 8},
		),
	}
	for _, p := range paths {
		assert.Equal(t, HasSelfIntersection(p), HasSelfIntersection(reversed(p)))
	}
}

func TestCCW(t *testing.T) {
	t.Parallel()

	a, b, c := at(0, 0), at(0, 10), at(10, 10)
	assert.True(t, ccw(a, b, c))
	assert.False(t, ccw(a, c, b))
	assert.False(t, ccw(a, b, at(0, 20)), "collinear points are not counter-clockwise")
}
