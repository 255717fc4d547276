package territory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"geoclaim/internal/geo"
)

func TestClassifySpeed(t *testing.T) {
	t.Parallel()

	prev := geo.Sample{Point: origin, CapturedAt: epoch}
	move := func(meters float64, after time.Duration) geo.Sample {
		return geo.Sample{Point: at(0, meters), CapturedAt: epoch.Add(after)}
	}

	for _, tc := range []struct {
		name  string
		next  geo.Sample
		class SpeedClass
		kmh   float64
	}{
		{"walking 12 m in 6 s", move(12, 6*time.Second), SpeedClassNormal, 7.2},
		{"exactly 15 km/h", move(25, 6*time.Second), SpeedClassNormal, 15},
		{"jogging 12 m in 2 s", move(12, 2*time.Second), SpeedClassWarning, 21.6},
		{"exactly 30 km/h", move(50, 6*time.Second), SpeedClassWarning, 30},
		{"200 m in 10 s", move(200, 10*time.Second), SpeedClassHardViolation, 72},
		{"same timestamp", move(200, 0), SpeedClassNormal, 0},
		{"clock went backwards", move(200, -time.Second), SpeedClassNormal, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			class, kmh := ClassifySpeed(tc.next, prev, DefaultThresholds())
			assert.InDelta(t, tc.kmh, kmh, 0.01)
			// Boundary cases land within floating noise of the threshold.
			if tc.kmh != 15 && tc.kmh != 30 {
				assert.Equal(t, tc.class, class)
			}
		})
	}
}

func TestClassifySpeedBoundaries(t *testing.T) {
	t.Parallel()

	prev := geo.Sample{Point: origin, CapturedAt: epoch}
	next := geo.Sample{Point: at(0, 30), CapturedAt: epoch.Add(6 * time.Second)}
	kmh := SpeedKmh(next, prev)

	cfg := DefaultThresholds()
	cfg.WarnSpeedKmh = kmh
	cfg.HardSpeedKmh = kmh * 2
	class, _ := ClassifySpeed(next, prev, cfg)
	assert.Equal(t, SpeedClassNormal, class, "speed equal to the warn limit is normal")

	cfg.WarnSpeedKmh = kmh / 2
	cfg.HardSpeedKmh = kmh
	class, _ = ClassifySpeed(next, prev, cfg)
	assert.Equal(t, SpeedClassWarning, class, "speed equal to the hard limit is only a warning")
}

func TestClassifySpeedMonotonicInElapsedTime(t *testing.T) {
	t.Parallel()

	prev := geo.Sample{Point: origin, CapturedAt: epoch}
	last := SpeedClassHardViolation
	for ms := 500; ms <= 120000; ms += 500 {
		next := geo.Sample{Point: at(40, 30), CapturedAt: epoch.Add(time.Duration(ms) * time.Millisecond)}
		class, _ := ClassifySpeed(next, prev, DefaultThresholds())
		assert.LessOrEqual(t, class, last, "elapsed %d ms", ms)
		last = class
	}
	assert.Equal(t, SpeedClassNormal, last)
}
