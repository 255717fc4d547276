package controllers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplePayloadTimestamps(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 14, 9, 0, 5, 250_000_000, time.UTC)
	for _, ts := range []string{
		"2026-03-14T09:00:05.25Z",
		"2026-03-14T09:00:05.25",
		"2026-03-14T12:00:05.25+03:00",
		"2026-03-14T04:00:05.250-05:00",
	} {
		t.Run(ts, func(t *testing.T) {
			t.Parallel()
			var p SamplePayload
			require.NoError(t, json.Unmarshal([]byte(`{"latitude":-1.29,"longitude":36.82,"accuracy":6,"timestamp":"`+ts+`"}`), &p))
			assert.True(t, want.Equal(p.Timestamp), "got %s", p.Timestamp)
			assert.Equal(t, time.UTC, p.Timestamp.Location())
			assert.Equal(t, -1.29, p.Latitude)
			assert.Equal(t, 6.0, p.Accuracy)
		})
	}
}

func TestSamplePayloadBadTimestamps(t *testing.T) {
	t.Parallel()

	for _, ts := range []string{"yesterday", "12:00", "2026-13-01T00:00:00Z"} {
		var p SamplePayload
		assert.Error(t, json.Unmarshal([]byte(`{"timestamp":"`+ts+`"}`), &p), ts)
	}
}

func TestSamplePayloadMissingTimestamp(t *testing.T) {
	t.Parallel()

	var p SamplePayload
	require.NoError(t, json.Unmarshal([]byte(`{"latitude":1,"longitude":2}`), &p))
	assert.True(t, p.Timestamp.IsZero())

	s := p.Sample()
	assert.Equal(t, 1.0, s.Point.Latitude)
	assert.Equal(t, 2.0, s.Point.Longitude)
}

func TestHasZone(t *testing.T) {
	t.Parallel()

	assert.True(t, hasZone("2026-03-14T09:00:00Z"))
	assert.True(t, hasZone("2026-03-14T09:00:00+03:00"))
	assert.True(t, hasZone("2026-03-14T09:00:00-05:30"))
	assert.False(t, hasZone("2026-03-14T09:00:00"))
	assert.False(t, hasZone("2026-03-14"), "date dashes are not an offset")
	assert.False(t, hasZone("9"))
}
