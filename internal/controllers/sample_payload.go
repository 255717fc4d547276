package controllers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"geoclaim/internal/geo"
)

// SamplePayload is one position fix as sent by the mobile client.
// Timestamp is handled by the custom UnmarshalJSON.
type SamplePayload struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`  // GPS accuracy in meters
	Timestamp time.Time `json:"timestamp"` // capture time on the device
}

// UnmarshalJSON accepts RFC3339 timestamps with or without a zone suffix; a missing
// suffix means UTC.
func (sp *SamplePayload) UnmarshalJSON(data []byte) error {
	// Alias to avoid infinite recursion during unmarshaling.
	type alias SamplePayload
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*alias
	}{alias: (*alias)(sp)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t, err := parseTimestamp(aux.Timestamp)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"raw_timestamp": aux.Timestamp,
			"parse_error":   err,
		}).Debug("SamplePayload: failed to parse timestamp.")
		return err
	}
	sp.Timestamp = t
	return nil
}

func parseTimestamp(raw string) (time.Time, error) {
	ts := strings.TrimSpace(raw)
	if ts == "" {
		return time.Time{}, nil
	}
	if !hasZone(ts) {
		ts += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// hasZone reports whether an RFC3339 string ends in Z or a +hh:mm / -hh:mm offset.
func hasZone(ts string) bool {
	if strings.HasSuffix(ts, "Z") || strings.HasSuffix(ts, "z") {
		return true
	}
	if len(ts) < 6 {
		return false
	}
	tail := ts[len(ts)-6:]
	return (tail[0] == '+' || tail[0] == '-') && tail[3] == ':'
}

// Sample converts the payload for the tracker.
func (sp SamplePayload) Sample() geo.Sample {
	return geo.Sample{
		Point:      geo.GeoPoint{Latitude: sp.Latitude, Longitude: sp.Longitude},
		CapturedAt: sp.Timestamp,
		Accuracy:   sp.Accuracy,
	}
}
