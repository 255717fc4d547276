package territory

import (
	"time"

	"github.com/google/uuid"

	"geoclaim/internal/geo"
)

// State is the lifecycle state of a TrackingSession.
type State int

const (
	Idle State = iota
	Tracking
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state as its lower-case name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SpeedState records whether the last accepted sample raised a speed advisory.
type SpeedState int

const (
	SpeedNormal SpeedState = iota
	SpeedWarning
)

func (s SpeedState) String() string {
	if s == SpeedWarning {
		return "warning"
	}
	return "normal"
}

// MarshalText renders the speed state as its lower-case name.
func (s SpeedState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// TrackingSession is the mutable aggregate driven by an Engine. Only the engine mutates
// it; readers get copies.
type TrackingSession struct {
	id           string
	state        State
	path         []geo.Sample
	lastAccepted *geo.Sample
	speedState   SpeedState
	startedAt    time.Time
}

// NewSession returns an empty, idle session.
func NewSession() *TrackingSession {
	return &TrackingSession{id: uuid.NewString()}
}

// ID identifies one tracking attempt. It changes every time the session is started.
func (s *TrackingSession) ID() string { return s.id }

func (s *TrackingSession) State() State { return s.state }

func (s *TrackingSession) SpeedState() SpeedState { return s.speedState }

func (s *TrackingSession) StartedAt() time.Time { return s.startedAt }

func (s *TrackingSession) Len() int { return len(s.path) }

// Path returns a copy of the accepted samples in walking order.
func (s *TrackingSession) Path() []geo.Sample {
	out := make([]geo.Sample, len(s.path))
	copy(out, s.path)
	return out
}

// Points returns a copy of the accepted coordinates in walking order.
func (s *TrackingSession) Points() []geo.GeoPoint {
	return geo.Points(s.path)
}

func (s *TrackingSession) begin(at time.Time) {
	s.reset()
	s.id = uuid.NewString()
	s.state = Tracking
	s.startedAt = at
}

func (s *TrackingSession) append(sample geo.Sample) int {
	s.path = append(s.path, sample)
	last := sample
	s.lastAccepted = &last
	return len(s.path) - 1
}

// reset discards everything but the attempt id.
func (s *TrackingSession) reset() {
	s.state = Idle
	s.path = nil
	s.lastAccepted = nil
	s.speedState = SpeedNormal
	s.startedAt = time.Time{}
}
