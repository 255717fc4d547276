package territory

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"geoclaim/internal/geo"
)

// OutcomeKind says what happened to one submitted sample.
type OutcomeKind string

const (
	OutcomeRecorded         OutcomeKind = "recorded"
	OutcomeFilteredTooClose OutcomeKind = "filtered_too_close"
	OutcomeSpeedWarning     OutcomeKind = "speed_warning"
	OutcomeAborted          OutcomeKind = "aborted"
	OutcomeClosed           OutcomeKind = "closed"
)

// TickOutcome is the result of submitting one sample.
//
// PointIndex is set for Recorded, SpeedWarning and Closed. SpeedKmh is set for
// SpeedWarning and Aborted, and for Closed when the closing sample raised a warning.
// Result is set only for Closed.
type TickOutcome struct {
	Kind       OutcomeKind       `json:"kind"`
	PointIndex int               `json:"point_index"`
	SpeedKmh   float64           `json:"speed_kmh,omitempty"`
	Reason     Reason            `json:"reason,omitempty"`
	Result     *ValidationResult `json:"result,omitempty"`
}

// Engine applies the claiming rules to caller-owned sessions.
type Engine struct {
	cfg Thresholds
	log logrus.FieldLogger
}

// NewEngine builds an engine. A nil logger discards output.
func NewEngine(cfg Thresholds, log logrus.FieldLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Thresholds returns the limits the engine was built with.
func (e *Engine) Thresholds() Thresholds { return e.cfg }

// Start begins a new tracking session, optionally seeding it with the current position.
func (e *Engine) Start(initial *geo.Sample) (*TrackingSession, error) {
	s := NewSession()
	if err := e.Restart(s, initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Restart begins tracking on an existing idle session, giving it a fresh attempt id.
func (e *Engine) Restart(s *TrackingSession, initial *geo.Sample) error {
	if s.state != Idle {
		return fmt.Errorf("%w: state %s", ErrSessionActive, s.state)
	}
	startedAt := time.Time{}
	if initial != nil {
		if err := checkSample(*initial); err != nil {
			return err
		}
		startedAt = initial.CapturedAt
	}
	s.begin(startedAt)
	if initial != nil {
		s.append(*initial)
	}
	e.log.WithFields(logrus.Fields{
		"session_id": s.id,
		"seeded":     initial != nil,
	}).Debug("Tracking session started.")
	return nil
}

// Submit feeds one sensor sample into a tracking session.
//
// Control outcomes (filtered, warning, abort, closure) are reported in the TickOutcome;
// an error means the call itself was invalid and the session is untouched.
func (e *Engine) Submit(s *TrackingSession, sample geo.Sample) (TickOutcome, error) {
	if s.state != Tracking {
		return TickOutcome{}, fmt.Errorf("%w: state %s", ErrNotTracking, s.state)
	}
	if err := checkSample(sample); err != nil {
		return TickOutcome{}, err
	}

	out, accepted := e.accept(s, sample)
	if !accepted {
		return out, nil
	}

	if e.CheckClosure(s) {
		res := e.Validate(s)
		out.Kind = OutcomeClosed
		out.Result = &res
		out.Reason = res.Reason
		e.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"points":     len(s.path),
			"valid":      res.Valid,
			"reason":     res.Reason,
			"area_m2":    fmt.Sprintf("%.1f", res.AreaM2),
		}).Info("Tracking session closed.")
	}
	return out, nil
}

// accept applies the minimum-movement filter and the speed guard, appending the sample
// when both pass. The bool is false when nothing was appended.
func (e *Engine) accept(s *TrackingSession, sample geo.Sample) (TickOutcome, bool) {
	if s.lastAccepted == nil {
		if s.startedAt.IsZero() {
			s.startedAt = sample.CapturedAt
		}
		idx := s.append(sample)
		return TickOutcome{Kind: OutcomeRecorded, PointIndex: idx}, true
	}

	prev := *s.lastAccepted
	if geo.Distance(prev.Point, sample.Point) < e.cfg.MinPointDistanceM {
		return TickOutcome{Kind: OutcomeFilteredTooClose, PointIndex: -1, Reason: ReasonTooClose}, false
	}

	class, kmh := ClassifySpeed(sample, prev, e.cfg)
	switch class {
	case SpeedClassHardViolation:
		e.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"speed_kmh":  fmt.Sprintf("%.1f", kmh),
			"points":     len(s.path),
		}).Warn("Hard speed violation, discarding tracked path.")
		s.reset()
		return TickOutcome{Kind: OutcomeAborted, PointIndex: -1, SpeedKmh: kmh, Reason: ReasonHardSpeedViolation}, false
	case SpeedClassWarning:
		s.speedState = SpeedWarning
		idx := s.append(sample)
		return TickOutcome{Kind: OutcomeSpeedWarning, PointIndex: idx, SpeedKmh: kmh, Reason: ReasonSpeedWarning}, true
	default:
		s.speedState = SpeedNormal
		idx := s.append(sample)
		return TickOutcome{Kind: OutcomeRecorded, PointIndex: idx}, true
	}
}

// CheckClosure reports whether the path has returned to within the closure distance of
// its start, and moves the session to Closed when it has. Exactly the threshold counts.
func (e *Engine) CheckClosure(s *TrackingSession) bool {
	if s.state != Tracking || !e.closes(s) {
		return false
	}
	s.state = Closed
	return true
}

// Validate runs the territory checks against the session's current path.
func (e *Engine) Validate(s *TrackingSession) ValidationResult {
	return Validate(geo.Points(s.path), e.cfg)
}

// Cancel discards the path and returns the session to Idle.
func (e *Engine) Cancel(s *TrackingSession) {
	if s.state != Idle {
		e.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"points":     len(s.path),
		}).Debug("Tracking session cancelled.")
	}
	s.reset()
}

// Stop ends the session by hand and returns it to Idle. What happens to the path depends
// on the configured StopPolicy; nil means no verdict was produced.
func (e *Engine) Stop(s *TrackingSession) *ValidationResult {
	defer s.reset()

	switch s.state {
	case Idle:
		return nil
	case Closed:
		res := e.Validate(s)
		return &res
	}

	switch e.cfg.StopPolicy {
	case StopDiscard:
		return nil
	case StopAutoClose:
		res := e.Validate(s)
		return &res
	default:
		if e.closes(s) {
			res := e.Validate(s)
			return &res
		}
		return &ValidationResult{
			Reason:     ReasonNotClosed,
			PointCount: len(s.path),
			PerimeterM: geo.PathLength(geo.Points(s.path)),
		}
	}
}

// closes applies the closure rule without changing state. The point-count guard keeps
// the common case O(1).
func (e *Engine) closes(s *TrackingSession) bool {
	if len(s.path) < e.cfg.MinPathPoints {
		return false
	}
	return geo.Distance(s.path[0].Point, s.path[len(s.path)-1].Point) <= e.cfg.ClosureDistanceM
}

func checkSample(sample geo.Sample) error {
	if err := sample.Point.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if sample.CapturedAt.IsZero() {
		return fmt.Errorf("%w: missing capture time", ErrInvalidInput)
	}
	return nil
}
