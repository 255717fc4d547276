// Package tracker hosts one territory session per player on top of the claiming engine.
// It serializes calls per player, gates samples on sensor accuracy, persists claims and
// keeps an audit trail of every finished attempt.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"geoclaim/internal/geo"
	"geoclaim/internal/territory"
)

// ErrLowAccuracy is returned for samples whose reported accuracy is worse than allowed.
var ErrLowAccuracy = errors.New("sample accuracy too low")

// ErrClaimNotStored means a loop was valid but the territory could not be saved.
var ErrClaimNotStored = errors.New("territory claim not stored")

// Options configures a Service.
type Options struct {
	MaxAccuracyM   float64       // 0 disables the accuracy gate
	MaxSessionIdle time.Duration // 0 disables the idle sweep
	Publisher      Publisher     // optional
	Logger         logrus.FieldLogger
	Now            func() time.Time
}

// Snapshot is a read-only view of a player's session.
type Snapshot struct {
	AttemptID  string                      `json:"attempt_id"`
	State      territory.State             `json:"state"`
	SpeedState territory.SpeedState        `json:"speed_state"`
	Points     int                         `json:"point_count"`
	StartedAt  time.Time                   `json:"started_at"`
	LastSeen   time.Time                   `json:"last_seen"`
	Path       []geo.Sample                `json:"path"`
	Result     *territory.ValidationResult `json:"result,omitempty"`
}

// Tick is the outcome of one submitted sample as seen by the player.
type Tick struct {
	territory.TickOutcome
	TerritoryID uint `json:"territory_id,omitempty"`
}

// StopResult is what Stop produced. Result is nil when the path was discarded.
type StopResult struct {
	Result      *territory.ValidationResult `json:"result"`
	TerritoryID uint                        `json:"territory_id,omitempty"`
}

type entry struct {
	mu       sync.Mutex
	session  *territory.TrackingSession
	lastSeen time.Time

	// verdict of the closure that moved the session to Closed; already settled
	closed      *territory.ValidationResult
	territoryID uint
	saveErr     error

	// set once Sweep has dropped the entry from the registry
	dead bool
}

// Service keeps one session per player.
type Service struct {
	engine *territory.Engine
	store  ClaimStore
	opts   Options
	log    logrus.FieldLogger

	mu       sync.Mutex
	sessions map[uint]*entry
}

// NewService builds a Service around an engine and a store.
func NewService(engine *territory.Engine, store ClaimStore, opts Options) *Service {
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		engine:   engine,
		store:    store,
		opts:     opts,
		log:      opts.Logger,
		sessions: make(map[uint]*entry),
	}
}

// lookup returns the player's entry, creating it when create is set.
func (s *Service) lookup(userID uint, create bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[userID]
	if !ok && create {
		e = &entry{session: territory.NewSession()}
		s.sessions[userID] = e
	}
	return e
}

// acquire returns the player's entry locked, or nil when there is none and create is
// false. Entries removed by Sweep while the caller waited are skipped.
func (s *Service) acquire(userID uint, create bool) *entry {
	for {
		e := s.lookup(userID, create)
		if e == nil {
			return nil
		}
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

// Start begins a new attempt. A session left Closed by a previous attempt is reset
// first; one that is still tracking is refused with territory.ErrSessionActive.
func (s *Service) Start(ctx context.Context, userID uint, seed *geo.Sample) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if seed != nil {
		if err := s.checkAccuracy(*seed); err != nil {
			return Snapshot{}, err
		}
	}

	e := s.acquire(userID, true)
	defer e.mu.Unlock()

	if e.session.State() == territory.Closed {
		s.engine.Cancel(e.session)
		e.clearVerdict()
	}
	if err := s.engine.Restart(e.session, seed); err != nil {
		return Snapshot{}, err
	}
	e.lastSeen = s.opts.Now()
	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"attempt_id": e.session.ID(),
	}).Info("Territory attempt started.")
	return e.snapshot(), nil
}

// Submit feeds a sample into the player's session. When the sample closes a valid loop
// the territory is stored and announced before Submit returns.
func (s *Service) Submit(ctx context.Context, userID uint, sample geo.Sample) (Tick, error) {
	if err := ctx.Err(); err != nil {
		return Tick{}, err
	}
	if err := s.checkAccuracy(sample); err != nil {
		return Tick{}, err
	}

	e := s.acquire(userID, false)
	if e == nil {
		return Tick{}, fmt.Errorf("%w: no session", territory.ErrNotTracking)
	}
	defer e.mu.Unlock()

	// Captured before Submit: a hard violation resets the session.
	attemptID := e.session.ID()
	startedAt := e.session.StartedAt()
	points := e.session.Len()

	out, err := s.engine.Submit(e.session, sample)
	if err != nil {
		return Tick{}, err
	}
	e.lastSeen = s.opts.Now()
	tick := Tick{TickOutcome: out}

	switch out.Kind {
	case territory.OutcomeAborted:
		s.record(ctx, Attempt{
			AttemptID:  attemptID,
			UserID:     userID,
			Outcome:    OutcomeAborted,
			Reason:     out.Reason,
			SpeedKmh:   out.SpeedKmh,
			PointCount: points,
			StartedAt:  startedAt,
			EndedAt:    sample.CapturedAt,
		})
	case territory.OutcomeClosed:
		id, err := s.settle(ctx, userID, e.session, *out.Result, sample.CapturedAt, OutcomeRejected)
		e.closed, e.territoryID, e.saveErr = out.Result, id, err
		tick.TerritoryID = id
		if err != nil {
			return tick, err
		}
	}
	return tick, nil
}

// Cancel abandons the player's attempt.
func (s *Service) Cancel(ctx context.Context, userID uint) error {
	e := s.acquire(userID, false)
	if e == nil {
		return nil
	}
	defer e.mu.Unlock()
	s.cancelLocked(ctx, userID, e, OutcomeCancelled)
	return nil
}

func (s *Service) cancelLocked(ctx context.Context, userID uint, e *entry, outcome string) {
	if e.session.State() == territory.Tracking {
		s.record(ctx, Attempt{
			AttemptID:  e.session.ID(),
			UserID:     userID,
			Outcome:    outcome,
			PointCount: e.session.Len(),
			PerimeterM: geo.PathLength(e.session.Points()),
			StartedAt:  e.session.StartedAt(),
			EndedAt:    s.opts.Now(),
		})
	}
	s.engine.Cancel(e.session)
	e.clearVerdict()
}

// Stop ends the attempt by hand. A session that already closed returns the verdict it
// closed with; an open one is judged by the engine's stop policy.
func (s *Service) Stop(ctx context.Context, userID uint) (StopResult, error) {
	if err := ctx.Err(); err != nil {
		return StopResult{}, err
	}
	e := s.acquire(userID, false)
	if e == nil {
		return StopResult{}, fmt.Errorf("%w: no session", territory.ErrNotTracking)
	}
	defer e.mu.Unlock()

	switch e.session.State() {
	case territory.Idle:
		return StopResult{}, fmt.Errorf("%w: state %s", territory.ErrNotTracking, territory.Idle)
	case territory.Closed:
		res := StopResult{Result: e.closed, TerritoryID: e.territoryID}
		err := e.saveErr
		s.engine.Cancel(e.session)
		e.clearVerdict()
		e.lastSeen = s.opts.Now()
		return res, err
	}

	attemptID := e.session.ID()
	startedAt := e.session.StartedAt()
	points := e.session.Len()
	// Stop resets the session, so the path is copied first.
	path := e.session.Points()

	res := s.engine.Stop(e.session)
	e.lastSeen = s.opts.Now()
	if res == nil {
		s.record(ctx, Attempt{
			AttemptID:  attemptID,
			UserID:     userID,
			Outcome:    OutcomeDiscarded,
			PointCount: points,
			PerimeterM: geo.PathLength(path),
			StartedAt:  startedAt,
			EndedAt:    e.lastSeen,
		})
		return StopResult{}, nil
	}

	id, err := s.settlePath(ctx, userID, attemptID, path, *res, startedAt, e.lastSeen, OutcomeStopped)
	return StopResult{Result: res, TerritoryID: id}, err
}

// Snapshot returns the player's session, or false when the player never started one.
func (s *Service) Snapshot(userID uint) (Snapshot, bool) {
	e := s.acquire(userID, false)
	if e == nil {
		return Snapshot{}, false
	}
	defer e.mu.Unlock()
	return e.snapshot(), true
}

// Sweep cancels sessions that have seen no activity for MaxSessionIdle and forgets idle
// players. It returns the number of attempts it expired.
func (s *Service) Sweep(ctx context.Context, now time.Time) int {
	if s.opts.MaxSessionIdle <= 0 {
		return 0
	}

	s.mu.Lock()
	users := make(map[uint]*entry, len(s.sessions))
	for id, e := range s.sessions {
		users[id] = e
	}
	s.mu.Unlock()

	expired := 0
	for userID, e := range users {
		e.mu.Lock()
		if e.dead || now.Sub(e.lastSeen) <= s.opts.MaxSessionIdle {
			e.mu.Unlock()
			continue
		}
		if e.session.State() != territory.Idle {
			s.cancelLocked(ctx, userID, e, OutcomeExpired)
			expired++
		}
		// Removed while e.mu is held so a caller waiting on it sees dead and retries.
		s.mu.Lock()
		if s.sessions[userID] == e {
			delete(s.sessions, userID)
		}
		s.mu.Unlock()
		e.dead = true
		e.mu.Unlock()
	}
	if expired > 0 {
		s.log.WithField("expired", expired).Info("Expired idle territory attempts.")
	}
	return expired
}

// Run sweeps on every tick until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.MaxSessionIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, s.opts.Now())
		}
	}
}

func (s *Service) checkAccuracy(sample geo.Sample) error {
	if s.opts.MaxAccuracyM > 0 && sample.Accuracy > s.opts.MaxAccuracyM {
		return fmt.Errorf("%w: %.1f m exceeds %.1f m", ErrLowAccuracy, sample.Accuracy, s.opts.MaxAccuracyM)
	}
	return nil
}

// settle stores the verdict for a session that has just closed.
func (s *Service) settle(ctx context.Context, userID uint, ts *territory.TrackingSession, res territory.ValidationResult, at time.Time, invalidOutcome string) (uint, error) {
	return s.settlePath(ctx, userID, ts.ID(), ts.Points(), res, ts.StartedAt(), at, invalidOutcome)
}

// settlePath persists a valid result as a territory and records the attempt either way.
func (s *Service) settlePath(ctx context.Context, userID uint, attemptID string, path []geo.GeoPoint, res territory.ValidationResult, startedAt, endedAt time.Time, invalidOutcome string) (uint, error) {
	attempt := Attempt{
		AttemptID:  attemptID,
		UserID:     userID,
		Outcome:    invalidOutcome,
		Reason:     res.Reason,
		PointCount: res.PointCount,
		PerimeterM: res.PerimeterM,
		AreaM2:     res.AreaM2,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
	}
	fields := logrus.Fields{
		"user_id":    userID,
		"attempt_id": attemptID,
		"points":     res.PointCount,
	}

	if !res.Valid {
		s.record(ctx, attempt)
		s.log.WithFields(fields).WithField("reason", res.Reason).Info("Territory rejected.")
		return 0, nil
	}

	id, err := s.store.SaveTerritory(ctx, Claim{
		AttemptID: attemptID,
		UserID:    userID,
		Path:      path,
		Result:    res,
		StartedAt: startedAt,
		ClaimedAt: endedAt,
	})
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to save territory.")
		return 0, fmt.Errorf("%w: %w", ErrClaimNotStored, err)
	}

	attempt.Outcome = OutcomeClaimed
	attempt.TerritoryID = &id
	s.record(ctx, attempt)

	s.log.WithFields(fields).WithFields(logrus.Fields{
		"territory_id": id,
		"area_m2":      fmt.Sprintf("%.1f", res.AreaM2),
	}).Info("Territory claimed.")

	if s.opts.Publisher != nil {
		var bounds geo.Bounds
		if poly, err := geo.Polygon(path); err == nil {
			bounds = geo.PolygonBounds(poly)
		}
		s.opts.Publisher.Publish(ClaimEvent{
			TerritoryID: id,
			UserID:      userID,
			AttemptID:   attemptID,
			AreaM2:      res.AreaM2,
			PerimeterM:  res.PerimeterM,
			PointCount:  res.PointCount,
			Bounds:      bounds,
			ClaimedAt:   endedAt,
		})
	}
	return id, nil
}

// record writes the audit row. Failures are logged and do not affect the player.
func (s *Service) record(ctx context.Context, a Attempt) {
	if err := s.store.RecordAttempt(ctx, a); err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id":    a.UserID,
			"attempt_id": a.AttemptID,
			"outcome":    a.Outcome,
		}).WithError(err).Warn("Failed to record claim attempt.")
	}
}

func (e *entry) clearVerdict() {
	e.closed, e.territoryID, e.saveErr = nil, 0, nil
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		AttemptID:  e.session.ID(),
		State:      e.session.State(),
		SpeedState: e.session.SpeedState(),
		Points:     e.session.Len(),
		StartedAt:  e.session.StartedAt(),
		LastSeen:   e.lastSeen,
		Path:       e.session.Path(),
		Result:     e.closed,
	}
}
