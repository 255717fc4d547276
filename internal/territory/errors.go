package territory

import "errors"

// Reason is a stable, user-facing code explaining an outcome.
type Reason string

const (
	ReasonTooClose             Reason = "TOO_CLOSE"
	ReasonSpeedWarning         Reason = "SPEED_WARNING"
	ReasonHardSpeedViolation   Reason = "HARD_SPEED_VIOLATION"
	ReasonInsufficientPoints   Reason = "INSUFFICIENT_POINTS"
	ReasonInsufficientDistance Reason = "INSUFFICIENT_DISTANCE"
	ReasonSelfIntersecting     Reason = "SELF_INTERSECTING"
	ReasonInsufficientArea     Reason = "INSUFFICIENT_AREA"
	ReasonNotClosed            Reason = "NOT_CLOSED"
)

var (
	// ErrInvalidInput wraps samples that violate the sensor boundary contract.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotTracking is returned when a sample is submitted outside the Tracking state.
	ErrNotTracking = errors.New("session is not tracking")
	// ErrSessionActive is returned when starting over a session that is still tracking.
	ErrSessionActive = errors.New("session already active")
)
