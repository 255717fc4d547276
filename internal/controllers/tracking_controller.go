package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"geoclaim/internal/geo"
	"geoclaim/internal/middleware"
	"geoclaim/internal/store"
	"geoclaim/internal/territory"
	"geoclaim/internal/tracker"
)

// maxBatch bounds how many buffered samples one request may carry.
const maxBatch = 500

// TrackingController exposes a player's territory session over REST.
type TrackingController struct {
	Tracker *tracker.Service
	// PongWait is how long /ws/tracking waits for any frame or pong; zero means 60s.
	PongWait time.Duration
}

func NewTrackingController(svc *tracker.Service) *TrackingController {
	return &TrackingController{Tracker: svc}
}

// errorCode maps tracker and engine errors onto an HTTP status and a stable code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, territory.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, tracker.ErrLowAccuracy):
		return http.StatusUnprocessableEntity, "low_accuracy"
	case errors.Is(err, territory.ErrNotTracking):
		return http.StatusConflict, "not_tracking"
	case errors.Is(err, territory.ErrSessionActive):
		return http.StatusConflict, "session_active"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "duplicate_claim"
	case errors.Is(err, tracker.ErrClaimNotStored):
		return http.StatusInternalServerError, "claim_not_stored"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeTrackingError(c *gin.Context, userID uint, err error) {
	status, code := errorCode(err)
	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"user_id": userID,
		"path":    c.FullPath(),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Tracking request failed.")
	} else {
		entry.Debug("Tracking request refused.")
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func mustUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return id, ok
}

// StartTracking begins a new attempt. The body may carry the current position as a seed.
func (tc *TrackingController) StartTracking(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}

	var input struct {
		Sample *SamplePayload `json:"sample"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error(), "code": "invalid_input"})
		return
	}

	var seed *geo.Sample
	if input.Sample != nil {
		s := input.Sample.Sample()
		seed = &s
	}
	snap, err := tc.Tracker.Start(c.Request.Context(), userID, seed)
	if err != nil {
		writeTrackingError(c, userID, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": snap})
}

// SubmitSamples feeds one sample, or a JSON array of buffered samples, into the session.
// A batch stops at the first closure or abort; "accepted" says how many were consumed.
func (tc *TrackingController) SubmitSamples(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read body", "code": "invalid_input"})
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		tc.submitBatch(c, userID, body)
		return
	}

	var payload SamplePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sample: " + err.Error(), "code": "invalid_input"})
		return
	}
	tick, err := tc.Tracker.Submit(c.Request.Context(), userID, payload.Sample())
	if err != nil {
		if tick.Kind == territory.OutcomeClosed {
			// The loop closed but the claim could not be stored.
			status, code := errorCode(err)
			c.JSON(status, gin.H{"error": err.Error(), "code": code, "tick": tick})
			return
		}
		writeTrackingError(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tick": tick})
}

func (tc *TrackingController) submitBatch(c *gin.Context, userID uint, body []byte) {
	var payloads []SamplePayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid samples: " + err.Error(), "code": "invalid_input"})
		return
	}
	if len(payloads) > maxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many samples in one request", "code": "invalid_input"})
		return
	}

	ticks := make([]tracker.Tick, 0, len(payloads))
	for _, p := range payloads {
		tick, err := tc.Tracker.Submit(c.Request.Context(), userID, p.Sample())
		if err != nil {
			status, code := errorCode(err)
			if tick.Kind != "" {
				ticks = append(ticks, tick)
			}
			c.JSON(status, gin.H{"error": err.Error(), "code": code, "ticks": ticks, "accepted": len(ticks)})
			return
		}
		ticks = append(ticks, tick)
		if tick.Kind == territory.OutcomeClosed || tick.Kind == territory.OutcomeAborted {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"ticks": ticks, "accepted": len(ticks)})
}

// CancelTracking abandons the current attempt.
func (tc *TrackingController) CancelTracking(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	if err := tc.Tracker.Cancel(c.Request.Context(), userID); err != nil {
		writeTrackingError(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tracking cancelled"})
}

// StopTracking ends the attempt by hand and returns the verdict, if any.
func (tc *TrackingController) StopTracking(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	res, err := tc.Tracker.Stop(c.Request.Context(), userID)
	if err != nil {
		writeTrackingError(c, userID, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetSession returns the player's current session.
func (tc *TrackingController) GetSession(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	snap, found := tc.Tracker.Snapshot(userID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No tracking session", "code": "not_tracking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snap})
}
