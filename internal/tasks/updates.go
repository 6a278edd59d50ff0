package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotigest/internal/models"
)

// StatusUpdate describes one dispatch attempt for the CLI, TUI and websocket layers.
type StatusUpdate struct {
	Action         models.GestureAction     `json:"action"`                    // Action that was dispatched
	Outcome        models.Outcome           `json:"outcome"`                   // What happened to it
	ErrorKind      string                   `json:"error_kind,omitempty"`      // Error classification, empty on success
	Message        string                   `json:"message"`                   // Human-readable message for display
	Attempt        int                      `json:"attempt"`                   // 1 for the first try, >1 for retries
	Snapshot       *models.PlaybackSnapshot `json:"snapshot,omitempty"`        // Snapshot taken before the call, may be nil
	FallbackDevice string                   `json:"fallback_device,omitempty"` // Device targeted when no device is active
	At             time.Time                `json:"at"`
}

// IsError reports whether the attempt failed.
func (u StatusUpdate) IsError() bool {
	return u.ErrorKind != ""
}

func dispatchedUpdate(action models.GestureAction, attempt int) StatusUpdate {
	msg := fmt.Sprintf("%s sent", action)
	if attempt > 1 {
		msg = fmt.Sprintf("%s sent (attempt %d)", action, attempt)
	}
	return StatusUpdate{Action: action, Outcome: models.OutcomeOK, Attempt: attempt, Message: msg}
}

func skippedUpdate(action models.GestureAction, attempt int, reason string) StatusUpdate {
	return StatusUpdate{
		Action:  action,
		Outcome: models.OutcomeSkipped,
		Attempt: attempt,
		Message: fmt.Sprintf("%s skipped: %s", action, reason),
	}
}

func failedUpdate(action models.GestureAction, attempt int, outcome models.Outcome, kind string, err error) StatusUpdate {
	verb := "dropped"
	if outcome == models.OutcomeRetryScheduled {
		verb = "retry scheduled"
	}
	return StatusUpdate{
		Action:    action,
		Outcome:   outcome,
		ErrorKind: kind,
		Attempt:   attempt,
		Message:   fmt.Sprintf("%s %s (%s): %v", action, verb, kind, err),
	}
}
