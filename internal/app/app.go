// Package app runs the capture loop: read a frame, detect hands, debounce a gesture and
// dispatch it to Spotify.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"github.com/desertthunder/spotigest/internal/capture"
	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/gesture"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
	"github.com/desertthunder/spotigest/internal/tasks"
)

// DefaultRetryTimeout is how long the loop tolerates failed frame reads before giving up.
const DefaultRetryTimeout = 10 * time.Second

// Config wires the collaborators of an [App]. Overlay may be nil.
type Config struct {
	Camera       capture.Camera
	Detector     detector.Detector
	Debouncer    *gesture.Debouncer
	Dispatcher   *tasks.Dispatcher
	Overlay      capture.Overlay
	Clock        shared.Clock
	Logger       *log.Logger
	FPS          int
	RetryTimeout time.Duration
}

// Status is a point-in-time view of the loop for the status endpoint and TUI.
type Status struct {
	Enabled        bool                     `json:"enabled"`
	Frames         int64                    `json:"frames"`
	HandFrames     int64                    `json:"hand_frames"`
	Gestures       int64                    `json:"gestures"`
	LastAction     string                   `json:"last_action"`
	LastGestureAt  time.Time                `json:"last_gesture_at,omitzero"`
	Snapshot       *models.PlaybackSnapshot `json:"snapshot,omitempty"`
	FallbackDevice string                   `json:"fallback_device,omitempty"`
}

// App owns the frame loop. Run must be called at most once.
type App struct {
	camera       capture.Camera
	detector     detector.Detector
	debouncer    *gesture.Debouncer
	dispatcher   *tasks.Dispatcher
	overlay      capture.Overlay
	clock        shared.Clock
	logger       *log.Logger
	fps          int
	retryTimeout time.Duration

	mu            sync.RWMutex
	enabled       bool
	resetPending  bool
	frames        int64
	handFrames    int64
	gestures      int64
	lastAction    models.GestureAction
	lastGestureAt time.Time
}

func New(cfg Config) (*App, error) {
	if cfg.Camera == nil || cfg.Detector == nil || cfg.Dispatcher == nil {
		return nil, fmt.Errorf("%w: app needs a camera, a detector and a dispatcher", shared.ErrMissingConfig)
	}
	if cfg.Debouncer == nil {
		cfg.Debouncer = gesture.NewDebouncer(gesture.Classifier{}, gesture.DefaultCooldowns())
	}
	if cfg.Clock == nil {
		cfg.Clock = shared.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = capture.DefaultFPS
	}
	if cfg.RetryTimeout <= 0 {
		cfg.RetryTimeout = DefaultRetryTimeout
	}

	return &App{
		camera:       cfg.Camera,
		detector:     cfg.Detector,
		debouncer:    cfg.Debouncer,
		dispatcher:   cfg.Dispatcher,
		overlay:      cfg.Overlay,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		fps:          cfg.FPS,
		retryTimeout: cfg.RetryTimeout,
		enabled:      true,
	}, nil
}

// SetEnabled pauses or resumes detection. Cooldowns are cleared on the next processed frame.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		a.resetPending = true
	}
	a.enabled = enabled
}

// Toggle flips detection and returns the new state.
func (a *App) Toggle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = !a.enabled
	a.resetPending = true
	return a.enabled
}

func (a *App) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

func (a *App) Status() Status {
	a.mu.RLock()
	s := Status{
		Enabled:       a.enabled,
		Frames:        a.frames,
		HandFrames:    a.handFrames,
		Gestures:      a.gestures,
		LastAction:    a.lastAction.String(),
		LastGestureAt: a.lastGestureAt,
	}
	a.mu.RUnlock()

	s.Snapshot = a.dispatcher.Snapshot()
	s.FallbackDevice = a.dispatcher.FallbackDevice()
	return s
}

// Run opens the camera and processes frames at the configured rate until ctx is cancelled or
// the overlay window is closed, both of which return nil. Frame reads that keep failing for
// longer than the retry timeout end the loop with an error wrapping [shared.ErrCameraUnavailable].
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer a.shutdown()

	interval := time.Second / time.Duration(a.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("capture started", "fps", a.fps)

	var failingSince time.Time
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("capture stopped")
			return nil
		case <-ticker.C:
		}

		if !a.Enabled() {
			continue
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			now := a.clock.Now()
			if failingSince.IsZero() {
				failingSince = now
				a.logger.Warn("frame read failed, retrying", "error", err, "timeout", a.retryTimeout)
			}
			if now.Sub(failingSince) >= a.retryTimeout {
				if errors.Is(err, shared.ErrCameraUnavailable) {
					return fmt.Errorf("no frames for %s: %w", a.retryTimeout, err)
				}
				return fmt.Errorf("%w: no frames for %s: %v", shared.ErrCameraUnavailable, a.retryTimeout, err)
			}
			continue
		}
		if !failingSince.IsZero() {
			a.logger.Info("frame reads recovered")
			failingSince = time.Time{}
		}

		keepOpen := a.processFrame(ctx, frame)
		frame.Close()
		if !keepOpen {
			a.logger.Info("overlay closed")
			return nil
		}
	}
}

// processFrame runs detection on frame and reports whether the loop should continue.
func (a *App) processFrame(ctx context.Context, frame *gocv.Mat) bool {
	hands, err := a.detector.Detect(frame)
	if err != nil {
		a.logger.Warn("hand detection failed", "error", err)
		return true
	}

	action := a.ProcessHands(ctx, hands)

	if a.overlay != nil {
		return a.overlay.Show(frame, hands, action)
	}
	return true
}

// ProcessHands debounces hands at the current clock time and dispatches the resulting
// gesture, if any. It returns the debounced action.
func (a *App) ProcessHands(ctx context.Context, hands []detector.Hand) models.GestureAction {
	now := a.clock.Now()

	a.mu.Lock()
	if a.resetPending {
		a.debouncer.Reset()
		a.resetPending = false
	}
	a.frames++
	if len(hands) > 0 {
		a.handFrames++
	}
	a.mu.Unlock()

	action := a.debouncer.Evaluate(hands, now)
	if action.IsNone() {
		return action
	}

	a.mu.Lock()
	a.gestures++
	a.lastAction = action
	a.lastGestureAt = now
	a.mu.Unlock()

	a.logger.Debug("gesture", "action", action.String())
	a.dispatcher.Dispatch(ctx, models.GestureEvent{Action: action, At: now})
	return action
}

func (a *App) shutdown() {
	if a.overlay != nil {
		if err := a.overlay.Close(); err != nil {
			a.logger.Debug("overlay close failed", "error", err)
		}
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("detector close failed", "error", err)
	}
	if err := a.camera.Close(); err != nil {
		a.logger.Warn("camera close failed", "error", err)
	}
}
