package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/services"
	"github.com/desertthunder/spotigest/internal/shared"
)

// DefaultMaxRetries caps how many times a rate-limited command is attempted in total.
const DefaultMaxRetries = 3

// Recorder persists dispatch history. Implemented by the SQLite repositories.
type Recorder interface {
	RecordDispatch(ctx context.Context, record *models.DispatchRecord) error
	RememberDevices(ctx context.Context, devices []models.Device) error
}

// DispatchResult is the synchronous outcome of [Dispatcher.Dispatch].
type DispatchResult struct {
	Action  models.GestureAction
	Outcome models.Outcome
	Attempt int
	Err     error // Classified remote error; nil on success or skip
}

// DispatcherOpts holds the optional collaborators of a [Dispatcher].
type DispatcherOpts struct {
	Logger     *log.Logger
	Recorder   Recorder
	Retries    *RetryScheduler
	MaxRetries int
	Clock      shared.Clock
	Updates    chan<- StatusUpdate
}

// Dispatcher maps gesture events to playback commands and absorbs their failures.
//
// Dispatch is called from the frame loop; rate-limit retries call back into the dispatcher
// from scheduler goroutines, so the snapshot and fallback device sit behind mu. No remote
// call is made while mu is held.
type Dispatcher struct {
	playback   services.Playback
	logger     *log.Logger
	recorder   Recorder
	retries    *RetryScheduler
	maxRetries int
	clock      shared.Clock
	updates    chan<- StatusUpdate

	mu        sync.Mutex
	snapshot  *models.PlaybackSnapshot
	fallback  string
	volumeGen uint64
}

func NewDispatcher(playback services.Playback, opts DispatcherOpts) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.Retries == nil {
		opts.Retries = NewRetryScheduler(opts.Clock)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	return &Dispatcher{
		playback:   playback,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
		retries:    opts.Retries,
		maxRetries: opts.MaxRetries,
		clock:      opts.Clock,
		updates:    opts.Updates,
	}
}

// Snapshot returns a copy of the last playback snapshot, or nil.
func (d *Dispatcher) Snapshot() *models.PlaybackSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.snapshot == nil {
		return nil
	}
	s := *d.snapshot
	return &s
}

// FallbackDevice returns the device used when Spotify reports no active device.
func (d *Dispatcher) FallbackDevice() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fallback
}

// SetFallbackDevice pins commands to deviceID. An empty id lets Spotify pick the active device.
func (d *Dispatcher) SetFallbackDevice(deviceID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = deviceID
}

// Retries returns the scheduler used for rate-limited commands.
func (d *Dispatcher) Retries() *RetryScheduler {
	return d.retries
}

// Dispatch sends the command for ev. It never returns an error: failures are classified,
// handled and reported in the result.
//
// A new VOLUME_SET supersedes any volume retry still waiting on Retry-After.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.GestureEvent) DispatchResult {
	var gen uint64
	if ev.Action.Kind() == models.ActionVolumeSet {
		gen = d.supersedeVolume()
	}
	return d.attempt(ctx, ev.Action, 1, gen)
}

// supersedeVolume starts a new volume generation and cancels the pending volume retry.
func (d *Dispatcher) supersedeVolume() uint64 {
	d.mu.Lock()
	d.volumeGen++
	gen := d.volumeGen
	d.mu.Unlock()

	if d.retries.Cancel(retryKey(models.VolumeSet(0))) {
		d.logger.Debug("cancelled stale volume retry")
	}
	return gen
}

func (d *Dispatcher) volumeCurrent(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volumeGen == gen
}

func retryKey(action models.GestureAction) string {
	return action.Kind().String()
}

func (d *Dispatcher) attempt(ctx context.Context, action models.GestureAction, attempt int, gen uint64) DispatchResult {
	if action.IsNone() {
		return DispatchResult{Action: action, Outcome: models.OutcomeSkipped, Attempt: attempt}
	}

	snapshot := d.refreshSnapshot(ctx)
	device := d.FallbackDevice()
	logger := d.logger.With("action", action.String(), "attempt", attempt)

	if snapshot != nil {
		logger.Info("dispatching", "track", snapshot.TrackName, "playing", snapshot.IsPlaying, "device", snapshot.DeviceName)
	} else {
		logger.Info("dispatching", "snapshot", "none")
	}

	if action.Kind() == models.ActionPlayPause && snapshot == nil {
		logger.Warn("playback state unavailable, skipping play/pause")
		d.finish(ctx, action, attempt, snapshot, device, models.OutcomeSkipped, nil,
			skippedUpdate(action, attempt, "playback state unavailable"))
		return DispatchResult{Action: action, Outcome: models.OutcomeSkipped, Attempt: attempt}
	}

	err := d.invoke(ctx, action, snapshot, device)
	if err == nil {
		d.finish(ctx, action, attempt, snapshot, device, models.OutcomeOK, nil, dispatchedUpdate(action, attempt))
		return DispatchResult{Action: action, Outcome: models.OutcomeOK, Attempt: attempt}
	}

	outcome := d.handleError(ctx, logger, action, attempt, gen, err)
	kind := services.KindOf(err).String()
	d.finish(ctx, action, attempt, snapshot, device, outcome, err, failedUpdate(action, attempt, outcome, kind, err))
	return DispatchResult{Action: action, Outcome: outcome, Attempt: attempt, Err: err}
}

func (d *Dispatcher) invoke(ctx context.Context, action models.GestureAction, snapshot *models.PlaybackSnapshot, device string) error {
	switch action.Kind() {
	case models.ActionNextTrack:
		return d.playback.Next(ctx, device)
	case models.ActionPrevTrack:
		return d.playback.Previous(ctx, device)
	case models.ActionPlayPause:
		if snapshot.IsPlaying {
			return d.playback.Pause(ctx, device)
		}
		return d.playback.Resume(ctx, device)
	case models.ActionVolumeSet:
		return d.playback.SetVolume(ctx, action.Volume(), device)
	default:
		return fmt.Errorf("%w: action %s", shared.ErrInvalidInput, action)
	}
}

// refreshSnapshot fetches the current playback state. A failed or empty fetch clears the
// stored snapshot and returns nil.
func (d *Dispatcher) refreshSnapshot(ctx context.Context) *models.PlaybackSnapshot {
	snapshot, err := d.playback.CurrentPlayback(ctx)
	switch {
	case err != nil:
		d.logger.Warn("could not fetch playback state", "error", err, "kind", services.KindOf(err))
		snapshot = nil
	case snapshot == nil:
		d.logger.Debug("no playback state reported")
	}

	d.mu.Lock()
	d.snapshot = snapshot
	d.mu.Unlock()
	return snapshot
}

// handleError applies the recovery for the error's kind and returns the resulting outcome.
func (d *Dispatcher) handleError(ctx context.Context, logger *log.Logger, action models.GestureAction, attempt int, gen uint64, err error) models.Outcome {
	kind := services.KindOf(err)
	logger = logger.With("kind", kind.String(), "error", err)

	switch kind {
	case services.KindNoActiveDevice:
		logger.Warn("no active device")
		d.probeDevices(ctx)
		return models.OutcomeDropped
	case services.KindRateLimited:
		return d.scheduleRetry(ctx, logger, action, attempt, gen, err)
	case services.KindPremiumRequired:
		logger.Error("playback control requires Spotify Premium")
	case services.KindRestrictionViolated:
		logger.Info("command not allowed in current playback state")
	case services.KindAuthExpired:
		logger.Error("authorization expired, run 'spotigest auth login'")
	default:
		if errors.Is(err, context.Canceled) {
			logger.Debug("dispatch cancelled")
			return models.OutcomeDropped
		}
		logger.Error("playback command failed")
	}
	return models.OutcomeDropped
}

func (d *Dispatcher) scheduleRetry(ctx context.Context, logger *log.Logger, action models.GestureAction, attempt int, gen uint64, err error) models.Outcome {
	if attempt >= d.maxRetries {
		logger.Error("rate limited, giving up", "max_retries", d.maxRetries)
		return models.OutcomeDropped
	}

	delay := services.DefaultRetryAfter
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.RetryAfter > 0 {
		delay = apiErr.RetryAfter
	}

	scheduled := d.retries.Schedule(retryKey(action), delay, func() {
		if action.Kind() == models.ActionVolumeSet && !d.volumeCurrent(gen) {
			logger.Debug("volume retry superseded")
			d.finish(ctx, action, attempt+1, nil, d.FallbackDevice(), models.OutcomeSkipped, nil,
				skippedUpdate(action, attempt+1, "superseded by a newer volume"))
			return
		}
		d.attempt(ctx, action, attempt+1, gen)
	})
	if !scheduled {
		logger.Warn("rate limited, retry already pending")
		return models.OutcomeDropped
	}
	logger.Warn("rate limited, retry scheduled", "retry_after", delay)
	return models.OutcomeRetryScheduled
}

// probeDevices picks a fallback device, preferring one Spotify already marks active.
func (d *Dispatcher) probeDevices(ctx context.Context) {
	devices, err := d.playback.Devices(ctx)
	if err != nil {
		d.logger.Error("could not list devices", "error", err, "kind", services.KindOf(err))
		return
	}
	if d.recorder != nil && len(devices) > 0 {
		if err := d.recorder.RememberDevices(ctx, devices); err != nil {
			d.logger.Debug("could not store devices", "error", err)
		}
	}

	target, ok := pickDevice(devices)
	if !ok {
		d.logger.Warn("no Spotify devices available, start playback on a device manually")
		return
	}

	d.SetFallbackDevice(target.ID)
	d.logger.Info("using fallback device", "device", target.Name, "id", target.ID, "type", target.Type)
}

func pickDevice(devices []models.Device) (models.Device, bool) {
	for _, dev := range devices {
		if dev.IsActive && dev.ID != "" {
			return dev, true
		}
	}
	for _, dev := range devices {
		if dev.ID != "" {
			return dev, true
		}
	}
	return models.Device{}, false
}

func (d *Dispatcher) finish(
	ctx context.Context,
	action models.GestureAction,
	attempt int,
	snapshot *models.PlaybackSnapshot,
	device string,
	outcome models.Outcome,
	err error,
	update StatusUpdate,
) {
	if d.recorder != nil {
		record := models.NewDispatchRecord(action, outcome)
		record.Attempt = attempt
		record.DeviceID = device
		if snapshot != nil {
			record.TrackID = snapshot.TrackID
			record.WasPlaying = snapshot.IsPlaying
			if record.DeviceID == "" {
				record.DeviceID = snapshot.DeviceID
			}
		}
		if err != nil {
			record.ErrorKind = services.KindOf(err).String()
			record.ErrorMessage = err.Error()
		}
		if rerr := d.recorder.RecordDispatch(ctx, record); rerr != nil {
			d.logger.Debug("could not record dispatch", "error", rerr)
		}
	}

	update.Snapshot = snapshot
	update.FallbackDevice = d.FallbackDevice()
	update.At = d.clock.Now()
	d.sendUpdate(update)
}

// sendUpdate publishes without blocking; updates are dropped when the channel is full.
func (d *Dispatcher) sendUpdate(update StatusUpdate) {
	if d.updates == nil {
		return
	}
	select {
	case d.updates <- update:
	default:
	}
}
