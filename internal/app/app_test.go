package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"github.com/desertthunder/spotigest/internal/capture"
	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
	"github.com/desertthunder/spotigest/internal/tasks"
	th "github.com/desertthunder/spotigest/internal/testing"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubOverlay struct {
	mu     sync.Mutex
	shown  int
	closed bool
	quitAt int
}

func (o *stubOverlay) Show(*gocv.Mat, []detector.Hand, models.GestureAction) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown++
	return o.quitAt == 0 || o.shown < o.quitAt
}

func (o *stubOverlay) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

type fixture struct {
	app      *App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	playback *th.MockPlayback
	clock    shared.Clock
}

func newFixture(t *testing.T, clock shared.Clock, overlay capture.Overlay) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	f := &fixture{
		camera:   capture.NewMockCamera(),
		detector: detector.NewMockDetector(),
		playback: th.NewMockPlayback(),
		clock:    clock,
	}
	f.playback.SetSnapshot(&models.PlaybackSnapshot{TrackID: "t", IsPlaying: true}, nil)

	retries := tasks.NewRetryScheduler(clock)
	t.Cleanup(func() {
		retries.Stop()
		retries.Wait()
	})
	dispatcher := tasks.NewDispatcher(f.playback, tasks.DispatcherOpts{Logger: logger, Retries: retries, Clock: clock})

	app, err := New(Config{
		Camera:       f.camera,
		Detector:     f.detector,
		Dispatcher:   dispatcher,
		Overlay:      overlay,
		Clock:        clock,
		Logger:       logger,
		FPS:          200,
		RetryTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.app = app
	return f
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, shared.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}

func TestProcessHands(t *testing.T) {
	t.Run("No Hand Dispatches Nothing", func(t *testing.T) {
		f := newFixture(t, th.NewFakeClock(epoch), nil)
		if got := f.app.ProcessHands(context.Background(), nil); !got.IsNone() {
			t.Errorf("expected NONE, got %v", got)
		}
		if n := len(f.playback.Calls()); n != 0 {
			t.Errorf("expected no playback calls, got %d", n)
		}
	})

	t.Run("Swipe Dispatches Next Once Per Cooldown", func(t *testing.T) {
		clock := th.NewFakeClock(epoch)
		f := newFixture(t, clock, nil)
		hands := []detector.Hand{detector.ThumbSideways(0.15)}

		if got := f.app.ProcessHands(context.Background(), hands); got != models.NextTrack() {
			t.Fatalf("expected NEXT_TRACK, got %v", got)
		}
		for range 10 {
			clock.Advance(100 * time.Millisecond)
			f.app.ProcessHands(context.Background(), hands)
		}
		if n := len(f.playback.Calls("next")); n != 1 {
			t.Errorf("expected 1 next call within cooldown, got %d", n)
		}
		if n := len(f.playback.Calls("set_volume")); n != 0 {
			t.Errorf("held swipe must not change volume, got %d set_volume calls", n)
		}

		clock.Advance(time.Second + time.Millisecond)
		f.app.ProcessHands(context.Background(), hands)
		if n := len(f.playback.Calls("next")); n != 2 {
			t.Errorf("expected 2 next calls after cooldown, got %d", n)
		}
	})

	t.Run("Open Hand Pauses", func(t *testing.T) {
		f := newFixture(t, th.NewFakeClock(epoch), nil)
		f.app.ProcessHands(context.Background(), []detector.Hand{detector.OpenHand()})
		if n := len(f.playback.Calls("pause")); n != 1 {
			t.Errorf("expected a pause call, got %d", n)
		}
	})

	t.Run("Toggle Clears Cooldowns", func(t *testing.T) {
		f := newFixture(t, th.NewFakeClock(epoch), nil)
		hands := []detector.Hand{detector.ThumbSideways(-0.15)}

		f.app.ProcessHands(context.Background(), hands)
		if f.app.Toggle() {
			t.Fatal("Toggle should disable")
		}
		if !f.app.Toggle() {
			t.Fatal("Toggle should enable")
		}
		f.app.ProcessHands(context.Background(), hands)

		if n := len(f.playback.Calls("previous")); n != 2 {
			t.Errorf("expected cooldown reset after toggle, got %d previous calls", n)
		}
	})

	t.Run("Status", func(t *testing.T) {
		f := newFixture(t, th.NewFakeClock(epoch), nil)
		f.app.ProcessHands(context.Background(), nil)
		f.app.ProcessHands(context.Background(), []detector.Hand{detector.SpanHand(0.4)})

		s := f.app.Status()
		if !s.Enabled || s.Frames != 2 || s.HandFrames != 1 || s.Gestures != 1 {
			t.Errorf("unexpected status %+v", s)
		}
		if s.LastAction != "VOLUME_SET(80)" || !s.LastGestureAt.Equal(epoch) {
			t.Errorf("unexpected last action %q at %v", s.LastAction, s.LastGestureAt)
		}
		if s.Snapshot == nil || s.Snapshot.TrackID != "t" {
			t.Errorf("snapshot missing from status: %+v", s.Snapshot)
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("Stops On Cancel", func(t *testing.T) {
		f := newFixture(t, shared.RealClock{}, nil)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- f.app.Run(ctx) }()

		deadline := time.Now().Add(2 * time.Second)
		for f.detector.Calls() < 3 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected nil on cancel, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not stop")
		}
		if !f.detector.Closed() || f.camera.IsOpen() {
			t.Error("detector and camera should be closed")
		}
	})

	t.Run("Camera Failure Is Fatal After Timeout", func(t *testing.T) {
		f := newFixture(t, shared.RealClock{}, nil)
		f.camera.FailAlways()

		done := make(chan error, 1)
		go func() { done <- f.app.Run(context.Background()) }()

		select {
		case err := <-done:
			if !errors.Is(err, shared.ErrCameraUnavailable) {
				t.Errorf("expected ErrCameraUnavailable, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not give up")
		}
	})

	t.Run("Transient Read Errors Recover", func(t *testing.T) {
		f := newFixture(t, shared.RealClock{}, nil)
		f.camera.FailReads(errors.New("glitch"), errors.New("glitch"))
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		if err := f.app.Run(ctx); err != nil {
			t.Errorf("expected recovery, got %v", err)
		}
		if f.detector.Calls() == 0 {
			t.Error("detector never ran after recovery")
		}
	})

	t.Run("Open Failure", func(t *testing.T) {
		f := newFixture(t, shared.RealClock{}, nil)
		f.camera.FailOpen(shared.ErrCameraUnavailable)
		if err := f.app.Run(context.Background()); !errors.Is(err, shared.ErrCameraUnavailable) {
			t.Errorf("expected ErrCameraUnavailable, got %v", err)
		}
	})

	t.Run("Overlay Close Ends Loop", func(t *testing.T) {
		overlay := &stubOverlay{quitAt: 3}
		f := newFixture(t, shared.RealClock{}, overlay)
		f.detector.SetHands(detector.OpenHand())

		done := make(chan error, 1)
		go func() { done <- f.app.Run(context.Background()) }()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected nil, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run ignored overlay close")
		}
		if !overlay.closed {
			t.Error("overlay should be closed")
		}
		if n := len(f.playback.Calls("pause")); n != 1 {
			t.Errorf("expected one pause within cooldown, got %d", n)
		}
	})

	t.Run("Paused Skips Frames", func(t *testing.T) {
		f := newFixture(t, shared.RealClock{}, nil)
		f.app.SetEnabled(false)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if err := f.app.Run(ctx); err != nil {
			t.Fatal(err)
		}
		if f.camera.Reads() != 0 {
			t.Errorf("paused loop read %d frames", f.camera.Reads())
		}
	})
}
