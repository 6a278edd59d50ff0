package gesture

import (
	"testing"
	"time"

	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func hands(h ...detector.Hand) []detector.Hand { return h }

// swipeRight is a NEXT_TRACK gesture with one extended finger and a 0.15 thumb delta.
func swipeRight() detector.Hand {
	h := detector.ThumbSideways(0.15)
	pip := h.Landmarks[detector.IndexPIP]
	h.Landmarks[detector.IndexTip] = detector.Landmark{X: pip.X, Y: pip.Y - 0.05}
	return h
}

func TestDebouncer(t *testing.T) {
	t.Run("No Hand", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		if got := d.Evaluate(nil, epoch); !got.IsNone() {
			t.Errorf("expected NONE, got %v", got)
		}
	})

	t.Run("First Gesture Fires Immediately", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		if got := d.Evaluate(hands(detector.OpenHand()), epoch); got != models.PlayPause() {
			t.Errorf("expected PLAY_PAUSE, got %v", got)
		}
		if d.Current() != models.PlayPause() {
			t.Errorf("Current() = %v", d.Current())
		}
	})

	t.Run("Navigation Scenario", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		h := hands(swipeRight())

		if got := d.Evaluate(h, epoch); got != models.NextTrack() {
			t.Fatalf("expected NEXT_TRACK, got %v", got)
		}

		emissions := 0
		for ms := 100; ms <= 2000; ms += 100 {
			if got := d.Evaluate(h, epoch.Add(time.Duration(ms)*time.Millisecond)); got.Kind() == models.ActionNextTrack {
				emissions++
			}
		}
		if emissions != 0 {
			t.Errorf("expected suppression for 2s, got %d extra emissions", emissions)
		}

		if got := d.Evaluate(h, epoch.Add(2001*time.Millisecond)); got != models.NextTrack() {
			t.Errorf("expected NEXT_TRACK after cooldown, got %v", got)
		}
	})

	t.Run("Held Gesture Emits Once Per Window", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		h := hands(detector.OpenHand())

		count := 0
		for frame := range 30 {
			now := epoch.Add(time.Duration(frame) * 66 * time.Millisecond)
			if d.Evaluate(h, now) == models.PlayPause() {
				count++
			}
		}
		if count != 1 {
			t.Errorf("expected exactly one PLAY_PAUSE within ~2s, got %d", count)
		}
	})

	t.Run("Cooldown Boundary Is Exclusive", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		h := hands(detector.OpenHand())
		d.Evaluate(h, epoch)

		if got := d.Evaluate(h, epoch.Add(DefaultActionCooldown)); got == models.PlayPause() {
			t.Error("emission at exactly the cooldown should be suppressed")
		}
	})

	t.Run("Cooldowns Are Per Kind", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())

		if got := d.Evaluate(hands(swipeRight()), epoch); got != models.NextTrack() {
			t.Fatalf("expected NEXT_TRACK, got %v", got)
		}
		left := detector.ThumbSideways(-0.15)
		if got := d.Evaluate(hands(left), epoch.Add(100*time.Millisecond)); got != models.PrevTrack() {
			t.Errorf("PREV_TRACK has its own cooldown, got %v", got)
		}
		if got := d.Evaluate(hands(detector.OpenHand()), epoch.Add(200*time.Millisecond)); got != models.PlayPause() {
			t.Errorf("PLAY_PAUSE has its own cooldown, got %v", got)
		}
	})

	t.Run("Held Swipe Does Not Change Volume", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		h := hands(swipeRight())

		if got := d.Evaluate(h, epoch); got != models.NextTrack() {
			t.Fatalf("expected NEXT_TRACK, got %v", got)
		}
		for ms := 100; ms <= 2000; ms += 100 {
			if got := d.Evaluate(h, epoch.Add(time.Duration(ms)*time.Millisecond)); !got.IsNone() {
				t.Fatalf("at %dms expected NONE while the swipe cools down, got %v", ms, got)
			}
		}
	})

	t.Run("Held Open Hand Does Not Change Volume", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		h := hands(detector.OpenHand())

		d.Evaluate(h, epoch)
		for ms := 100; ms <= 2000; ms += 100 {
			if got := d.Evaluate(h, epoch.Add(time.Duration(ms)*time.Millisecond)); !got.IsNone() {
				t.Fatalf("at %dms expected NONE while play/pause cools down, got %v", ms, got)
			}
		}
	})

	t.Run("Volume Resumes After Discrete Gesture", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		d.Evaluate(hands(swipeRight()), epoch)

		if got := d.Evaluate(hands(detector.SpanHand(0.4)), epoch.Add(100*time.Millisecond)); got != models.VolumeSet(80) {
			t.Errorf("expected VOLUME_SET(80) once the hand changes, got %v", got)
		}
	})

	t.Run("Navigation Beats Volume", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		if got := d.Evaluate(hands(swipeRight()), epoch); got != models.NextTrack() {
			t.Errorf("expected NEXT_TRACK over VOLUME_SET, got %v", got)
		}
	})

	t.Run("Play Pause Beats Volume", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		if got := d.Evaluate(hands(detector.OpenHand()), epoch); got != models.PlayPause() {
			t.Errorf("expected PLAY_PAUSE over VOLUME_SET, got %v", got)
		}
	})

	t.Run("Swipe Needs Fewer Than Two Fingers", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		h := swipeRight()
		pip := h.Landmarks[detector.MiddlePIP]
		h.Landmarks[detector.MiddleTip] = detector.Landmark{X: pip.X, Y: pip.Y - 0.05}

		got := d.Evaluate(hands(h), epoch)
		if got.Kind() == models.ActionNextTrack {
			t.Errorf("two extended fingers must not navigate, got %v", got)
		}
		if got.Kind() != models.ActionVolumeSet {
			t.Errorf("expected fallthrough to VOLUME_SET, got %v", got)
		}
	})

	t.Run("Volume Scenario", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		h := hands(detector.SpanHand(0.4))

		if got := d.Evaluate(h, epoch); got != models.VolumeSet(80) {
			t.Fatalf("expected VOLUME_SET(80), got %v", got)
		}
		if got := d.Evaluate(h, epoch.Add(33*time.Millisecond)); !got.IsNone() {
			t.Errorf("expected NONE for repeated reading, got %v", got)
		}
	})

	t.Run("Volume Suppression", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		after := DefaultVolumeCooldown + time.Millisecond

		if got := d.Evaluate(hands(detector.SpanHand(0.3)), epoch); got != models.VolumeSet(60) {
			t.Fatalf("expected VOLUME_SET(60), got %v", got)
		}
		if got := d.Evaluate(hands(detector.SpanHand(0.35)), epoch.Add(100*time.Millisecond)); !got.IsNone() {
			t.Errorf("new value within cooldown should wait, got %v", got)
		}
		if got := d.Evaluate(hands(detector.SpanHand(0.3)), epoch.Add(after)); !got.IsNone() {
			t.Errorf("same value after cooldown should be suppressed, got %v", got)
		}
		if got := d.Evaluate(hands(detector.SpanHand(0.35)), epoch.Add(after+time.Millisecond)); got != models.VolumeSet(70) {
			t.Errorf("expected VOLUME_SET(70) after cooldown, got %v", got)
		}
	})

	t.Run("Suppressed Volume Does Not Restart Cooldown", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		d.Evaluate(hands(detector.SpanHand(0.3)), epoch)

		later := epoch.Add(DefaultVolumeCooldown + time.Millisecond)
		d.Evaluate(hands(detector.SpanHand(0.3)), later)

		if got := d.Evaluate(hands(detector.SpanHand(0.4)), later.Add(time.Millisecond)); got != models.VolumeSet(80) {
			t.Errorf("expected VOLUME_SET(80), got %v", got)
		}
	})

	t.Run("Only First Hand Counts", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		if got := d.Evaluate(hands(detector.SpanHand(0.4), detector.OpenHand()), epoch); got != models.VolumeSet(80) {
			t.Errorf("expected first hand to drive VOLUME_SET(80), got %v", got)
		}
	})

	t.Run("Frame Resets Current", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		d.Evaluate(hands(detector.OpenHand()), epoch)
		d.Evaluate(nil, epoch.Add(time.Millisecond))
		if !d.Current().IsNone() {
			t.Errorf("expected NONE after empty frame, got %v", d.Current())
		}
	})

	t.Run("Reset", func(t *testing.T) {
		d := NewDebouncer(Classifier{}, DefaultCooldowns())
		d.Evaluate(hands(detector.OpenHand()), epoch)
		d.Reset()
		if got := d.Evaluate(hands(detector.OpenHand()), epoch.Add(time.Millisecond)); got != models.PlayPause() {
			t.Errorf("expected PLAY_PAUSE after reset, got %v", got)
		}
	})

	t.Run("CooldownsFrom Config", func(t *testing.T) {
		c := CooldownsFrom(shared.DefaultConfig().Gestures)
		if c != DefaultCooldowns() {
			t.Errorf("config defaults %+v differ from package defaults %+v", c, DefaultCooldowns())
		}
	})
}
