package gesture

import (
	"time"

	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
)

// Default cooldown windows.
const (
	DefaultActionCooldown = 2 * time.Second
	DefaultVolumeCooldown = 500 * time.Millisecond
)

// Cooldowns is the minimum spacing between two emissions of the same action kind.
type Cooldowns struct {
	Next      time.Duration
	Prev      time.Duration
	PlayPause time.Duration
	Volume    time.Duration
}

// DefaultCooldowns returns 2s for the discrete actions and 500ms for volume.
func DefaultCooldowns() Cooldowns {
	return Cooldowns{
		Next:      DefaultActionCooldown,
		Prev:      DefaultActionCooldown,
		PlayPause: DefaultActionCooldown,
		Volume:    DefaultVolumeCooldown,
	}
}

// CooldownsFrom reads the [gestures] config section.
func CooldownsFrom(c shared.GesturesConfig) Cooldowns {
	return Cooldowns{
		Next:      c.NextCooldown.Duration,
		Prev:      c.PrevCooldown.Duration,
		PlayPause: c.PlayPauseCooldown.Duration,
		Volume:    c.VolumeCooldown.Duration,
	}
}

func (c Cooldowns) of(kind models.ActionKind) time.Duration {
	switch kind {
	case models.ActionNextTrack:
		return c.Next
	case models.ActionPrevTrack:
		return c.Prev
	case models.ActionPlayPause:
		return c.PlayPause
	case models.ActionVolumeSet:
		return c.Volume
	}
	return 0
}

// Debouncer turns per-frame hands into at most one action per frame, enforcing a cooldown
// per action kind. Evaluation order, and therefore priority, is navigation, then play/pause,
// then volume.
//
// A Debouncer is owned by the frame loop and is not safe for concurrent use.
type Debouncer struct {
	classifier Classifier
	cooldowns  Cooldowns
	current    models.GestureAction
	lastFired  map[models.ActionKind]time.Time
	lastVolume *int
}

// NewDebouncer creates a Debouncer. No cooldown has started, so the first qualifying
// gesture fires immediately.
func NewDebouncer(classifier Classifier, cooldowns Cooldowns) *Debouncer {
	return &Debouncer{
		classifier: classifier,
		cooldowns:  cooldowns,
		lastFired:  make(map[models.ActionKind]time.Time, 4),
	}
}

// Current returns the action emitted by the most recent Evaluate call.
func (d *Debouncer) Current() models.GestureAction {
	return d.current
}

// Evaluate classifies the first hand in hands at time now. It returns NONE when no hand is
// visible, when nothing qualifies, or when the qualifying kind is cooling down. Volume is
// only read from hands that show neither a swipe nor an open palm.
func (d *Debouncer) Evaluate(hands []detector.Hand, now time.Time) models.GestureAction {
	d.current = models.NoAction()
	if len(hands) == 0 {
		return d.current
	}
	hand := hands[0]

	// A held discrete gesture owns the frame even while cooling down, so its thumb/pinky
	// span never leaks out as a volume change.
	if dir := d.classifier.ThumbDirection(hand); !dir.IsNone() && CountExtendedFingers(hand) < 2 {
		if d.elapsed(dir.Kind(), now) {
			return d.emit(dir, now)
		}
		return d.current
	}

	if IsOpenHand(hand) {
		if d.elapsed(models.ActionPlayPause, now) {
			return d.emit(models.PlayPause(), now)
		}
		return d.current
	}

	if d.elapsed(models.ActionVolumeSet, now) {
		v := d.classifier.VolumeFromSpan(hand)
		if d.current.IsNone() && (d.lastVolume == nil || *d.lastVolume != v) {
			d.lastVolume = &v
			return d.emit(models.VolumeSet(v), now)
		}
	}

	return d.current
}

// Reset clears all cooldowns and the remembered volume.
func (d *Debouncer) Reset() {
	d.current = models.NoAction()
	clear(d.lastFired)
	d.lastVolume = nil
}

// elapsed reports whether kind may fire at now. A kind that never fired has elapsed.
func (d *Debouncer) elapsed(kind models.ActionKind, now time.Time) bool {
	last, ok := d.lastFired[kind]
	if !ok {
		return true
	}
	return now.Sub(last) > d.cooldowns.of(kind)
}

func (d *Debouncer) emit(action models.GestureAction, now time.Time) models.GestureAction {
	d.lastFired[action.Kind()] = now
	d.current = action
	return action
}
