// Package gesture turns hand landmarks into a debounced stream of playback actions.
//
// The classifier functions are pure: they read a [detector.Hand] and never modify it.
// [Debouncer] holds the only state, the per-kind cooldown clock.
package gesture

import (
	"math"

	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/models"
)

const (
	// DefaultSwipeThreshold is the horizontal thumb displacement, in normalized frame units,
	// that counts as a swipe.
	DefaultSwipeThreshold = 0.1

	// DefaultVolumeScale maps the thumb-to-pinky distance to a volume percentage.
	DefaultVolumeScale = 200.0
)

// Classifier holds the geometry thresholds. The zero value uses the defaults.
type Classifier struct {
	SwipeThreshold float64
	VolumeScale    float64
}

func (c Classifier) swipeThreshold() float64 {
	if c.SwipeThreshold <= 0 {
		return DefaultSwipeThreshold
	}
	return c.SwipeThreshold
}

func (c Classifier) volumeScale() float64 {
	if c.VolumeScale <= 0 {
		return DefaultVolumeScale
	}
	return c.VolumeScale
}

// CountExtendedFingers counts fingers whose tip is above the joint two indices lower.
// Smaller y is higher in the frame, so the check is orientation sensitive: a hand held
// sideways or upside down miscounts.
func CountExtendedFingers(hand detector.Hand) int {
	n := 0
	for _, tip := range detector.FingerTips {
		if hand.At(tip).Y < hand.At(tip-2).Y {
			n++
		}
	}
	return n
}

// IsOpenHand reports whether all five fingers are extended.
func IsOpenHand(hand detector.Hand) bool {
	return CountExtendedFingers(hand) == 5
}

// ThumbDirection classifies a horizontal thumb swipe using the default threshold.
func ThumbDirection(hand detector.Hand) models.GestureAction {
	return Classifier{}.ThumbDirection(hand)
}

// ThumbDirection compares the thumb tip to the thumb MCP along x. A displacement of exactly
// the threshold is not a swipe.
func (c Classifier) ThumbDirection(hand detector.Hand) models.GestureAction {
	dx := hand.At(detector.ThumbTip).X - hand.At(detector.ThumbMCP).X
	threshold := c.swipeThreshold()

	switch {
	case dx > threshold:
		return models.NextTrack()
	case dx < -threshold:
		return models.PrevTrack()
	default:
		return models.NoAction()
	}
}

// EuclideanDistance is the distance between p1 and p2 in the image plane. Depth is ignored.
func EuclideanDistance(p1, p2 detector.Landmark) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// VolumeFromSpan maps the thumb-to-pinky distance to a percentage using the default scale.
func VolumeFromSpan(hand detector.Hand) int {
	return Classifier{}.VolumeFromSpan(hand)
}

// VolumeFromSpan scales the thumb-to-pinky distance and clamps it to [0, 100].
func (c Classifier) VolumeFromSpan(hand detector.Hand) int {
	span := EuclideanDistance(hand.At(detector.ThumbTip), hand.At(detector.PinkyTip))
	v := math.Round(span * c.volumeScale())
	return int(max(0, min(100, v)))
}
