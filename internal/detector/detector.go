package detector

import (
	"gocv.io/x/gocv"

	"github.com/desertthunder/spotigest/internal/shared"
)

// Detector finds hands in a video frame.
type Detector interface {
	// Detect returns the hands found in frame, most confident first.
	// An empty slice means no hand is visible.
	Detect(frame *gocv.Mat) ([]Hand, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds the options passed to the landmark service.
type Config struct {
	Python        string
	Script        string
	MaxHands      int
	MinConfidence float64
}

// ConfigFrom builds a detector Config from the [detector] config section. Only one hand is
// tracked.
func ConfigFrom(c shared.DetectorConfig) Config {
	return Config{
		Python:        c.Python,
		Script:        c.Script,
		MaxHands:      1,
		MinConfidence: c.MinConfidence,
	}
}
