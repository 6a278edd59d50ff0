package services

import (
	"context"

	"github.com/desertthunder/spotigest/internal/models"
)

// Playback is the remote player contract the dispatcher drives. Every command accepts an
// optional device id; empty targets the active device.
type Playback interface {
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	Pause(ctx context.Context, deviceID string) error
	Resume(ctx context.Context, deviceID string) error
	SetVolume(ctx context.Context, percent int, deviceID string) error

	// CurrentPlayback returns nil without error when nothing is playing.
	CurrentPlayback(ctx context.Context) (*models.PlaybackSnapshot, error)
	Devices(ctx context.Context) ([]models.Device, error)
}

// Profiler is implemented by clients that can report the logged-in account.
type Profiler interface {
	UserProfile(ctx context.Context) (*SpotifyUser, error)
}
