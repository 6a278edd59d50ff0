package models

import (
	"fmt"
	"time"
)

// PlaybackSnapshot is the remote player state captured just before a command.
type PlaybackSnapshot struct {
	TrackID    string
	TrackName  string
	Artists    []string
	IsPlaying  bool
	DeviceID   string
	DeviceName string
	Volume     int
	ProgressMs int
	FetchedAt  time.Time
}

func (s PlaybackSnapshot) String() string {
	state := "paused"
	if s.IsPlaying {
		state = "playing"
	}
	if s.TrackName == "" {
		return fmt.Sprintf("nothing (%s)", state)
	}
	return fmt.Sprintf("%s (%s)", s.TrackName, state)
}

// Device is a playback target registered to the account.
type Device struct {
	ID            string
	Name          string
	Type          string
	IsActive      bool
	IsRestricted  bool
	VolumePercent int
	LastSeenAt    time.Time
}
