// Package tasks turns debounced gestures into Spotify playback commands and runs the
// background work that keeps those commands flowing.
//
// # Dispatcher
//
// [Dispatcher.Dispatch] maps a [models.GestureEvent] to one remote call:
//
//	NEXT_TRACK    -> Next
//	PREV_TRACK    -> Previous
//	PLAY_PAUSE    -> Pause when the snapshot is playing, Resume otherwise
//	VOLUME_SET(v) -> SetVolume(v)
//	NONE          -> nothing
//
// Before each call the dispatcher refreshes its [models.PlaybackSnapshot]. Failures are
// classified with [services.KindOf] and never leave the dispatcher:
//   - no active device: probe the device list and remember a fallback target
//   - rate limited: hand the same command to the [RetryScheduler] after Retry-After
//   - everything else: log and drop
//
// # Status updates
//
// Every attempt is published as a [StatusUpdate] on an optional channel. Sends use select with
// default so a slow consumer (the TUI or the websocket hub) never stalls the frame loop.
//
// # Background
//
// [RetryScheduler] runs delayed retries, one pending per command key. [TokenRefresher] wakes
// on an interval and refreshes the OAuth token before it expires.
package tasks
