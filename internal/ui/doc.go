// Package ui implements the live terminal monitor using bubbletea's Elm architecture.
//
// The (view) [Model] shows:
//   - whether detection is running or paused
//   - the last debounced gesture and the playback snapshot taken before it
//   - the fallback device picked after a "no active device" error
//   - per-outcome dispatch counters and a scrolling list of recent dispatches
//
// Dispatch updates arrive on a channel and are turned into messages of the Msg union type;
// a tick refreshes the status panel from the [Controller]. Keys: p pauses or resumes
// detection, c clears the list, q quits.
package ui
