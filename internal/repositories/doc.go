// Package repositories implements SQLite persistence for dispatch history.
//
// Key Implementations:
//   - [DispatchRepository] : one row per dispatch attempt, with soft deletes
//   - [DeviceRepository] : playback devices seen while probing for a fallback target
//   - [HistoryRecorder] : adapts both repositories to the dispatcher's Recorder interface
//
// Sequence numbers provide stable, human-readable ordering (dispatch #42) independent of
// UUIDs and timestamps. [NextSequence] atomically increments a named counter in the
// sequences table.
package repositories
