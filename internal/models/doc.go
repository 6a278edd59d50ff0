// Package models defines the value types that flow through the gesture pipeline and the
// persistent entities behind the dispatch history.
//
// The package contains two categories of types:
//
// 1. Pipeline values: immutable, produced per frame or per API call
//   - [GestureAction] : closed set of control actions, VOLUME_SET carrying a percentage
//   - [GestureEvent] : an emitted action stamped with the frame time
//   - [PlaybackSnapshot] : current track and play state reported by the remote player
//   - [Device] : a playback target known to the remote account
//
// 2. Persistent entities: database-backed models with full lifecycle management
//   - [DispatchRecord] : one dispatch attempt with its outcome and error classification
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
