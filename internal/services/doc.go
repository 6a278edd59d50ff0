// Package services talks to the Spotify Web API on behalf of the gesture daemon.
//
// # Playback Interface
//
// [Playback] is the contract the dispatcher drives: next, previous, pause, resume, set volume,
// current playback and device listing. Every command takes an optional device id.
//
// # Spotify Implementation
//
// [SpotifyClient] implements Playback over HTTP. Calls are paced by a [rate.Limiter].
// A 401 response triggers one forced token refresh and a single repeat of the request.
//
// # Auth Session
//
// [Session] owns the OAuth2 token. The (token, http client) pair is swapped atomically, so the
// frame loop keeps calling while the background refresher replaces it. Every new access token is
// reported through the callback registered with [Session.SetTokenRefreshCallback]; the CLI uses it
// to persist tokens into config.toml.
//
// # Error Handling
//
// Non-2xx responses become [*APIError] values carrying an [ErrorKind]:
//   - [KindAuthExpired] : 401, or a failed token refresh
//   - [KindPremiumRequired] : 403 with a premium reason
//   - [KindRestrictionViolated] : any other 403
//   - [KindNoActiveDevice] : 404
//   - [KindRateLimited] : 429, with RetryAfter from the Retry-After header
//   - [KindUnclassified] : everything else
//
// Each kind unwraps to a sentinel in the shared package, so callers may use either
// [AsAPIError] or errors.Is(err, shared.ErrRateLimited).
package services
