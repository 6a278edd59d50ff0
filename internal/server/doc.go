// Package server provides HTTP routing, middleware and the handlers behind the daemon's
// local HTTP surface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// method patterns on an [http.ServeMux]; [Middleware] wraps handlers with the first added
// outermost. [RequestLogger] and [Recoverer] are the stock middleware.
//
// # Handlers
//
//   - [OAuthHandler] : the authorization code callback used by "auth login". It validates
//     state, exchanges the code once and reports the token on a channel.
//   - [StatusHandler] : GET /status, the daemon status as JSON.
//   - [EventsHandler] : GET /events, a websocket feed of dispatch updates fed by a [Hub].
//
// Custom handlers implement [Handler], which adds Routes to the stdlib interface so a
// handler owns its own route definitions.
package server
