// Package server provides the loopback HTTP listener used during Spotify authorization.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] captures the single redirect the authorization server sends back. It does not validate
// or exchange anything: the full callback URL is handed to the authenticator, which checks state and code.
// Only the first request is captured; later ones are refused.
//
// # Loopback Consent
//
// [LoopbackConsent] starts a temporary server on the host and port of the configured redirect URI, opens the
// authorization URL in the browser and waits for the callback (or the context) before shutting down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
