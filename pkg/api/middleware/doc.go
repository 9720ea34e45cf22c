// Package middleware provides HTTP middleware for cross-cutting concerns of
// the gateway.
//
// # Middleware Chain
//
// The server wraps its mux in this order (outermost first):
//
//	Recovery -> RequestID -> Logging -> Metrics -> CORS -> Timeout -> MaxBodyBytes -> mux
//
// Every route is registered wrapped in Route, and protected routes add
// authentication and admission inside it:
//
//	Route -> auth.Middleware.Handle -> usage.Middleware -> RateLimit -> handler
//
// # Request Info
//
// Logging and Metrics run outside the mux, so they cannot see the matched
// pattern or the authenticated key directly. They install a RequestInfo
// holder in the context which Route and RateLimit fill in.
package middleware
