// Package shield provides the HTTP middleware stack of the vendas API:
// security headers, body limits, request tracing and token authentication.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack() {
//	    r.Use(mw)
//	}
//	r.Group(func(r chi.Router) {
//	    r.Use(shield.RequireToken(token))
//	    ...
//	})
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultAPIStack returns the middleware applied to every route.
// Order: HeadToGet → SecurityHeaders → MaxBody → TraceID.
func DefaultAPIStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(64 * 1024),
		TraceID,
	}
}
