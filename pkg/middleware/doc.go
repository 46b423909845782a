// Package middleware provides the HTTP middleware wrapped around the
// dispatcher:
//
//   - RequestID assigns every request an id (X-Request-Id)
//   - Logging writes one access line per request
//   - Tracing starts an OpenTelemetry server span per request
//   - Metrics records Prometheus request counts and durations
//
// Each middleware labels requests with the name of the dispatch route that
// served them:
//
//	h := middleware.Chain(app,
//		middleware.RequestID(),
//		middleware.Tracing(),
//		middleware.Metrics(middleware.WithRegistry(reg)),
//		middleware.Logging(logger),
//	)
//
// Metrics are exposed with promhttp on a separate listener.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with mws. The first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
