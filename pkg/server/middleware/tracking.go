package middleware

import (
	"net/http"
	"time"

	"mercator-hq/meter/pkg/telemetry/tracing"
)

// UnmatchedEndpoint is the endpoint label of requests no route matched.
const UnmatchedEndpoint = "unmatched"

// APICallTracker records one API call. *usage.Tracker implements it.
type APICallTracker interface {
	TrackAPICall(endpoint, method string, statusCode int, start time.Time)
}

// TrackingMiddleware records every request with tracker, using the matched
// route pattern as the endpoint label so label cardinality stays bounded.
//
// The active server span, if any, is renamed after the route.
//
// It must wrap the *http.ServeMux directly: the mux sets r.Pattern on the
// request it is handed.
//
// Example usage:
//
//	handler = TrackingMiddleware(tracker)(mux)
func TrackingMiddleware(tracker APICallTracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := GetStartTime(r.Context())
			if start.IsZero() {
				start = time.Now()
			}

			rw := newResponseWriter(w)
			defer func() {
				endpoint := r.Pattern
				if endpoint == "" {
					endpoint = UnmatchedEndpoint
				}
				tracing.SetRoute(r.Context(), r.Method, endpoint)
				status := rw.statusCode
				if p := recover(); p != nil {
					tracker.TrackAPICall(endpoint, r.Method, http.StatusInternalServerError, start)
					panic(p)
				}
				tracker.TrackAPICall(endpoint, r.Method, status, start)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
