// Package middleware provides the HTTP middleware chain of the Mercator Meter
// server.
//
// Middleware order (outermost first):
//
//  1. RecoveryMiddleware - turns handler panics into 500 responses
//  2. RequestIDMiddleware - assigns X-Request-ID and stores it for logging
//  3. LoggingMiddleware - logs every completed request
//  4. TrackingMiddleware - records api_requests_total and latency per route
//
// TrackingMiddleware labels requests with the matched ServeMux pattern
// rather than the raw path, and with "unmatched" when no route matched.
package middleware
