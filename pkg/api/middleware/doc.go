// Package middleware provides the HTTP middleware of the saga-graph API.
//
//   - logging.go: structured request logging
//   - metrics.go: request counters and latency per route pattern
//   - body_limit.go: request body size limit
//   - security_headers.go: response hardening for JSON and rendered SVG
//   - ratelimit.go: per-client token buckets for session creation
//
// All middleware has the form func(http.Handler) http.Handler and is
// mounted on a chi router with Use or With.
package middleware
