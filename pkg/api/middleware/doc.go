// Package middleware holds the HTTP middleware of the import API.
//
//   - recovery.go: turns handler panics into 500 responses
//   - request_id.go: X-Request-ID propagation
//   - logging.go: one structured log line per request
//   - cors.go: Cross-Origin Resource Sharing
//   - security_headers.go: response hardening headers
//   - body_limit.go: upload size cap
//   - metrics.go: Prometheus request metrics, labelled by route template
//
// Every middleware has the shape func(http.Handler) http.Handler so it can
// be passed straight to (*mux.Router).Use:
//
//	r := mux.NewRouter()
//	r.Use(middleware.PanicRecovery(logger), middleware.RequestID())
package middleware
