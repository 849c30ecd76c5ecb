package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves /health. Degraded still answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return hc.handler(ScopeHealth, true)
}

// ReadinessHandler serves /health/ready. Anything but healthy is 503.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return hc.handler(ScopeReadiness, false)
}

// LivenessHandler serves /health/live. Anything but healthy is 503.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return hc.handler(ScopeLiveness, false)
}

func (hc *HealthChecker) handler(scope Scope, degradedOK bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := hc.Run(scope)

		code := http.StatusOK
		switch resp.Status {
		case StatusHealthy:
		case StatusDegraded:
			if !degradedOK {
				code = http.StatusServiceUnavailable
			}
		default:
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		json.NewEncoder(w).Encode(resp)
	}
}
