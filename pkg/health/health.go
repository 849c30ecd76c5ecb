// Package health runs component checks for the /health, /health/ready and
// /health/live probes.
package health

import (
	"time"
)

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	hc := &HealthChecker{started: time.Now()}
	for i := range hc.checks {
		hc.checks[i] = make(map[string]CheckFunc)
	}
	return hc
}

// Register adds or replaces a named check in scope.
func (hc *HealthChecker) Register(scope Scope, name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[scope][name] = check
}

// RegisterCheck registers a check for /health
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.Register(ScopeHealth, name, check)
}

// RegisterReadinessCheck registers a readiness check
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.Register(ScopeReadiness, name, check)
}

// RegisterLivenessCheck registers a liveness check
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.Register(ScopeLiveness, name, check)
}

// Check performs all health checks
func (hc *HealthChecker) Check() Response {
	return hc.Run(ScopeHealth)
}

// CheckReadiness performs readiness checks
func (hc *HealthChecker) CheckReadiness() Response {
	return hc.Run(ScopeReadiness)
}

// CheckLiveness performs liveness checks
func (hc *HealthChecker) CheckLiveness() Response {
	return hc.Run(ScopeLiveness)
}

// Run performs the checks of scope. Checks run outside the lock so a slow
// check does not block registration. The worst status wins; no checks is
// healthy.
func (hc *HealthChecker) Run(scope Scope) Response {
	hc.mu.RLock()
	funcs := make(map[string]CheckFunc, len(hc.checks[scope]))
	for name, fn := range hc.checks[scope] {
		funcs[name] = fn
	}
	hc.mu.RUnlock()

	now := time.Now()
	resp := Response{
		Status:    StatusHealthy,
		Timestamp: now,
		Checks:    make(map[string]Check, len(funcs)),
		Uptime:    now.Sub(hc.started),
	}
	resp.UptimeSeconds = resp.Uptime.Seconds()

	for name, fn := range funcs {
		start := time.Now()
		check := fn()
		check.Duration = time.Since(start)
		check.DurationMS = float64(check.Duration) / float64(time.Millisecond)
		check.LastChecked = start
		if check.Name == "" {
			check.Name = name
		}

		resp.Checks[name] = check
		if check.Status.severity() > resp.Status.severity() {
			resp.Status = check.Status
		}
	}
	return resp
}
