package health

import (
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the worst one wins.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Scope selects which probe runs a check.
type Scope int

const (
	// ScopeHealth checks back /health.
	ScopeHealth Scope = iota
	// ScopeReadiness checks back /health/ready.
	ScopeReadiness
	// ScopeLiveness checks back /health/live.
	ScopeLiveness

	numScopes
)

// Check represents a health check for a specific component
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"-"`
	DurationMS  float64        `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check
type CheckFunc func() Check

// HealthChecker holds the registered checks of each scope
type HealthChecker struct {
	mu      sync.RWMutex
	checks  [numScopes]map[string]CheckFunc
	started time.Time
}

// Response represents the overall health response
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks"`
	Uptime        time.Duration    `json:"-"`
	UptimeSeconds float64          `json:"uptime_seconds"`
}
