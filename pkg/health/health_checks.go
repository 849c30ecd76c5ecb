package health

import "time"

// Common health check functions

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// StorageCheck reports whether the graph registry can serve lookups
func StorageCheck(pingFunc func() error) CheckFunc {
	return func() Check {
		check := Check{
			Name: "storage",
		}

		if err := pingFunc(); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Open"
		}

		return check
	}
}

// GraphsCheck reports the open graphs and their failed commits. Rollbacks
// above maxRollbackRatio of all transactions degrade the check.
func GraphsCheck(getState func() (graphs int, commits, rollbacks uint64), maxRollbackRatio float64) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "graphs",
			Details: make(map[string]any),
		}

		graphs, commits, rollbacks := getState()

		check.Details["graphs"] = graphs
		check.Details["commits"] = commits
		check.Details["rollbacks"] = rollbacks

		total := commits + rollbacks
		switch {
		case graphs == 0:
			check.Status = StatusHealthy
			check.Message = "No graphs"
		case total > 0 && float64(rollbacks)/float64(total) > maxRollbackRatio:
			check.Status = StatusDegraded
			check.Message = "High import failure rate"
		default:
			check.Status = StatusHealthy
			check.Message = "Graphs available"
		}

		return check
	}
}

// EventsCheck reports the import event socket. An empty address means
// publishing is disabled, which is healthy.
func EventsCheck(addr string, probe func() error) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "events",
			Details: map[string]any{"address": addr},
		}

		if addr == "" {
			check.Status = StatusHealthy
			check.Message = "Disabled"
			return check
		}
		if err := probe(); err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Publishing"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
