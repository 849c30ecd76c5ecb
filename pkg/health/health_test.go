package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHealthChecker(t *testing.T) {
	hc := NewHealthChecker()

	if hc == nil {
		t.Fatal("NewHealthChecker returned nil")
	}
	for scope, checks := range hc.checks {
		if checks == nil {
			t.Errorf("checks map for scope %d not initialized", scope)
		}
	}
}

func TestRegisterCheck(t *testing.T) {
	hc := NewHealthChecker()

	called := false
	hc.RegisterCheck("test", func() Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	resp := hc.Check()
	if !called {
		t.Error("registered check was not called")
	}
	if _, exists := resp.Checks["test"]; !exists {
		t.Error("check result not in response")
	}
}

func TestRegisterReadinessCheck(t *testing.T) {
	hc := NewHealthChecker()

	called := false
	hc.RegisterReadinessCheck("ready-test", func() Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	// Should not be called for regular Check()
	hc.Check()
	if called {
		t.Error("readiness check should not be called for Check()")
	}

	// Should be called for CheckReadiness()
	resp := hc.CheckReadiness()
	if !called {
		t.Error("readiness check was not called")
	}
	if _, exists := resp.Checks["ready-test"]; !exists {
		t.Error("readiness check result not in response")
	}
}

func TestRegisterLivenessCheck(t *testing.T) {
	hc := NewHealthChecker()

	called := false
	hc.RegisterLivenessCheck("live-test", func() Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	// Should not be called for regular Check()
	hc.Check()
	if called {
		t.Error("liveness check should not be called for Check()")
	}

	// Should be called for CheckLiveness()
	resp := hc.CheckLiveness()
	if !called {
		t.Error("liveness check was not called")
	}
	if _, exists := resp.Checks["live-test"]; !exists {
		t.Error("liveness check result not in response")
	}
}

func TestCheckStatusAggregation(t *testing.T) {
	tests := []struct {
		name           string
		checkStatuses  []Status
		expectedStatus Status
	}{
		{
			name:           "all healthy",
			checkStatuses:  []Status{StatusHealthy, StatusHealthy, StatusHealthy},
			expectedStatus: StatusHealthy,
		},
		{
			name:           "one degraded",
			checkStatuses:  []Status{StatusHealthy, StatusDegraded, StatusHealthy},
			expectedStatus: StatusDegraded,
		},
		{
			name:           "one unhealthy",
			checkStatuses:  []Status{StatusHealthy, StatusUnhealthy, StatusHealthy},
			expectedStatus: StatusUnhealthy,
		},
		{
			name:           "degraded and unhealthy",
			checkStatuses:  []Status{StatusDegraded, StatusUnhealthy, StatusHealthy},
			expectedStatus: StatusUnhealthy,
		},
		{
			name:           "no checks",
			checkStatuses:  []Status{},
			expectedStatus: StatusHealthy,
		},
		{
			name:           "single healthy",
			checkStatuses:  []Status{StatusHealthy},
			expectedStatus: StatusHealthy,
		},
		{
			name:           "single unhealthy",
			checkStatuses:  []Status{StatusUnhealthy},
			expectedStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()

			for i, status := range tt.checkStatuses {
				s := status // capture
				hc.RegisterCheck(string(rune('a'+i)), func() Check {
					return Check{Status: s}
				})
			}

			resp := hc.Check()
			if resp.Status != tt.expectedStatus {
				t.Errorf("expected status %s, got %s", tt.expectedStatus, resp.Status)
			}
		})
	}
}

func TestCheckTimestamp(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("test", func() Check {
		return Check{Status: StatusHealthy}
	})

	before := time.Now()
	resp := hc.Check()
	after := time.Now()

	if resp.Timestamp.Before(before) || resp.Timestamp.After(after) {
		t.Errorf("timestamp %v not between %v and %v", resp.Timestamp, before, after)
	}
}

func TestCheckDuration(t *testing.T) {
	hc := NewHealthChecker()

	sleepDuration := 10 * time.Millisecond
	hc.RegisterCheck("slow", func() Check {
		time.Sleep(sleepDuration)
		return Check{Status: StatusHealthy}
	})

	resp := hc.Check()
	check := resp.Checks["slow"]

	if check.Duration < sleepDuration {
		t.Errorf("duration %v less than sleep time %v", check.Duration, sleepDuration)
	}
}

func TestRun_FillsNameAndUptime(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register(ScopeReadiness, "storage", func() Check {
		return Check{Status: StatusDegraded}
	})
	time.Sleep(5 * time.Millisecond)

	resp := hc.Run(ScopeReadiness)
	if resp.Checks["storage"].Name != "storage" {
		t.Errorf("check name = %q, want storage", resp.Checks["storage"].Name)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("status = %s", resp.Status)
	}
	if resp.Uptime < 5*time.Millisecond || resp.UptimeSeconds <= 0 {
		t.Errorf("uptime = %v (%v s)", resp.Uptime, resp.UptimeSeconds)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["uptime_seconds"].(float64); !ok {
		t.Errorf("uptime_seconds missing from %s", data)
	}
}

func TestHandler_HEAD(t *testing.T) {
	hc := NewHealthChecker()
	rec := httptest.NewRecorder()
	hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodHead, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD returned a body: %q", rec.Body.String())
	}
}

func TestSimpleCheck(t *testing.T) {
	check := SimpleCheck("test-component")

	if check.Name != "test-component" {
		t.Errorf("expected name 'test-component', got %s", check.Name)
	}
	if check.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", check.Status)
	}
	if check.LastChecked.IsZero() {
		t.Error("LastChecked not set")
	}
}

func TestStorageCheck(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus Status
		expectedMsg    string
	}{
		{
			name:           "open",
			pingErr:        nil,
			expectedStatus: StatusHealthy,
			expectedMsg:    "Open",
		},
		{
			name:           "closed",
			pingErr:        errors.New("graph manager is closed"),
			expectedStatus: StatusUnhealthy,
			expectedMsg:    "graph manager is closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkFunc := StorageCheck(func() error {
				return tt.pingErr
			})

			check := checkFunc()

			if check.Status != tt.expectedStatus {
				t.Errorf("expected status %s, got %s", tt.expectedStatus, check.Status)
			}
			if check.Message != tt.expectedMsg {
				t.Errorf("expected message %q, got %q", tt.expectedMsg, check.Message)
			}
			if check.Name != "storage" {
				t.Errorf("expected name 'storage', got %s", check.Name)
			}
		})
	}
}

func TestGraphsCheck(t *testing.T) {
	tests := []struct {
		name           string
		graphs         int
		commits        uint64
		rollbacks      uint64
		expectedStatus Status
		expectedMsg    string
	}{
		{"no graphs", 0, 0, 0, StatusHealthy, "No graphs"},
		{"idle graphs", 2, 0, 0, StatusHealthy, "Graphs available"},
		{"mostly committed", 1, 95, 5, StatusHealthy, "Graphs available"},
		{"mostly failing", 1, 10, 90, StatusDegraded, "High import failure rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := GraphsCheck(func() (int, uint64, uint64) {
				return tt.graphs, tt.commits, tt.rollbacks
			}, 0.5)()

			if check.Status != tt.expectedStatus {
				t.Errorf("expected status %s, got %s", tt.expectedStatus, check.Status)
			}
			if check.Message != tt.expectedMsg {
				t.Errorf("expected message %q, got %q", tt.expectedMsg, check.Message)
			}
			if check.Details["graphs"] != tt.graphs {
				t.Errorf("expected graphs detail %d, got %v", tt.graphs, check.Details["graphs"])
			}
		})
	}
}

func TestEventsCheck(t *testing.T) {
	disabled := EventsCheck("", func() error { t.Fatal("probe must not run when disabled"); return nil })()
	if disabled.Status != StatusHealthy || disabled.Message != "Disabled" {
		t.Errorf("disabled check = %+v", disabled)
	}

	ok := EventsCheck("tcp://127.0.0.1:40899", func() error { return nil })()
	if ok.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", ok.Status)
	}

	broken := EventsCheck("tcp://127.0.0.1:40899", func() error { return errors.New("socket closed") })()
	if broken.Status != StatusDegraded || broken.Message != "socket closed" {
		t.Errorf("broken check = %+v", broken)
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		name           string
		alloc          uint64
		sys            uint64
		expectedStatus Status
		expectedMsg    string
	}{
		{
			name:           "normal usage",
			alloc:          50,
			sys:            100,
			expectedStatus: StatusHealthy,
			expectedMsg:    "Memory usage normal",
		},
		{
			name:           "high usage (90%)",
			alloc:          90,
			sys:            100,
			expectedStatus: StatusHealthy,
			expectedMsg:    "Memory usage normal",
		},
		{
			name:           "high usage (91%)",
			alloc:          91,
			sys:            100,
			expectedStatus: StatusDegraded,
			expectedMsg:    "High memory usage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkFunc := MemoryCheck(func() (uint64, uint64) {
				return tt.alloc, tt.sys
			})

			check := checkFunc()

			if check.Status != tt.expectedStatus {
				t.Errorf("expected status %s, got %s", tt.expectedStatus, check.Status)
			}
			if check.Message != tt.expectedMsg {
				t.Errorf("expected message %q, got %q", tt.expectedMsg, check.Message)
			}
		})
	}
}

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		name         string
		checkStatus  Status
		expectedCode int
	}{
		{
			name:         "healthy returns 200",
			checkStatus:  StatusHealthy,
			expectedCode: http.StatusOK,
		},
		{
			name:         "degraded returns 200",
			checkStatus:  StatusDegraded,
			expectedCode: http.StatusOK,
		},
		{
			name:         "unhealthy returns 503",
			checkStatus:  StatusUnhealthy,
			expectedCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.RegisterCheck("test", func() Check {
				return Check{Status: tt.checkStatus}
			})

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()

			hc.HTTPHandler()(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, rec.Code)
			}

			if rec.Header().Get("Content-Type") != "application/json" {
				t.Error("expected Content-Type application/json")
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if resp.Status != tt.checkStatus {
				t.Errorf("expected response status %s, got %s", tt.checkStatus, resp.Status)
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name         string
		checkStatus  Status
		expectedCode int
	}{
		{
			name:         "healthy returns 200",
			checkStatus:  StatusHealthy,
			expectedCode: http.StatusOK,
		},
		{
			name:         "degraded returns 503",
			checkStatus:  StatusDegraded,
			expectedCode: http.StatusServiceUnavailable,
		},
		{
			name:         "unhealthy returns 503",
			checkStatus:  StatusUnhealthy,
			expectedCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.RegisterReadinessCheck("test", func() Check {
				return Check{Status: tt.checkStatus}
			})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()

			hc.ReadinessHandler()(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, rec.Code)
			}
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	tests := []struct {
		name         string
		checkStatus  Status
		expectedCode int
	}{
		{
			name:         "healthy returns 200",
			checkStatus:  StatusHealthy,
			expectedCode: http.StatusOK,
		},
		{
			name:         "degraded returns 503",
			checkStatus:  StatusDegraded,
			expectedCode: http.StatusServiceUnavailable,
		},
		{
			name:         "unhealthy returns 503",
			checkStatus:  StatusUnhealthy,
			expectedCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.RegisterLivenessCheck("test", func() Check {
				return Check{Status: tt.checkStatus}
			})

			req := httptest.NewRequest(http.MethodGet, "/live", nil)
			rec := httptest.NewRecorder()

			hc.LivenessHandler()(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, rec.Code)
			}
		})
	}
}

func TestConcurrentCheckRegistration(t *testing.T) {
	hc := NewHealthChecker()

	// Register checks concurrently
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			hc.RegisterCheck(string(rune('a'+id)), func() Check {
				return Check{Status: StatusHealthy}
			})
			done <- true
		}(i)
	}

	// Wait for all registrations
	for i := 0; i < 10; i++ {
		<-done
	}

	// Run checks concurrently
	for i := 0; i < 10; i++ {
		go func() {
			hc.Check()
			done <- true
		}()
	}

	// Wait for all checks
	for i := 0; i < 10; i++ {
		<-done
	}

	// Verify all checks registered
	resp := hc.Check()
	if len(resp.Checks) != 10 {
		t.Errorf("expected 10 checks, got %d", len(resp.Checks))
	}
}

func TestResponseJSONSerialization(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("test", func() Check {
		return Check{
			Status:  StatusHealthy,
			Message: "All good",
			Details: map[string]any{
				"version": "1.0.0",
				"count":   42,
			},
		}
	})

	resp := hc.Check()

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if decoded.Status != resp.Status {
		t.Errorf("status mismatch: expected %s, got %s", resp.Status, decoded.Status)
	}

	check, exists := decoded.Checks["test"]
	if !exists {
		t.Fatal("check 'test' not found in decoded response")
	}

	if check.Message != "All good" {
		t.Errorf("message mismatch: expected 'All good', got %s", check.Message)
	}
}
