// Package health provides liveness and readiness checks for the HTTP surface.
package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the liveness response
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version  string
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a readiness checker.
func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

// Health reports that the process is alive.
func (m *Manager) Health() HealthResponse {
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
}

// Ready runs every checker. Any unhealthy checker makes the service not ready;
// degraded checkers only downgrade the status.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, c := range m.checkers {
		result := c.Check(ctx)
		resp.Checks[c.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			resp.Ready = false
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// ExecutableChecker verifies a binary can be found.
type ExecutableChecker struct {
	Path string
	// Optional marks the binary as nice to have: a miss degrades instead of
	// failing readiness.
	Optional bool
}

func (c ExecutableChecker) Name() string { return "exec:" + filepath.Base(c.Path) }

func (c ExecutableChecker) Check(context.Context) CheckResult {
	resolved, err := exec.LookPath(c.Path)
	if err != nil {
		status := StatusUnhealthy
		if c.Optional {
			status = StatusDegraded
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: resolved}
}

// DirWritableChecker verifies files can be created in Dir.
type DirWritableChecker struct {
	Dir string
}

func (c DirWritableChecker) Name() string { return "scratch_dir" }

func (c DirWritableChecker) Check(context.Context) CheckResult {
	f, err := os.CreateTemp(c.Dir, ".health-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return CheckResult{Status: StatusDegraded, Error: fmt.Sprintf("removing probe file: %v", err)}
	}
	return CheckResult{Status: StatusHealthy, Message: c.Dir}
}
