package monitoring

import (
	"context"
	"sync"
	"time"
)

const defaultCheckTimeout = 3 * time.Second

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type healthCheck struct {
	name    string
	check   CheckFunc
	timeout time.Duration
}

// HealthChecker runs named dependency probes for the health endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []healthCheck
}

// HealthStatus is the health endpoint's payload.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// AddCheck registers a probe. A zero timeout gets the default.
func (h *HealthChecker) AddCheck(name string, check CheckFunc, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, healthCheck{name: name, check: check, timeout: timeout})
}

// CheckAll runs every probe and aggregates: one failure marks the whole
// status unhealthy.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	for _, c := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.check(checkCtx)
		cancel()

		if err != nil {
			status.Status = "unhealthy"
			status.Checks[c.name] = err.Error()
			continue
		}
		status.Checks[c.name] = "healthy"
	}

	return status
}
