package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheckerAllHealthy(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("device", func(ctx context.Context) error { return nil }, 0)
	h.AddCheck("store", func(ctx context.Context) error { return nil }, 0)

	status := h.CheckAll(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["device"])
	assert.Equal(t, "healthy", status.Checks["store"])
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthCheckerReportsFailure(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("device", func(ctx context.Context) error { return nil }, 0)
	h.AddCheck("chat", func(ctx context.Context) error { return errors.New("disconnected") }, 0)

	status := h.CheckAll(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["device"])
	assert.Equal(t, "disconnected", status.Checks["chat"])
}

func TestHealthCheckerEnforcesTimeout(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}, 20*time.Millisecond)

	start := time.Now()
	status := h.CheckAll(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHealthCheckerNoChecks(t *testing.T) {
	h := NewHealthChecker()
	status := h.CheckAll(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Checks)
}
