package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/pkg/circuitbreaker"
	"github.com/shift-devs/twitch-gamepad/pkg/retry"
)

var errBackendDown = errors.New("backend down")

// flakyStore fails its first `failures` calls per operation, then works.
type flakyStore struct {
	failures  int
	loadErr   error
	snap      domain.Snapshot
	saveCalls int
	loadCalls int
}

func (f *flakyStore) Save(_ context.Context, snap domain.Snapshot) error {
	f.saveCalls++
	if f.saveCalls <= f.failures {
		return errBackendDown
	}
	f.snap = snap
	return nil
}

func (f *flakyStore) Load(_ context.Context) (domain.Snapshot, error) {
	f.loadCalls++
	if f.loadErr != nil {
		return domain.Snapshot{}, f.loadErr
	}
	if f.loadCalls <= f.failures {
		return domain.Snapshot{}, errBackendDown
	}
	return f.snap, nil
}

func (f *flakyStore) Name() string { return "flaky" }
func (f *flakyStore) Close() error { return nil }

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestResilientStoreRetriesSaves(t *testing.T) {
	inner := &flakyStore{failures: 2}
	store := NewResilientStore(inner, fastRetry(), circuitbreaker.DefaultConfig(), zaptest.NewLogger(t).Sugar())

	require.NoError(t, store.Save(context.Background(), testSnapshot()))
	assert.Equal(t, 3, inner.saveCalls)
	assert.Equal(t, testSnapshot(), inner.snap)
}

func TestResilientStoreLoadRecovers(t *testing.T) {
	inner := &flakyStore{failures: 1, snap: testSnapshot()}
	store := NewResilientStore(inner, fastRetry(), circuitbreaker.DefaultConfig(), zaptest.NewLogger(t).Sugar())

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), loaded)
	assert.Equal(t, 2, inner.loadCalls)
}

func TestResilientStoreOpensBreaker(t *testing.T) {
	inner := &flakyStore{failures: 1000}
	breakerCfg := circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		MaxRequestsHalfOpen: 1,
	}
	noRetry := retry.Config{MaxAttempts: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	store := NewResilientStore(inner, noRetry, breakerCfg, zaptest.NewLogger(t).Sugar())

	assert.Error(t, store.Save(context.Background(), testSnapshot()))
	assert.Error(t, store.Save(context.Background(), testSnapshot()))
	callsWhenOpened := inner.saveCalls

	// The open breaker rejects without touching the backend.
	assert.Error(t, store.Save(context.Background(), testSnapshot()))
	assert.Equal(t, callsWhenOpened, inner.saveCalls)
}

func TestResilientStoreLoadNotFoundDoesNotTrip(t *testing.T) {
	inner := &flakyStore{loadErr: domain.ErrSnapshotNotFound}
	breakerCfg := circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		MaxRequestsHalfOpen: 1,
	}
	store := NewResilientStore(inner, fastRetry(), breakerCfg, zaptest.NewLogger(t).Sugar())

	for i := 0; i < 5; i++ {
		_, err := store.Load(context.Background())
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	}
	assert.Equal(t, 5, inner.loadCalls, "an empty backend must neither trip the breaker nor burn retries")
}

func TestResilientStoreLoadCorruptDoesNotTrip(t *testing.T) {
	inner := &flakyStore{loadErr: domain.ErrCorruptSnapshot}
	store := NewResilientStore(inner, fastRetry(), circuitbreaker.DefaultConfig(), zaptest.NewLogger(t).Sugar())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)
	assert.Equal(t, 1, inner.loadCalls)
}
