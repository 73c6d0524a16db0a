package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (f *fakeDispatcher) Run(context.Context, <-chan domain.InputEvent) error { return nil }
func (f *fakeDispatcher) Bootstrap(context.Context) error                     { return nil }

func (f *fakeDispatcher) SaveState(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return f.err
}

func (f *fakeDispatcher) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func TestAutosaverSavesOnlyWhenDirty(t *testing.T) {
	disp := &fakeDispatcher{}
	var gen atomic.Uint64
	saver := NewAutosaver(disp, gen.Load, 10*time.Millisecond, zaptest.NewLogger(t).Sugar())

	done := make(chan struct{})
	go func() {
		saver.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, disp.saveCount(), "clean state writes nothing")

	gen.Add(1)
	require.Eventually(t, func() bool { return disp.saveCount() == 1 }, time.Second, 5*time.Millisecond)

	// Clean again: no further writes.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, disp.saveCount())

	saver.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver did not stop")
	}
}

func TestAutosaverRetriesFailedSaves(t *testing.T) {
	disp := &fakeDispatcher{err: errors.New("backend down")}
	var gen atomic.Uint64
	saver := NewAutosaver(disp, gen.Load, 5*time.Millisecond, zaptest.NewLogger(t).Sugar())

	done := make(chan struct{})
	go func() {
		saver.Start(context.Background())
		close(done)
	}()

	gen.Add(1)
	require.Eventually(t, func() bool { return disp.saveCount() >= 2 }, time.Second, time.Millisecond,
		"a failed save stays dirty and is retried next tick")

	saver.Stop()
	<-done
}

func TestAutosaverSeesMutationsBeforeStart(t *testing.T) {
	disp := &fakeDispatcher{}
	var gen atomic.Uint64
	saver := NewAutosaver(disp, gen.Load, 5*time.Millisecond, zaptest.NewLogger(t).Sugar())

	// Mutations between construction and Start are dirty, not baseline.
	gen.Add(1)

	done := make(chan struct{})
	go func() {
		saver.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return disp.saveCount() == 1 }, time.Second, time.Millisecond)

	saver.Stop()
	<-done
}

func TestAutosaverStopsOnContextCancel(t *testing.T) {
	disp := &fakeDispatcher{}
	var gen atomic.Uint64
	saver := NewAutosaver(disp, gen.Load, time.Hour, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		saver.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver ignored context cancellation")
	}
}
