package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// Autosaver periodically saves moderation state, but only when the store's
// generation counter moved since the last save, so an idle channel writes
// nothing.
type Autosaver struct {
	dispatcher ports.Dispatcher
	generation func() uint64
	interval   time.Duration
	logger     *zap.SugaredLogger
	stopChan   chan struct{}

	lastSaved uint64
}

// NewAutosaver wires the scheduler to the dispatcher's SaveState, the only
// sanctioned snapshot path, and to the moderation store's generation
// counter for dirtiness.
func NewAutosaver(
	dispatcher ports.Dispatcher,
	generation func() uint64,
	interval time.Duration,
	logger *zap.SugaredLogger,
) *Autosaver {
	return &Autosaver{
		dispatcher: dispatcher,
		generation: generation,
		interval:   interval,
		logger:     logger,
		stopChan:   make(chan struct{}),
		// Baseline at construction: anything mutated before Start still
		// counts as dirty.
		lastSaved: generation(),
	}
}

// Start blocks until Stop or context cancellation; run it on its own
// goroutine.
func (a *Autosaver) Start(ctx context.Context) {
	a.logger.Infow("autosave started", "interval", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.maybeSave(ctx)
		case <-a.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the scheduler loop.
func (a *Autosaver) Stop() {
	close(a.stopChan)
}

func (a *Autosaver) maybeSave(ctx context.Context) {
	gen := a.generation()
	if gen == a.lastSaved {
		return
	}

	if err := a.dispatcher.SaveState(ctx); err != nil {
		a.logger.Errorw("autosave failed", "error", err)
		return
	}

	a.lastSaved = gen
	a.logger.Debugw("autosaved moderation state", "generation", gen)
}
