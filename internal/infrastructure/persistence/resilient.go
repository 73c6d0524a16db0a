package persistence

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/pkg/circuitbreaker"
	"github.com/shift-devs/twitch-gamepad/pkg/retry"
)

// ResilientStore wraps a snapshot store with retries and a circuit breaker,
// so a dead backend fails saves fast instead of stalling every `tp save`
// and autosave tick on network timeouts.
type ResilientStore struct {
	store   ports.SnapshotStore
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	logger  *zap.SugaredLogger
}

func NewResilientStore(
	store ports.SnapshotStore,
	retryCfg retry.Config,
	breakerCfg circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *ResilientStore {
	w := &ResilientStore{
		store:   store,
		breaker: circuitbreaker.New(breakerCfg),
		retry:   retryCfg,
		logger:  logger,
	}

	w.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("snapshot store circuit breaker state changed",
			"store", store.Name(),
			"from", from.String(),
			"to", to.String(),
		)
	})

	return w
}

var _ ports.SnapshotStore = (*ResilientStore)(nil)

func (w *ResilientStore) Name() string { return w.store.Name() }

func (w *ResilientStore) Close() error { return w.store.Close() }

func (w *ResilientStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	return retry.Retry(ctx, w.retry, func() error {
		return w.breaker.Execute(ctx, func() error {
			return w.store.Save(ctx, snapshot)
		})
	})
}

func (w *ResilientStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var dataErr error

	err := retry.Retry(ctx, w.retry, func() error {
		return w.breaker.Execute(ctx, func() error {
			loaded, err := w.store.Load(ctx)
			switch {
			case errors.Is(err, domain.ErrSnapshotNotFound), errors.Is(err, domain.ErrCorruptSnapshot):
				// Data conditions, not backend failures: they must not
				// trip the breaker or burn retries.
				dataErr = err
				return nil
			case err != nil:
				return err
			}
			snap = loaded
			dataErr = nil
			return nil
		})
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	if dataErr != nil {
		return domain.Snapshot{}, dataErr
	}
	return snap, nil
}
