package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// resetTap is how long a reset combo is held. Long enough for the emulated
// pad's consumer to register it, short enough to feel like a tap.
const resetTap = 250 * time.Millisecond

// gameRegistry serves the configured catalog. The catalog is immutable
// after construction; the active selection lives in the moderation store so
// it rides along in snapshots.
type gameRegistry struct {
	order  []string
	games  map[string]domain.Game // keyed by lowercase name
	store  ports.ModerationStore
	runner ports.GameRunner
	pad    ports.Actuator
	logger *zap.SugaredLogger
}

func NewGameRegistry(
	games []domain.Game,
	store ports.ModerationStore,
	runner ports.GameRunner,
	pad ports.Actuator,
	logger *zap.SugaredLogger,
) ports.GameRegistry {
	r := &gameRegistry{
		games:  make(map[string]domain.Game, len(games)),
		store:  store,
		runner: runner,
		pad:    pad,
		logger: logger,
	}
	for _, g := range games {
		key := strings.ToLower(g.Name)
		if _, dup := r.games[key]; dup {
			continue
		}
		r.games[key] = g
		r.order = append(r.order, g.Name)
	}
	return r
}

func (r *gameRegistry) List() []domain.GameInfo {
	active := r.store.ActiveGame()
	out := make([]domain.GameInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, domain.GameInfo{Name: name, Active: name == active})
	}
	return out
}

func (r *gameRegistry) Lookup(name string) (domain.Game, bool) {
	g, ok := r.games[strings.ToLower(name)]
	return g, ok
}

func (r *gameRegistry) Switch(ctx context.Context, name string) (domain.Game, error) {
	game, ok := r.Lookup(name)
	if !ok {
		return domain.Game{}, fmt.Errorf("%w: %q", domain.ErrUnknownGame, name)
	}

	if err := r.runner.Stop(ctx); err != nil {
		r.logger.Warnw("stopping previous game process", "error", err)
	}
	if game.Command != "" {
		if err := r.runner.Start(ctx, game); err != nil {
			return domain.Game{}, fmt.Errorf("starting %s: %w", game.Name, err)
		}
	}

	r.store.SetActiveGame(game.Name)
	return game, nil
}

func (r *gameRegistry) Current() (domain.Game, bool) {
	name := r.store.ActiveGame()
	if name == "" {
		return domain.Game{}, false
	}
	return r.Lookup(name)
}

func (r *gameRegistry) Stop(ctx context.Context) (string, bool) {
	name := r.store.ActiveGame()
	if name == "" {
		return "", false
	}
	if err := r.runner.Stop(ctx); err != nil {
		r.logger.Warnw("stopping game process", "game", name, "error", err)
	}
	r.store.SetActiveGame("")
	return name, true
}

func (r *gameRegistry) Reset(ctx context.Context) error {
	game, ok := r.Current()
	if !ok {
		return domain.ErrNoActiveGame
	}
	if len(game.ResetCombo) == 0 {
		return nil
	}
	r.pad.Press(game.ResetCombo, resetTap)
	return nil
}

func (r *gameRegistry) Controls(name string) (string, error) {
	if name == "" {
		game, ok := r.Current()
		if !ok {
			return "", domain.ErrNoActiveGame
		}
		return game.ControlsText(), nil
	}
	game, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownGame, name)
	}
	return game.ControlsText(), nil
}

// CapabilityUnion is every button any configured game can reach, including
// reset combos. The virtual device is created with exactly this set.
func (r *gameRegistry) CapabilityUnion() domain.ButtonSet {
	union := domain.NewButtonSet()
	for _, name := range r.order {
		game := r.games[strings.ToLower(name)]
		for b := range game.Vocabulary() {
			union.Add(b)
		}
		for _, b := range game.ResetCombo {
			union.Add(b)
		}
	}
	return union
}
