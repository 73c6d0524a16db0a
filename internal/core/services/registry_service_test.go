package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

func testGames() []domain.Game {
	return []domain.Game{
		{
			Name:    "Super Mario World",
			Buttons: domain.NewButtonSet(domain.ButtonA, domain.ButtonB, domain.ButtonX, domain.ButtonY, domain.ButtonStart, domain.ButtonSelect, domain.ButtonUp, domain.ButtonDown, domain.ButtonLeft, domain.ButtonRight),
			Command: "retroarch",
			Args:    []string{"--fullscreen", "smw.sfc"},
		},
		{
			Name:       "Tetris",
			Buttons:    domain.NewButtonSet(domain.ButtonA, domain.ButtonB, domain.ButtonLeft, domain.ButtonRight, domain.ButtonDown),
			ResetCombo: []domain.Button{domain.ButtonStart, domain.ButtonSelect},
			Controls:   "a rotates, b drops",
		},
	}
}

func TestRegistryListPreservesOrderAndMarksActive(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	store := NewModerationStore()
	registry := NewGameRegistry(testGames(), store, &fakeRunner{}, &fakeActuator{}, logger)

	infos := registry.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "Super Mario World", infos[0].Name)
	assert.Equal(t, "Tetris", infos[1].Name)
	assert.False(t, infos[0].Active)
	assert.False(t, infos[1].Active)

	_, err := registry.Switch(context.Background(), "tetris")
	require.NoError(t, err)

	infos = registry.List()
	assert.False(t, infos[0].Active)
	assert.True(t, infos[1].Active)
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	registry := NewGameRegistry(testGames(), NewModerationStore(), &fakeRunner{}, &fakeActuator{}, logger)

	game, ok := registry.Lookup("SUPER mario World")
	require.True(t, ok)
	assert.Equal(t, "Super Mario World", game.Name)

	_, ok = registry.Lookup("doom")
	assert.False(t, ok)
}

func TestRegistrySwitchUnknownGame(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	store := NewModerationStore()
	runner := &fakeRunner{}
	registry := NewGameRegistry(testGames(), store, runner, &fakeActuator{}, logger)

	_, err := registry.Switch(context.Background(), "doom")
	require.ErrorIs(t, err, domain.ErrUnknownGame)
	assert.Empty(t, store.ActiveGame())
	assert.Empty(t, runner.starts)
}

func TestRegistrySwitchStartsConfiguredProcess(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	store := NewModerationStore()
	runner := &fakeRunner{}
	registry := NewGameRegistry(testGames(), store, runner, &fakeActuator{}, logger)

	game, err := registry.Switch(context.Background(), "super mario world")
	require.NoError(t, err)
	assert.Equal(t, "Super Mario World", game.Name)
	assert.Equal(t, []string{"Super Mario World"}, runner.starts)
	assert.Equal(t, "Super Mario World", store.ActiveGame())

	// Tetris has no command, so the runner only stops the previous process.
	_, err = registry.Switch(context.Background(), "tetris")
	require.NoError(t, err)
	assert.Equal(t, 1, runner.stops)
	assert.Equal(t, []string{"Super Mario World"}, runner.starts)
	assert.Equal(t, "Tetris", store.ActiveGame())
}

func TestRegistrySwitchStartFailureKeepsActiveGame(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	store := NewModerationStore()
	registry := NewGameRegistry(testGames(), store, &fakeRunner{}, &fakeActuator{}, logger)

	_, err := registry.Switch(context.Background(), "tetris")
	require.NoError(t, err)

	failing := &fakeRunner{startErr: errors.New("exec: not found")}
	registry = NewGameRegistry(testGames(), store, failing, &fakeActuator{}, logger)

	_, err = registry.Switch(context.Background(), "super mario world")
	require.Error(t, err)
	assert.Equal(t, "Tetris", store.ActiveGame())
}

func TestRegistryStop(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	store := NewModerationStore()
	runner := &fakeRunner{}
	registry := NewGameRegistry(testGames(), store, runner, &fakeActuator{}, logger)

	_, ok := registry.Stop(context.Background())
	assert.False(t, ok)

	_, err := registry.Switch(context.Background(), "super mario world")
	require.NoError(t, err)

	name, ok := registry.Stop(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Super Mario World", name)
	assert.Empty(t, store.ActiveGame())
	assert.Equal(t, 1, runner.stops)

	_, ok = registry.Current()
	assert.False(t, ok)
}

func TestRegistryReset(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	store := NewModerationStore()
	pad := &fakeActuator{}
	registry := NewGameRegistry(testGames(), store, &fakeRunner{}, pad, logger)

	err := registry.Reset(context.Background())
	require.ErrorIs(t, err, domain.ErrNoActiveGame)

	// Active game without a reset combo is a quiet no-op.
	_, err = registry.Switch(context.Background(), "super mario world")
	require.NoError(t, err)
	require.NoError(t, registry.Reset(context.Background()))
	assert.Empty(t, pad.all())

	_, err = registry.Switch(context.Background(), "tetris")
	require.NoError(t, err)
	require.NoError(t, registry.Reset(context.Background()))

	presses := pad.all()
	require.Len(t, presses, 1)
	assert.Equal(t, []domain.Button{domain.ButtonStart, domain.ButtonSelect}, presses[0].Buttons)
	assert.Equal(t, 250*time.Millisecond, presses[0].Hold)
}

func TestRegistryControls(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	store := NewModerationStore()
	registry := NewGameRegistry(testGames(), store, &fakeRunner{}, &fakeActuator{}, logger)

	_, err := registry.Controls("")
	require.ErrorIs(t, err, domain.ErrNoActiveGame)

	text, err := registry.Controls("tetris")
	require.NoError(t, err)
	assert.Equal(t, "a rotates, b drops", text)

	_, err = registry.Switch(context.Background(), "super mario world")
	require.NoError(t, err)

	text, err = registry.Controls("")
	require.NoError(t, err)
	assert.Contains(t, text, "Available buttons for Super Mario World:")
	assert.Contains(t, text, "up")

	_, err = registry.Controls("doom")
	require.ErrorIs(t, err, domain.ErrUnknownGame)
}

func TestRegistryCapabilityUnion(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	registry := NewGameRegistry(testGames(), NewModerationStore(), &fakeRunner{}, &fakeActuator{}, logger)

	union := registry.CapabilityUnion()
	assert.True(t, union.Contains(domain.ButtonX))
	// Start and Select only appear in Tetris's reset combo.
	assert.True(t, union.Contains(domain.ButtonStart))
	assert.True(t, union.Contains(domain.ButtonSelect))
	assert.False(t, union.Contains(domain.ButtonTL))
}

func TestRegistryDuplicateNamesKeepFirst(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	games := []domain.Game{
		{Name: "Tetris", Controls: "first"},
		{Name: "tetris", Controls: "second"},
	}
	registry := NewGameRegistry(games, NewModerationStore(), &fakeRunner{}, &fakeActuator{}, logger)

	infos := registry.List()
	require.Len(t, infos, 1)

	game, ok := registry.Lookup("TETRIS")
	require.True(t, ok)
	assert.Equal(t, "first", game.Controls)
}
