package ports

import (
	"context"
	"time"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

// ModerationStore owns blocks, operators, mode, cooldown bookkeeping and
// the active-game name. Every method is one linearizable operation.
type ModerationStore interface {
	IsBlocked(handle string, now time.Time) bool
	Block(handle string, expiresAt *time.Time)
	Unblock(handle string) bool
	AddOperator(handle string) bool
	RemoveOperator(handle string) bool
	IsOperator(handle string) bool
	SetMode(mode domain.Mode)
	CurrentMode() domain.Mode
	SetCooldown(seconds int64)
	Cooldown() int64
	CheckAndRecordCooldown(handle string, now time.Time, privilege domain.Privilege) (bool, time.Duration)
	SetActiveGame(name string)
	ActiveGame() string
	Blocks(now time.Time) []domain.Block
	Operators() []string
	Snapshot(now time.Time) domain.Snapshot
	Restore(snapshot domain.Snapshot)
	Generation() uint64
}

// GameRegistry owns the configured catalog, the active game's process and
// the selection stored in the ModerationStore.
type GameRegistry interface {
	List() []domain.GameInfo
	Lookup(name string) (domain.Game, bool)
	Switch(ctx context.Context, name string) (domain.Game, error)
	Current() (domain.Game, bool)
	Stop(ctx context.Context) (string, bool)
	Reset(ctx context.Context) error
	Controls(name string) (string, error)
	CapabilityUnion() domain.ButtonSet
}

// PrivilegeResolver computes the trust tier for one message.
type PrivilegeResolver interface {
	Resolve(handle string, role domain.ChannelRole) domain.Privilege
}

// Actuator schedules button holds. Press never blocks on the device; the
// release happens off the caller's path when the hold elapses. Close
// releases everything and drains pending device writes.
type Actuator interface {
	Press(buttons []domain.Button, hold time.Duration)
	Held() []domain.Button
	ReleaseAll()
	Close()
}

// GameRunner manages the launched game process, if the game has one.
type GameRunner interface {
	Start(ctx context.Context, game domain.Game) error
	Stop(ctx context.Context) error
	Running() bool
}

// Dispatcher consumes the aggregated input stream and routes parsed
// commands to the store, registry, actuator and snapshot store. It is the
// sole mutator of moderation and game-selection state.
type Dispatcher interface {
	Run(ctx context.Context, events <-chan domain.InputEvent) error
	Bootstrap(ctx context.Context) error
	SaveState(ctx context.Context) error
}

// Replier returns text to a sender on the surface the message arrived from.
type Replier interface {
	Reply(ctx context.Context, event domain.InputEvent, text string)
}

// InputSink accepts raw input events for dispatch. Producers (chat, console,
// API) submit; the dispatcher consumes.
type InputSink interface {
	Submit(ctx context.Context, event domain.InputEvent) error
}

// EventPublisher fans router events out to observers. Publish must never
// block the dispatch path.
type EventPublisher interface {
	Publish(event domain.RouterEvent)
}

// EventSource hands out router event subscriptions. The returned cancel
// releases the subscription and closes the channel.
type EventSource interface {
	Subscribe() (<-chan domain.RouterEvent, func())
}
