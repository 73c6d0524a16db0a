package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/pkg/utils"
)

// minPrivilege is the floor for each moderation subcommand. Commands absent
// from this table are movement and gated elsewhere.
var minPrivilege = map[domain.ModAction]domain.Privilege{
	domain.ActionBlock:    domain.PrivilegeChannelModerator,
	domain.ActionUnblock:  domain.PrivilegeChannelModerator,
	domain.ActionOp:       domain.PrivilegeChannelModerator,
	domain.ActionDeop:     domain.PrivilegeChannelModerator,
	domain.ActionGame:     domain.PrivilegeChannelModerator,
	domain.ActionStop:     domain.PrivilegeChannelModerator,
	domain.ActionMode:     domain.PrivilegeChannelModerator,
	domain.ActionCooldown: domain.PrivilegeChannelModerator,
	domain.ActionSave:     domain.PrivilegeOperator,
	domain.ActionLoad:     domain.PrivilegeOperator,
	domain.ActionReset:    domain.PrivilegeOperator,
	domain.ActionList:     domain.PrivilegeStandard,
	domain.ActionControls: domain.PrivilegeStandard,
	domain.ActionHelp:     domain.PrivilegeStandard,
}

// DispatcherConfig carries the tunables the dispatcher reads per command.
type DispatcherConfig struct {
	// DefaultHold applies to movement lines without an explicit duration.
	DefaultHold time.Duration
	// ReplyToUnrecognized controls whether lines matching no command get a
	// reply. Busy channels turn this off.
	ReplyToUnrecognized bool
}

// Unrecognized lines get at most one reply per sender in this window, so
// ordinary chatter does not turn the bot into a spam machine.
const unrecognizedReplyInterval = 30 * time.Second

// dispatcher is the single consumer of the aggregated input stream and the
// sole mutator of moderation and game-selection state.
type dispatcher struct {
	cfg       DispatcherConfig
	store     ports.ModerationStore
	registry  ports.GameRegistry
	resolver  ports.PrivilegeResolver
	pad       ports.Actuator
	snapshots ports.SnapshotStore
	replier   ports.Replier
	bus       ports.EventPublisher
	logger    *zap.SugaredLogger
	tracer    trace.Tracer
	now       func() time.Time

	// Touched only from the Run goroutine.
	lastUnrecognized map[string]time.Time
}

func NewDispatcher(
	cfg DispatcherConfig,
	store ports.ModerationStore,
	registry ports.GameRegistry,
	resolver ports.PrivilegeResolver,
	pad ports.Actuator,
	snapshots ports.SnapshotStore,
	replier ports.Replier,
	bus ports.EventPublisher,
	logger *zap.SugaredLogger,
) ports.Dispatcher {
	if cfg.DefaultHold <= 0 {
		cfg.DefaultHold = domain.DefaultHold
	}
	return &dispatcher{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		resolver:  resolver,
		pad:       pad,
		snapshots: snapshots,
		replier:   replier,
		bus:       bus,
		logger:    logger,
		tracer:    otel.Tracer("twitch-gamepad/dispatcher"),
		now:       time.Now,

		lastUnrecognized: make(map[string]time.Time),
	}
}

// Run consumes events until the context is cancelled or the channel closes.
// Per-command failures are replies and log lines, never loop aborts.
func (d *dispatcher) Run(ctx context.Context, events <-chan domain.InputEvent) error {
	d.logger.Infow("command dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Infow("command dispatcher stopping", "reason", ctx.Err())
			return nil
		case ev, ok := <-events:
			if !ok {
				d.logger.Infow("input stream closed, dispatcher stopping")
				return nil
			}
			d.dispatch(ctx, ev)
		}
	}
}

func (d *dispatcher) dispatch(ctx context.Context, ev domain.InputEvent) {
	ctx, span := d.tracer.Start(ctx, "dispatch.command",
		trace.WithAttributes(attribute.String("input.origin", string(ev.Origin))))
	defer span.End()

	cmd, err := domain.ParseLine(ev.Text)
	if err != nil {
		var usage *domain.UsageError
		switch {
		case errors.As(err, &usage):
			span.SetAttributes(attribute.String("result", "usage"))
			d.replier.Reply(ctx, ev, usage.Usage)
		case errors.Is(err, domain.ErrUnrecognizedCommand):
			span.SetAttributes(attribute.String("result", "unrecognized"))
			if d.cfg.ReplyToUnrecognized && d.allowUnrecognizedReply(ev.Sender) {
				d.replier.Reply(ctx, ev, "Unrecognized command")
			}
		}
		d.logger.Debugw("line did not parse", "sender", ev.Sender, "origin", ev.Origin, "error", err)
		return
	}

	privilege := d.resolver.Resolve(ev.Sender, ev.Role)
	span.SetAttributes(attribute.String("input.privilege", privilege.String()))

	switch c := cmd.(type) {
	case domain.MovementCommand:
		span.SetAttributes(attribute.String("command.kind", "movement"))
		d.dispatchMovement(ctx, ev, privilege, c)
	case domain.ModerationCommand:
		span.SetAttributes(attribute.String("command.kind", c.Action.String()))
		d.dispatchModeration(ctx, ev, privilege, c)
	}
}

func (d *dispatcher) dispatchMovement(ctx context.Context, ev domain.InputEvent, privilege domain.Privilege, cmd domain.MovementCommand) {
	game, ok := d.registry.Current()
	if !ok {
		d.reject(ctx, ev, "no_active_game", "No game is currently active")
		return
	}

	now := d.now()
	if d.store.CurrentMode() == domain.ModeDemocracy {
		if d.store.IsBlocked(ev.Sender, now) {
			d.reject(ctx, ev, "blocked", "You're blocked from sending commands")
			return
		}
		allowed, remaining := d.store.CheckAndRecordCooldown(ev.Sender, now, privilege)
		if !allowed {
			d.reject(ctx, ev, "on_cooldown",
				fmt.Sprintf("On cooldown, try again in %s", utils.FormatDuration(remaining)))
			return
		}
	}

	vocabulary := game.Vocabulary()
	for _, b := range cmd.Buttons {
		if !vocabulary.Contains(b) {
			d.reject(ctx, ev, "unsupported_button",
				fmt.Sprintf("Unsupported button for %s: %s", game.Name, b))
			return
		}
	}

	hold := cmd.Duration
	if !cmd.DurationGiven {
		hold = d.cfg.DefaultHold
	}
	clamped := cmd.Clamped
	if hold > domain.MaxHold {
		hold = domain.MaxHold
		clamped = true
	}

	_, pressSpan := d.tracer.Start(ctx, "actuator.press")
	d.pad.Press(cmd.Buttons, hold)
	pressSpan.End()

	detail := map[string]string{
		"kind":    "movement",
		"buttons": joinButtons(cmd.Buttons),
		"hold_ms": strconv.FormatInt(hold.Milliseconds(), 10),
	}
	if clamped {
		detail["clamped"] = "true"
	}
	d.stampLatency(detail, ev)
	d.publish(domain.EventCommandAccepted, ev, detail)
	d.logger.Debugw("movement dispatched",
		"sender", ev.Sender, "buttons", detail["buttons"], "hold", hold, "clamped", clamped)
}

func (d *dispatcher) dispatchModeration(ctx context.Context, ev domain.InputEvent, privilege domain.Privilege, cmd domain.ModerationCommand) {
	if !privilege.AtLeast(minPrivilege[cmd.Action]) {
		d.logger.Infow("moderation command denied",
			"action", cmd.Action, "sender", ev.Sender, "privilege", privilege)
		d.reject(ctx, ev, "privilege_denied", "You don't have permission to do that")
		return
	}

	reply := d.executeModeration(ctx, ev, privilege, cmd)
	if reply != "" {
		d.replier.Reply(ctx, ev, reply)
	}
	d.logger.Infow("moderation command",
		"action", cmd.Action, "sender", ev.Sender, "origin", ev.Origin,
		"privilege", privilege, "reply", reply)
}

// executeModeration runs an authorized command and returns the reply text.
// An empty return means the branch already sent its replies.
func (d *dispatcher) executeModeration(ctx context.Context, ev domain.InputEvent, privilege domain.Privilege, cmd domain.ModerationCommand) string {
	now := d.now()

	switch cmd.Action {
	case domain.ActionBlock:
		var expiry *time.Time
		if cmd.BlockSeconds != nil {
			t := now.Add(time.Duration(*cmd.BlockSeconds) * time.Second)
			expiry = &t
		}
		d.store.Block(cmd.User, expiry)
		detail := map[string]string{"user": cmd.User}
		if expiry == nil {
			d.publish(domain.EventBlockAdded, ev, detail)
			return fmt.Sprintf("Blocked %s forever", cmd.User)
		}
		detail["until"] = utils.FormatExpiry(*expiry)
		d.publish(domain.EventBlockAdded, ev, detail)
		return fmt.Sprintf("Blocked %s until %s", cmd.User, utils.FormatExpiry(*expiry))

	case domain.ActionUnblock:
		if !d.store.Unblock(cmd.User) {
			return fmt.Sprintf("%s is not blocked", cmd.User)
		}
		d.publish(domain.EventBlockRemoved, ev, map[string]string{"user": cmd.User})
		return fmt.Sprintf("Unblocked %s", cmd.User)

	case domain.ActionOp:
		if d.store.AddOperator(cmd.User) {
			d.publish(domain.EventOperatorAdded, ev, map[string]string{"user": cmd.User})
		}
		return fmt.Sprintf("Added %s as operator", cmd.User)

	case domain.ActionDeop:
		if !d.store.RemoveOperator(cmd.User) {
			return fmt.Sprintf("%s is not an operator", cmd.User)
		}
		d.publish(domain.EventOperatorRemoved, ev, map[string]string{"user": cmd.User})
		return fmt.Sprintf("Removed %s as operator", cmd.User)

	case domain.ActionGame:
		game, err := d.registry.Switch(ctx, cmd.Name)
		switch {
		case errors.Is(err, domain.ErrUnknownGame):
			return fmt.Sprintf("No game %s found, see the full list with %q", cmd.Name, "tp games")
		case err != nil:
			d.logger.Errorw("switching game", "game", cmd.Name, "error", err)
			return fmt.Sprintf("Failed to switch to game: %s", cmd.Name)
		}
		d.publish(domain.EventGameSwitched, ev, map[string]string{"game": game.Name})
		return fmt.Sprintf("Switched to game: %s", game.Name)

	case domain.ActionStop:
		name, ok := d.registry.Stop(ctx)
		if !ok {
			return "No game is currently active"
		}
		d.publish(domain.EventGameStopped, ev, map[string]string{"game": name})
		return fmt.Sprintf("Stopped %s", name)

	case domain.ActionList:
		return d.listReply(cmd.Topic, now)

	case domain.ActionMode:
		if cmd.Mode == nil {
			return fmt.Sprintf("Current mode is %s", d.store.CurrentMode())
		}
		changed := d.store.CurrentMode() != *cmd.Mode
		d.store.SetMode(*cmd.Mode)
		if changed {
			d.publish(domain.EventModeChanged, ev, map[string]string{"mode": cmd.Mode.String()})
		}
		return fmt.Sprintf("Set mode to %s", *cmd.Mode)

	case domain.ActionCooldown:
		changed := d.store.Cooldown() != cmd.Seconds
		d.store.SetCooldown(cmd.Seconds)
		if changed {
			d.publish(domain.EventCooldownChanged, ev,
				map[string]string{"seconds": strconv.FormatInt(cmd.Seconds, 10)})
		}
		return fmt.Sprintf("Set cooldown to %d seconds", cmd.Seconds)

	case domain.ActionSave:
		if err := d.SaveState(ctx); err != nil {
			d.logger.Errorw("saving moderation state", "backend", d.snapshots.Name(), "error", err)
			return "Failed to save moderation state"
		}
		return "Saved moderation state"

	case domain.ActionLoad:
		warning, err := d.loadState(ctx)
		switch {
		case errors.Is(err, domain.ErrSnapshotNotFound):
			return "No saved moderation state found"
		case err != nil:
			d.logger.Errorw("loading moderation state", "backend", d.snapshots.Name(), "error", err)
			return "Failed to load moderation state"
		}
		d.replier.Reply(ctx, ev, "Loaded moderation state")
		if warning != "" {
			d.replier.Reply(ctx, ev, warning)
		}
		return ""

	case domain.ActionReset:
		if err := d.registry.Reset(ctx); err != nil {
			if errors.Is(err, domain.ErrNoActiveGame) {
				return "No game is currently active"
			}
			d.logger.Errorw("resetting game", "error", err)
			return "Failed to reset the game"
		}
		game, _ := d.registry.Current()
		return fmt.Sprintf("Reset %s", game.Name)

	case domain.ActionControls:
		text, err := d.registry.Controls(cmd.Name)
		switch {
		case errors.Is(err, domain.ErrNoActiveGame):
			return "No game is currently active"
		case errors.Is(err, domain.ErrUnknownGame):
			return fmt.Sprintf("No game %s found, see the full list with %q", cmd.Name, "tp games")
		}
		return text

	default:
		return helpText(privilege)
	}
}

func (d *dispatcher) listReply(topic domain.ListTopic, now time.Time) string {
	switch topic {
	case domain.ListBlocks:
		blocks := d.store.Blocks(now)
		if len(blocks) == 0 {
			return "No blocked users"
		}
		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if b.ExpiresAt != nil {
				parts = append(parts, fmt.Sprintf("%s (until %s)", b.Handle, utils.FormatExpiry(*b.ExpiresAt)))
			} else {
				parts = append(parts, fmt.Sprintf("%s (forever)", b.Handle))
			}
		}
		return "Blocked: " + strings.Join(parts, ", ")

	case domain.ListOperators:
		operators := d.store.Operators()
		if len(operators) == 0 {
			return "No operators"
		}
		return "Operators: " + strings.Join(operators, ", ")

	default:
		infos := d.registry.List()
		if len(infos) == 0 {
			return "No games configured"
		}
		var sb strings.Builder
		sb.WriteString("Games:")
		for i, info := range infos {
			fmt.Fprintf(&sb, " %d. %s", i+1, info.Name)
			if info.Active {
				sb.WriteString(" (active)")
			}
		}
		return sb.String()
	}
}

// Bootstrap restores persisted state at startup. A missing snapshot means
// defaults; a corrupt one is a startup failure.
func (d *dispatcher) Bootstrap(ctx context.Context) error {
	warning, err := d.loadState(ctx)
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		d.logger.Infow("no saved state, starting with defaults", "backend", d.snapshots.Name())
		return nil
	case err != nil:
		return fmt.Errorf("loading saved state: %w", err)
	}
	if warning != "" {
		d.logger.Warnw("restored state needed repair", "detail", warning)
	}
	d.logger.Infow("restored moderation state",
		"backend", d.snapshots.Name(),
		"mode", d.store.CurrentMode(),
		"cooldown_secs", d.store.Cooldown(),
		"active_game", d.store.ActiveGame())
	return nil
}

// SaveState captures the live state and writes it to the snapshot store.
// The snapshot_saved event carries a result field so subscribers see failed
// saves too.
func (d *dispatcher) SaveState(ctx context.Context) error {
	snapshot := d.store.Snapshot(d.now())
	detail := map[string]string{
		"backend":   d.snapshots.Name(),
		"blocks":    strconv.Itoa(len(snapshot.Blocks)),
		"operators": strconv.Itoa(len(snapshot.Operators)),
		"result":    "ok",
	}
	err := d.snapshots.Save(ctx, snapshot)
	if err != nil {
		detail["result"] = "error"
	}
	d.bus.Publish(domain.RouterEvent{
		ID:     uuid.NewString(),
		Kind:   domain.EventSnapshotSaved,
		At:     d.now(),
		Detail: detail,
	})
	return err
}

// loadState replaces live state with the persisted snapshot and reconciles
// the running game process with the restored selection. The returned warning
// is non-empty when the restored state needed repair.
func (d *dispatcher) loadState(ctx context.Context) (string, error) {
	snapshot, err := d.snapshots.Load(ctx)
	if err != nil {
		return "", err
	}
	if err := snapshot.Validate(); err != nil {
		return "", err
	}

	previous := d.store.ActiveGame()
	restored := snapshot.ActiveGame
	sameGame := restored != "" && strings.EqualFold(previous, restored)

	if previous != "" && !sameGame {
		d.registry.Stop(ctx)
	}
	d.store.Restore(snapshot)

	var warning string
	if restored != "" {
		game, ok := d.registry.Lookup(restored)
		switch {
		case !ok:
			d.store.SetActiveGame("")
			warning = fmt.Sprintf("Saved game %s is not configured, cleared the active game", restored)
		case sameGame:
			// Same title, keep its process running.
			d.store.SetActiveGame(game.Name)
		default:
			if _, err := d.registry.Switch(ctx, game.Name); err != nil {
				d.logger.Errorw("starting restored game", "game", game.Name, "error", err)
				warning = fmt.Sprintf("Failed to start game %s", game.Name)
			}
		}
	}

	d.bus.Publish(domain.RouterEvent{
		ID:   uuid.NewString(),
		Kind: domain.EventSnapshotLoaded,
		At:   d.now(),
		Detail: map[string]string{
			"backend":     d.snapshots.Name(),
			"mode":        snapshot.Mode.String(),
			"active_game": d.store.ActiveGame(),
		},
	})
	return warning, nil
}

// allowUnrecognizedReply throttles "Unrecognized command" replies per
// sender. The map is pruned once it outgrows a busy channel's active set.
func (d *dispatcher) allowUnrecognizedReply(sender string) bool {
	now := d.now()
	if last, ok := d.lastUnrecognized[sender]; ok && now.Sub(last) < unrecognizedReplyInterval {
		return false
	}

	if len(d.lastUnrecognized) > 1024 {
		for handle, last := range d.lastUnrecognized {
			if now.Sub(last) >= unrecognizedReplyInterval {
				delete(d.lastUnrecognized, handle)
			}
		}
	}

	d.lastUnrecognized[sender] = now
	return true
}

func (d *dispatcher) reject(ctx context.Context, ev domain.InputEvent, reason, reply string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("result", reason))
	d.replier.Reply(ctx, ev, reply)
	detail := map[string]string{"reason": reason}
	d.stampLatency(detail, ev)
	d.publish(domain.EventCommandRejected, ev, detail)
	d.logger.Debugw("command rejected", "sender", ev.Sender, "origin", ev.Origin, "reason", reason)
}

// stampLatency records receipt-to-outcome time, queue wait included. Events
// without a receipt timestamp (tests, synthetic input) are left unstamped.
func (d *dispatcher) stampLatency(detail map[string]string, ev domain.InputEvent) {
	if ev.At.IsZero() {
		return
	}
	if lat := d.now().Sub(ev.At); lat >= 0 {
		detail["latency_us"] = strconv.FormatInt(lat.Microseconds(), 10)
	}
}

func (d *dispatcher) publish(kind domain.EventKind, ev domain.InputEvent, detail map[string]string) {
	d.bus.Publish(domain.RouterEvent{
		ID:     uuid.NewString(),
		Kind:   kind,
		At:     d.now(),
		Origin: ev.Origin,
		Sender: ev.Sender,
		Detail: detail,
	})
}

func helpText(privilege domain.Privilege) string {
	parts := []string{"tp games", "tp list <blocks|ops|games>", "tp controls [game]", "tp help"}
	if privilege.AtLeast(domain.PrivilegeOperator) {
		parts = append(parts, "tp save", "tp load", "tp reset")
	}
	if privilege.AtLeast(domain.PrivilegeChannelModerator) {
		parts = append(parts,
			"tp block <user> [duration]", "tp unblock <user>",
			"tp op <user>", "tp deop <user>",
			"tp game <name>", "tp stop",
			"tp mode [democracy|anarchy]", "tp cooldown <duration>")
	}
	return "Commands: " + strings.Join(parts, " | ")
}

func joinButtons(buttons []domain.Button) string {
	names := make([]string, 0, len(buttons))
	for _, b := range buttons {
		names = append(names, b.String())
	}
	return strings.Join(names, " ")
}
