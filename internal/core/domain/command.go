package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shift-devs/twitch-gamepad/pkg/duration"
)

const (
	// MaxHold caps any button hold regardless of what the sender asked for.
	MaxHold = 5 * time.Second
	// DefaultHold applies when a movement line omits its duration.
	DefaultHold = 500 * time.Millisecond
)

// Command is a parsed input line: a MovementCommand or a ModerationCommand.
// Lines matching neither family fail with ErrUnrecognizedCommand.
type Command interface {
	command()
}

// MovementCommand presses a set of buttons for one shared duration.
type MovementCommand struct {
	Buttons       []Button // unique, input order
	Duration      time.Duration
	DurationGiven bool // false when the line omitted a duration
	Clamped       bool // true when the requested value exceeded MaxHold
}

func (MovementCommand) command() {}

// ModAction enumerates moderation subcommands.
type ModAction int

const (
	ActionBlock ModAction = iota
	ActionUnblock
	ActionOp
	ActionDeop
	ActionGame
	ActionStop
	ActionList
	ActionMode
	ActionCooldown
	ActionSave
	ActionLoad
	ActionReset
	ActionControls
	ActionHelp
)

func (a ModAction) String() string {
	switch a {
	case ActionBlock:
		return "block"
	case ActionUnblock:
		return "unblock"
	case ActionOp:
		return "op"
	case ActionDeop:
		return "deop"
	case ActionGame:
		return "game"
	case ActionStop:
		return "stop"
	case ActionList:
		return "list"
	case ActionMode:
		return "mode"
	case ActionCooldown:
		return "cooldown"
	case ActionSave:
		return "save"
	case ActionLoad:
		return "load"
	case ActionReset:
		return "reset"
	case ActionControls:
		return "controls"
	default:
		return "help"
	}
}

// ListTopic selects what a list command enumerates.
type ListTopic int

const (
	ListBlocks ListTopic = iota
	ListOperators
	ListGames
)

// ModerationCommand is a tp-prefixed administrative command. Only the
// fields relevant to Action are set.
type ModerationCommand struct {
	Action       ModAction
	User         string // block/unblock/op/deop target, normalized
	BlockSeconds *int64 // block duration, nil = indefinite
	Name         string // game or controls target, may contain spaces
	Mode         *Mode  // mode to set, nil = report current
	Seconds      int64  // cooldown seconds
	Topic        ListTopic
}

func (ModerationCommand) command() {}

// UsageError marks a recognized subcommand with missing or malformed
// arguments. The Usage line goes back to the sender verbatim.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return e.Usage }

// ParseLine parses one sanitized input line. Tokenization is
// case-insensitive and whitespace-separated. Unknown tokens anywhere in a
// movement line invalidate the whole line; there is no partial execution.
func ParseLine(line string) (Command, error) {
	tokens := strings.Fields(strings.ToLower(line))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrUnrecognizedCommand)
	}
	if tokens[0] == "tp" {
		return parseModeration(tokens[1:])
	}
	return parseMovement(tokens)
}

func parseMovement(tokens []string) (Command, error) {
	cmd := MovementCommand{Duration: DefaultHold}

	if isNumeric(tokens[len(tokens)-1]) {
		cmd.DurationGiven = true
		d, ok := parseSeconds(tokens[len(tokens)-1])
		if !ok || d > MaxHold {
			cmd.Clamped = true
			d = MaxHold
		}
		cmd.Duration = d
		tokens = tokens[:len(tokens)-1]
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: duration without buttons", ErrUnrecognizedCommand)
		}
	}

	seen := make(map[Button]struct{}, len(tokens))
	for _, tok := range tokens {
		b, ok := ParseButton(tok)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnrecognizedCommand, tok)
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		cmd.Buttons = append(cmd.Buttons, b)
	}
	return cmd, nil
}

func parseModeration(args []string) (Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing subcommand", ErrUnrecognizedCommand)
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "block":
		if len(rest) < 1 || len(rest) > 2 || NormalizeHandle(rest[0]) == "" {
			return nil, &UsageError{Usage: "Usage: tp block <user> [duration]"}
		}
		cmd := ModerationCommand{Action: ActionBlock, User: NormalizeHandle(rest[0])}
		if len(rest) == 2 {
			secs, err := duration.Parse(rest[1])
			if err != nil {
				return nil, &UsageError{Usage: "Usage: tp block <user> [duration]"}
			}
			cmd.BlockSeconds = &secs
		}
		return cmd, nil

	case "unblock":
		return singleUser(ActionUnblock, rest, "Usage: tp unblock <user>")

	case "op":
		return singleUser(ActionOp, rest, "Usage: tp op <user>")

	case "deop":
		return singleUser(ActionDeop, rest, "Usage: tp deop <user>")

	case "game", "switch", "start":
		if len(rest) == 0 {
			return nil, &UsageError{Usage: "Usage: tp game <name>"}
		}
		return ModerationCommand{Action: ActionGame, Name: strings.Join(rest, " ")}, nil

	case "stop":
		if len(rest) != 0 {
			return nil, &UsageError{Usage: "Usage: tp stop"}
		}
		return ModerationCommand{Action: ActionStop}, nil

	case "list":
		if len(rest) != 1 {
			return nil, &UsageError{Usage: "Usage: tp list <blocks|ops|games>"}
		}
		switch rest[0] {
		case "blocks", "blocked", "block":
			return ModerationCommand{Action: ActionList, Topic: ListBlocks}, nil
		case "ops", "operators", "op":
			return ModerationCommand{Action: ActionList, Topic: ListOperators}, nil
		case "games", "game":
			return ModerationCommand{Action: ActionList, Topic: ListGames}, nil
		default:
			return nil, &UsageError{Usage: "Usage: tp list <blocks|ops|games>"}
		}

	case "games":
		if len(rest) != 0 {
			return nil, &UsageError{Usage: "Usage: tp games"}
		}
		return ModerationCommand{Action: ActionList, Topic: ListGames}, nil

	case "mode":
		switch len(rest) {
		case 0:
			return ModerationCommand{Action: ActionMode}, nil
		case 1:
			m, ok := ParseMode(rest[0])
			if !ok {
				return nil, &UsageError{Usage: "Usage: tp mode [democracy|anarchy]"}
			}
			return ModerationCommand{Action: ActionMode, Mode: &m}, nil
		default:
			return nil, &UsageError{Usage: "Usage: tp mode [democracy|anarchy]"}
		}

	case "cooldown":
		if len(rest) != 1 {
			return nil, &UsageError{Usage: "Usage: tp cooldown <duration>"}
		}
		secs, err := parseCooldown(rest[0])
		if err != nil {
			return nil, &UsageError{Usage: "Usage: tp cooldown <duration>"}
		}
		return ModerationCommand{Action: ActionCooldown, Seconds: secs}, nil

	case "save", "load", "reset":
		if len(rest) != 0 {
			return nil, &UsageError{Usage: "Usage: tp " + sub}
		}
		actions := map[string]ModAction{"save": ActionSave, "load": ActionLoad, "reset": ActionReset}
		return ModerationCommand{Action: actions[sub]}, nil

	case "controls":
		return ModerationCommand{Action: ActionControls, Name: strings.Join(rest, " ")}, nil

	case "help", "commands":
		return ModerationCommand{Action: ActionHelp}, nil

	default:
		return nil, fmt.Errorf("%w: tp %s", ErrUnrecognizedCommand, sub)
	}
}

func singleUser(action ModAction, rest []string, usage string) (Command, error) {
	if len(rest) != 1 || NormalizeHandle(rest[0]) == "" {
		return nil, &UsageError{Usage: usage}
	}
	return ModerationCommand{Action: action, User: NormalizeHandle(rest[0])}, nil
}

// parseCooldown accepts a bare integer as seconds or a compact duration
// string like 5m30s.
func parseCooldown(s string) (int64, error) {
	if isInteger(s) {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil || secs > duration.MaxSeconds {
			return 0, fmt.Errorf("%w: %q", duration.ErrInvalid, s)
		}
		return secs, nil
	}
	return duration.Parse(s)
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isNumeric matches a non-negative decimal: digits with at most one dot.
func isNumeric(s string) bool {
	dot := false
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits
}

// parseSeconds converts a validated numeric token into a duration. A value
// too large for time.ParseDuration is reported as not-ok and the caller
// clamps it.
func parseSeconds(token string) (time.Duration, bool) {
	d, err := time.ParseDuration(token + "s")
	if err != nil {
		return 0, false
	}
	return d, true
}
