package domain

import (
	"fmt"
	"strings"
)

// Mode toggles whether blocks and cooldowns are enforced for movement
// commands. Switching to Anarchy wipes existing blocks and cooldown
// bookkeeping; switching back restores nothing.
type Mode int

const (
	ModeDemocracy Mode = iota
	ModeAnarchy
)

func (m Mode) String() string {
	switch m {
	case ModeAnarchy:
		return "Anarchy"
	default:
		return "Democracy"
	}
}

// ParseMode accepts mode names case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "democracy":
		return ModeDemocracy, true
	case "anarchy":
		return ModeAnarchy, true
	default:
		return ModeDemocracy, false
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(m.String())), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, ok := ParseMode(string(text))
	if !ok {
		return fmt.Errorf("%w: unknown mode %q", ErrCorruptSnapshot, string(text))
	}
	*m = parsed
	return nil
}
