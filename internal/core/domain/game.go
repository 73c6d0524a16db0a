package domain

import (
	"fmt"
	"strings"
)

// Game is one configured title the controller can drive.
type Game struct {
	Name       string
	Buttons    ButtonSet // empty means the full chat-reachable catalog
	Command    string    // optional launch binary
	Args       []string
	ResetCombo []Button // optional combo tapped by the reset command
	Controls   string   // optional reply text for the controls command
}

// Vocabulary returns the game's allow-set, defaulting to the full catalog
// when the configuration names no buttons.
func (g Game) Vocabulary() ButtonSet {
	if len(g.Buttons) == 0 {
		return FullButtonSet()
	}
	return g.Buttons
}

// ControlsText returns the configured controls message, or a generated
// listing of the vocabulary.
func (g Game) ControlsText() string {
	if g.Controls != "" {
		return g.Controls
	}
	names := make([]string, 0, len(g.Vocabulary()))
	for _, b := range g.Vocabulary().Buttons() {
		names = append(names, b.String())
	}
	return fmt.Sprintf("Available buttons for %s: %s", g.Name, strings.Join(names, ", "))
}

// GameInfo is a listing entry.
type GameInfo struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
