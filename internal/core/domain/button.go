package domain

import "sort"

// Button identifies one control on the virtual pad.
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonC
	ButtonX
	ButtonY
	ButtonZ
	ButtonTL
	ButtonTR
	ButtonStart
	ButtonSelect
	ButtonMode
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// AllButtons is the full catalog in display order.
var AllButtons = []Button{
	ButtonA, ButtonB, ButtonC, ButtonX, ButtonY, ButtonZ,
	ButtonTL, ButtonTR, ButtonStart, ButtonSelect, ButtonMode,
	ButtonUp, ButtonDown, ButtonLeft, ButtonRight,
}

var buttonNames = map[Button]string{
	ButtonA:      "a",
	ButtonB:      "b",
	ButtonC:      "c",
	ButtonX:      "x",
	ButtonY:      "y",
	ButtonZ:      "z",
	ButtonTL:     "tl",
	ButtonTR:     "tr",
	ButtonStart:  "start",
	ButtonSelect: "select",
	ButtonMode:   "mode",
	ButtonUp:     "up",
	ButtonDown:   "down",
	ButtonLeft:   "left",
	ButtonRight:  "right",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "unknown"
}

// ParseButton maps a lowercase chat token to a button. The Mode button is
// deliberately absent: it is reserved for reset combos and cannot be driven
// from chat.
func ParseButton(token string) (Button, bool) {
	switch token {
	case "a":
		return ButtonA, true
	case "b":
		return ButtonB, true
	case "c":
		return ButtonC, true
	case "x":
		return ButtonX, true
	case "y":
		return ButtonY, true
	case "z":
		return ButtonZ, true
	case "tl", "lt", "lb":
		return ButtonTL, true
	case "tr", "rt", "rb":
		return ButtonTR, true
	case "start":
		return ButtonStart, true
	case "select":
		return ButtonSelect, true
	case "up", "u":
		return ButtonUp, true
	case "down", "d":
		return ButtonDown, true
	case "left", "l":
		return ButtonLeft, true
	case "right", "r":
		return ButtonRight, true
	default:
		return 0, false
	}
}

// ParseConfigButton maps a configuration token to a button. Unlike chat
// tokens this includes "mode", so reset combos can reach it.
func ParseConfigButton(token string) (Button, bool) {
	if token == "mode" {
		return ButtonMode, true
	}
	return ParseButton(token)
}

// ButtonSet is a membership set over the button catalog.
type ButtonSet map[Button]struct{}

func NewButtonSet(buttons ...Button) ButtonSet {
	s := make(ButtonSet, len(buttons))
	for _, b := range buttons {
		s[b] = struct{}{}
	}
	return s
}

// FullButtonSet covers every chat-reachable button (Mode excluded).
func FullButtonSet() ButtonSet {
	s := make(ButtonSet, len(AllButtons))
	for _, b := range AllButtons {
		if b == ButtonMode {
			continue
		}
		s[b] = struct{}{}
	}
	return s
}

func (s ButtonSet) Contains(b Button) bool {
	_, ok := s[b]
	return ok
}

func (s ButtonSet) Add(b Button) {
	s[b] = struct{}{}
}

// Buttons returns the members in catalog order.
func (s ButtonSet) Buttons() []Button {
	out := make([]Button, 0, len(s))
	for b := range s {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
