package domain

import (
	"strings"
	"time"
)

// NormalizeHandle canonicalizes a user handle: trimmed, lowercased, leading
// @ stripped. All store keys and block targets use this form; equality on
// handles is defined on the normalized string.
func NormalizeHandle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(s)
}

// Origin labels which input surface produced an event.
type Origin string

const (
	OriginChat    Origin = "chat"
	OriginConsole Origin = "console"
	OriginAPI     Origin = "api"
)

// InputEvent is one raw line entering the router.
type InputEvent struct {
	ID      string
	Origin  Origin
	Sender  string // normalized handle
	Display string // original display name, used in replies
	Role    ChannelRole
	Text    string
	At      time.Time
}
