package domain

import "time"

// EventKind labels a router event for subscribers.
type EventKind string

const (
	EventCommandAccepted EventKind = "command_accepted"
	EventCommandRejected EventKind = "command_rejected"
	EventButtonPressed   EventKind = "button_pressed"
	EventButtonReleased  EventKind = "button_released"
	EventModeChanged     EventKind = "mode_changed"
	EventGameSwitched    EventKind = "game_switched"
	EventGameStopped     EventKind = "game_stopped"
	EventBlockAdded      EventKind = "block_added"
	EventBlockRemoved    EventKind = "block_removed"
	EventOperatorAdded   EventKind = "operator_added"
	EventOperatorRemoved EventKind = "operator_removed"
	EventCooldownChanged EventKind = "cooldown_changed"
	EventSnapshotSaved   EventKind = "snapshot_saved"
	EventSnapshotLoaded  EventKind = "snapshot_loaded"
)

// RouterEvent is published on the event bus after dispatch outcomes and
// device writes. Subscribers (overlay feed, metrics, audit log) observe
// off the dispatch path.
type RouterEvent struct {
	ID     string            `json:"id"`
	Kind   EventKind         `json:"kind"`
	At     time.Time         `json:"at"`
	Origin Origin            `json:"origin,omitempty"`
	Sender string            `json:"sender,omitempty"`
	Detail map[string]string `json:"detail,omitempty"`
}
