package domain

import "fmt"

// SnapshotVersion is the current persisted envelope version. Version 0
// files (written before the envelope carried a version field) are migrated
// on load.
const SnapshotVersion = 1

// Snapshot is the durable capture of moderation and game-selection state.
// It round-trips exactly through any snapshot store.
type Snapshot struct {
	Version         int      `json:"version"`
	Blocks          []Block  `json:"blocks"`
	Operators       []string `json:"operators"`
	Mode            Mode     `json:"mode"`
	CooldownSeconds int64    `json:"cooldown_seconds"`
	ActiveGame      string   `json:"active_game,omitempty"`
}

// Validate rejects snapshots that cannot have been produced by this system.
// A snapshot that fails validation must never replace live state.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, s.Version)
	}
	if s.CooldownSeconds < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrCorruptSnapshot)
	}
	seen := make(map[string]struct{}, len(s.Blocks))
	for _, b := range s.Blocks {
		if b.Handle == "" || b.Handle != NormalizeHandle(b.Handle) {
			return fmt.Errorf("%w: bad block handle %q", ErrCorruptSnapshot, b.Handle)
		}
		if _, dup := seen[b.Handle]; dup {
			return fmt.Errorf("%w: duplicate block for %q", ErrCorruptSnapshot, b.Handle)
		}
		seen[b.Handle] = struct{}{}
	}
	for _, op := range s.Operators {
		if op == "" || op != NormalizeHandle(op) {
			return fmt.Errorf("%w: bad operator handle %q", ErrCorruptSnapshot, op)
		}
	}
	return nil
}
