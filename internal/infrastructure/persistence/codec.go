package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

// encodeSnapshot serializes the versioned envelope all backends share.
func encodeSnapshot(snap domain.Snapshot) ([]byte, error) {
	snap.Version = domain.SnapshotVersion
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses stored bytes, migrates legacy layouts and
// validates. Anything undecodable maps to ErrCorruptSnapshot so callers
// refuse to replace live state with it.
func decodeSnapshot(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}

	migrateSnapshot(&snap)

	if err := snap.Validate(); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// migrateSnapshot upgrades version 0, the layout written before the
// envelope carried a version field: blocks and operators only, with
// unnormalized handles, democracy and no cooldown implied.
func migrateSnapshot(snap *domain.Snapshot) {
	if snap.Version != 0 {
		return
	}
	for i, b := range snap.Blocks {
		snap.Blocks[i].Handle = domain.NormalizeHandle(b.Handle)
	}
	for i, op := range snap.Operators {
		snap.Operators[i] = domain.NormalizeHandle(op)
	}
	snap.Version = domain.SnapshotVersion
}
