package ports

import (
	"context"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

// SnapshotStore persists moderation snapshots. Load returns
// domain.ErrSnapshotNotFound when nothing has been saved yet and
// domain.ErrCorruptSnapshot when stored bytes cannot be decoded; neither
// may partially apply.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot domain.Snapshot) error
	Load(ctx context.Context) (domain.Snapshot, error)
	Name() string
	Close() error
}

// Device is the write side of the virtual pad. Implementations serialize
// nothing themselves; the actuator's writer goroutine is the only caller.
type Device interface {
	Press(button domain.Button) error
	Release(button domain.Button) error
	Close() error
}
