package persistence

import (
	"context"
	"sync"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// MemoryStore keeps the snapshot in process memory, for tests and for
// sessions that should not leave state behind.
type MemoryStore struct {
	mu   sync.Mutex
	snap *domain.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ ports.SnapshotStore = (*MemoryStore)(nil)

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	snapshot.Version = domain.SnapshotVersion
	stored := cloneSnapshot(snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &stored
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return cloneSnapshot(*s.snap), nil
}

func (s *MemoryStore) Close() error { return nil }

// cloneSnapshot copies the slices and expiry pointers so callers and the
// store never alias each other's state.
func cloneSnapshot(snap domain.Snapshot) domain.Snapshot {
	out := snap
	out.Blocks = make([]domain.Block, len(snap.Blocks))
	for i, b := range snap.Blocks {
		out.Blocks[i] = b
		if b.ExpiresAt != nil {
			expiry := *b.ExpiresAt
			out.Blocks[i].ExpiresAt = &expiry
		}
	}
	out.Operators = append([]string(nil), snap.Operators...)
	return out
}
