package services

import (
	"sort"
	"sync"
	"time"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// moderationStore keeps all moderation state behind one mutex so every
// operation is a single linearizable transaction. The dispatcher goroutine
// is the only mutator; the status API and resolver read concurrently.
type moderationStore struct {
	mu         sync.Mutex
	blocks     map[string]*time.Time // normalized handle -> expiry, nil = indefinite
	operators  map[string]struct{}
	mode       domain.Mode
	cooldown   int64 // seconds, 0 = disabled
	lastAccept map[string]time.Time
	activeGame string

	// generation counts changes to snapshot-visible state. Cooldown
	// bookkeeping is not persisted and does not bump it.
	generation uint64
}

func NewModerationStore() ports.ModerationStore {
	return &moderationStore{
		blocks:     make(map[string]*time.Time),
		operators:  make(map[string]struct{}),
		mode:       domain.ModeDemocracy,
		lastAccept: make(map[string]time.Time),
	}
}

func (s *moderationStore) IsBlocked(handle string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.blocks[handle]
	if !ok {
		return false
	}
	if expiry != nil && !expiry.After(now) {
		delete(s.blocks, handle)
		s.generation++
		return false
	}
	return true
}

func (s *moderationStore) Block(handle string, expiresAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt != nil {
		t := *expiresAt
		expiresAt = &t
	}
	s.blocks[handle] = expiresAt
	s.generation++
}

func (s *moderationStore) Unblock(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[handle]; !ok {
		return false
	}
	delete(s.blocks, handle)
	s.generation++
	return true
}

func (s *moderationStore) AddOperator(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[handle]; ok {
		return false
	}
	s.operators[handle] = struct{}{}
	s.generation++
	return true
}

func (s *moderationStore) RemoveOperator(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[handle]; !ok {
		return false
	}
	delete(s.operators, handle)
	s.generation++
	return true
}

func (s *moderationStore) IsOperator(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.operators[handle]
	return ok
}

// SetMode applies a mode change. The transition into Anarchy wipes blocks
// and cooldown stamps; re-setting the current mode changes nothing.
func (s *moderationStore) SetMode(mode domain.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == mode {
		return
	}
	s.mode = mode
	if mode == domain.ModeAnarchy {
		s.blocks = make(map[string]*time.Time)
		s.lastAccept = make(map[string]time.Time)
	}
	s.generation++
}

func (s *moderationStore) CurrentMode() domain.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

func (s *moderationStore) SetCooldown(seconds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cooldown == seconds {
		return
	}
	s.cooldown = seconds
	s.generation++
}

func (s *moderationStore) Cooldown() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cooldown
}

// CheckAndRecordCooldown is check and record in one critical section so two
// rapid commands cannot both pass a shared window. Operators and above are
// allowed without the map ever being consulted or written.
func (s *moderationStore) CheckAndRecordCooldown(handle string, now time.Time, privilege domain.Privilege) (bool, time.Duration) {
	if privilege.AtLeast(domain.PrivilegeOperator) {
		return true, 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cooldown > 0 {
		if last, ok := s.lastAccept[handle]; ok {
			window := time.Duration(s.cooldown) * time.Second
			if elapsed := now.Sub(last); elapsed < window {
				return false, window - elapsed
			}
		}
	}
	s.lastAccept[handle] = now
	return true, 0
}

func (s *moderationStore) SetActiveGame(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeGame == name {
		return
	}
	s.activeGame = name
	s.generation++
}

func (s *moderationStore) ActiveGame() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeGame
}

func (s *moderationStore) Blocks(now time.Time) []domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.blocksLocked(now)
}

func (s *moderationStore) Operators() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.operatorsLocked()
}

func (s *moderationStore) Snapshot(now time.Time) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Snapshot{
		Version:         domain.SnapshotVersion,
		Blocks:          s.blocksLocked(now),
		Operators:       s.operatorsLocked(),
		Mode:            s.mode,
		CooldownSeconds: s.cooldown,
		ActiveGame:      s.activeGame,
	}
}

// Restore replaces the whole state with the snapshot's. Cooldown stamps are
// not persisted and start fresh.
func (s *moderationStore) Restore(snapshot domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks = make(map[string]*time.Time, len(snapshot.Blocks))
	for _, b := range snapshot.Blocks {
		var expiry *time.Time
		if b.ExpiresAt != nil {
			t := *b.ExpiresAt
			expiry = &t
		}
		s.blocks[b.Handle] = expiry
	}
	s.operators = make(map[string]struct{}, len(snapshot.Operators))
	for _, op := range snapshot.Operators {
		s.operators[op] = struct{}{}
	}
	s.mode = snapshot.Mode
	s.cooldown = snapshot.CooldownSeconds
	s.activeGame = snapshot.ActiveGame
	s.lastAccept = make(map[string]time.Time)
	s.generation++
}

func (s *moderationStore) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generation
}

func (s *moderationStore) blocksLocked(now time.Time) []domain.Block {
	out := make([]domain.Block, 0, len(s.blocks))
	for handle, expiry := range s.blocks {
		if expiry != nil && !expiry.After(now) {
			delete(s.blocks, handle)
			s.generation++
			continue
		}
		var copied *time.Time
		if expiry != nil {
			t := *expiry
			copied = &t
		}
		out = append(out, domain.Block{Handle: handle, ExpiresAt: copied})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (s *moderationStore) operatorsLocked() []string {
	out := make([]string, 0, len(s.operators))
	for op := range s.operators {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}
