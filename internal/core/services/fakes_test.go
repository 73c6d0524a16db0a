package services

import (
	"context"
	"sync"
	"time"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

type fakeRunner struct {
	mu       sync.Mutex
	running  string
	starts   []string
	stops    int
	startErr error
}

func (f *fakeRunner) Start(_ context.Context, game domain.Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = game.Name
	f.starts = append(f.starts, game.Name)
	return nil
}

func (f *fakeRunner) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running != "" {
		f.stops++
		f.running = ""
	}
	return nil
}

func (f *fakeRunner) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running != ""
}

type recordedPress struct {
	Buttons []domain.Button
	Hold    time.Duration
}

type fakeActuator struct {
	mu      sync.Mutex
	presses []recordedPress
}

func (f *fakeActuator) Press(buttons []domain.Button, hold time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make([]domain.Button, len(buttons))
	copy(copied, buttons)
	f.presses = append(f.presses, recordedPress{Buttons: copied, Hold: hold})
}

func (f *fakeActuator) Held() []domain.Button { return nil }

func (f *fakeActuator) ReleaseAll() {}

func (f *fakeActuator) Close() {}

func (f *fakeActuator) all() []recordedPress {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedPress, len(f.presses))
	copy(out, f.presses)
	return out
}

type recordedReply struct {
	To   string
	Text string
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []recordedReply
}

func (f *fakeReplier) Reply(_ context.Context, event domain.InputEvent, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, recordedReply{To: event.Sender, Text: text})
}

func (f *fakeReplier) all() []recordedReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedReply, len(f.replies))
	copy(out, f.replies)
	return out
}

func (f *fakeReplier) last() recordedReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return recordedReply{}
	}
	return f.replies[len(f.replies)-1]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.RouterEvent
}

func (f *fakePublisher) Publish(event domain.RouterEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) kinds() []domain.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventKind, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	saved   *domain.Snapshot
	saveErr error
	loadErr error
}

func (f *fakeSnapshotStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	s := snapshot
	f.saved = &s
	return nil
}

func (f *fakeSnapshotStore) Load(_ context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return domain.Snapshot{}, f.loadErr
	}
	if f.saved == nil {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return *f.saved, nil
}

func (f *fakeSnapshotStore) Name() string { return "fake" }

func (f *fakeSnapshotStore) Close() error { return nil }
