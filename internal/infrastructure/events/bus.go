package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

const defaultSubscriberBuffer = 64

// Bus fans router events out to in-process subscribers: the overlay feed,
// the metrics collector, audit sinks. Publish never blocks dispatch; a
// subscriber that stops draining loses its oldest events first.
type Bus struct {
	buffer int
	logger *zap.SugaredLogger

	mu     sync.Mutex
	subs   map[int]chan domain.RouterEvent
	nextID int
	closed bool
}

func NewBus(buffer int, logger *zap.SugaredLogger) *Bus {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Bus{
		buffer: buffer,
		logger: logger,
		subs:   make(map[int]chan domain.RouterEvent),
	}
}

var (
	_ ports.EventPublisher = (*Bus)(nil)
	_ ports.EventSource    = (*Bus)(nil)
)

// Publish delivers the event to every subscriber without ever blocking.
func (b *Bus) Publish(event domain.RouterEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- event:
			continue
		default:
		}

		// Full subscriber: shed its oldest event and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
			b.logger.Debugw("subscriber full, dropping event", "subscriber", id, "kind", event.Kind)
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel that unregisters and closes it. Cancel is idempotent.
func (b *Bus) Subscribe() (<-chan domain.RouterEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan domain.RouterEvent)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan domain.RouterEvent, b.buffer)
	b.subs[id] = ch

	return ch, func() { b.unsubscribe(id) }
}

// Subscribers reports the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel and refuses future publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}
