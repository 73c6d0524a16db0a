package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// ErrStreamClosed is returned by Submit after Close.
var ErrStreamClosed = errors.New("input stream closed")

const defaultAggregatorBuffer = 128

// Aggregator merges every input surface into the single ordered stream the
// dispatcher consumes. Arrival order on the channel is the global command
// order; there is no other serialization point.
type Aggregator struct {
	events chan domain.InputEvent
	logger *zap.SugaredLogger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewAggregator creates an aggregator with the given channel buffer.
func NewAggregator(buffer int, logger *zap.SugaredLogger) *Aggregator {
	if buffer <= 0 {
		buffer = defaultAggregatorBuffer
	}
	return &Aggregator{
		events: make(chan domain.InputEvent, buffer),
		logger: logger,
	}
}

var _ ports.InputSink = (*Aggregator)(nil)

// Events returns the merged stream. It closes after Close once in-flight
// submissions have landed.
func (a *Aggregator) Events() <-chan domain.InputEvent {
	return a.events
}

// Submit queues one event, assigning an ID and arrival time when the
// producer left them empty. It blocks while the stream is full so a slow
// dispatcher applies backpressure to producers instead of dropping input.
func (a *Aggregator) Submit(ctx context.Context, event domain.InputEvent) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrStreamClosed
	}
	a.pending.Add(1)
	a.mu.Unlock()
	defer a.pending.Done()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	select {
	case a.events <- event:
		return nil
	case <-ctx.Done():
		a.logger.Debugw("dropping input, submit cancelled",
			"origin", event.Origin,
			"sender", event.Sender,
		)
		return ctx.Err()
	}
}

// Depth reports how many events are queued, for the input depth gauge.
func (a *Aggregator) Depth() int {
	return len(a.events)
}

// Close stops accepting submissions and closes the stream once in-flight
// Submit calls finish. The dispatcher keeps draining until then.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.pending.Wait()
	close(a.events)
}
