package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

func event(id string, kind domain.EventKind) domain.RouterEvent {
	return domain.RouterEvent{ID: id, Kind: kind, At: time.Now()}
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(4, zaptest.NewLogger(t).Sugar())
	defer bus.Close()

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()
	assert.Equal(t, 2, bus.Subscribers())

	bus.Publish(event("e1", domain.EventCommandAccepted))

	assert.Equal(t, "e1", (<-first).ID)
	assert.Equal(t, "e1", (<-second).ID)
}

func TestBusSlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus(2, zaptest.NewLogger(t).Sugar())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(event("e1", domain.EventCommandAccepted))
	bus.Publish(event("e2", domain.EventButtonPressed))
	bus.Publish(event("e3", domain.EventButtonReleased))

	assert.Equal(t, "e2", (<-ch).ID, "oldest event is shed first")
	assert.Equal(t, "e3", (<-ch).ID)
	assert.Empty(t, ch)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(1, zaptest.NewLogger(t).Sugar())
	defer bus.Close()

	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(event("e", domain.EventCommandAccepted))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an undrained subscriber")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(4, zaptest.NewLogger(t).Sugar())
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open, "cancel closes the subscriber channel")
	assert.Equal(t, 0, bus.Subscribers())

	bus.Publish(event("e1", domain.EventCommandAccepted))
}

func TestBusClose(t *testing.T) {
	bus := NewBus(4, zaptest.NewLogger(t).Sugar())

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()
	bus.Close()

	_, open := <-ch
	assert.False(t, open)

	bus.Publish(event("e1", domain.EventCommandAccepted))

	late, lateCancel := bus.Subscribe()
	defer lateCancel()
	_, open = <-late
	require.False(t, open, "subscriptions after close are born closed")
}
