package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

func TestConsoleReaderSubmitsLines(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	agg := NewAggregator(8, logger)
	reader := NewConsoleReader(agg, strings.NewReader("tp help\n\n   tp a 2   \n"), logger)

	require.NoError(t, reader.Run(context.Background()))
	agg.Close()

	var events []domain.InputEvent
	for ev := range agg.Events() {
		events = append(events, ev)
	}

	require.Len(t, events, 2, "blank lines are skipped")
	assert.Equal(t, "tp help", events[0].Text)
	assert.Equal(t, "tp a 2", events[1].Text)
	for _, ev := range events {
		assert.Equal(t, domain.OriginConsole, ev.Origin)
		assert.Equal(t, "console", ev.Sender)
		assert.Equal(t, "console", ev.Display)
		assert.Equal(t, domain.RoleBroadcaster, ev.Role)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.At.IsZero())
	}
}

func TestConsoleReaderStripsTagCharacters(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	agg := NewAggregator(2, logger)
	reader := NewConsoleReader(agg, strings.NewReader("tp a\U000E0002\U000E007F\n"), logger)

	require.NoError(t, reader.Run(context.Background()))

	ev := <-agg.Events()
	assert.Equal(t, "tp a", ev.Text)
}

func TestConsoleReaderStopsWhenStreamClosed(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	agg := NewAggregator(2, logger)
	agg.Close()

	reader := NewConsoleReader(agg, strings.NewReader("tp help\n"), logger)
	assert.ErrorIs(t, reader.Run(context.Background()), ErrStreamClosed)
}
