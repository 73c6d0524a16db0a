package chat

import (
	"testing"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

func newTestTwitchClient(t *testing.T, cfg TwitchConfig, agg *Aggregator) *twitchClient {
	t.Helper()
	return NewTwitchClient(cfg, agg, zaptest.NewLogger(t).Sugar()).(*twitchClient)
}

func TestTwitchRoleMapping(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	tc := newTestTwitchClient(t, TwitchConfig{Channel: "#Streamer"}, NewAggregator(1, logger))

	tests := []struct {
		name string
		msg  twitch.PrivateMessage
		want domain.ChannelRole
	}{
		{
			name: "broadcaster badge",
			msg:  twitch.PrivateMessage{User: twitch.User{Name: "someone", Badges: map[string]int{"broadcaster": 1}}},
			want: domain.RoleBroadcaster,
		},
		{
			name: "channel owner login without badge",
			msg:  twitch.PrivateMessage{User: twitch.User{Name: "STREAMER"}},
			want: domain.RoleBroadcaster,
		},
		{
			name: "moderator badge",
			msg:  twitch.PrivateMessage{User: twitch.User{Name: "modlady", Badges: map[string]int{"moderator": 1}}},
			want: domain.RoleModerator,
		},
		{
			name: "mod tag",
			msg:  twitch.PrivateMessage{User: twitch.User{Name: "modguy"}, Tags: map[string]string{"mod": "1"}},
			want: domain.RoleModerator,
		},
		{
			name: "plain viewer",
			msg:  twitch.PrivateMessage{User: twitch.User{Name: "viewer"}},
			want: domain.RoleNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tc.roleFor(tt.msg))
		})
	}
}

func TestTwitchHandleMessageSubmits(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	agg := NewAggregator(4, logger)
	tc := newTestTwitchClient(t, TwitchConfig{Channel: "streamer"}, agg)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tc.handleMessage(twitch.PrivateMessage{
		User:    twitch.User{Name: "CoolViewer", DisplayName: "CoolViewer"},
		Message: "tp a b 2\U000E0000",
		Time:    at,
	})

	require.Equal(t, 1, agg.Depth())
	ev := <-agg.Events()
	assert.Equal(t, domain.OriginChat, ev.Origin)
	assert.Equal(t, "coolviewer", ev.Sender)
	assert.Equal(t, "CoolViewer", ev.Display)
	assert.Equal(t, domain.RoleNone, ev.Role)
	assert.Equal(t, "tp a b 2", ev.Text)
	assert.Equal(t, at, ev.At)
	assert.NotEmpty(t, ev.ID)
}

func TestTwitchHandleMessageSkipsEmpty(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	agg := NewAggregator(4, logger)
	tc := newTestTwitchClient(t, TwitchConfig{Channel: "streamer"}, agg)

	tc.handleMessage(twitch.PrivateMessage{
		User:    twitch.User{Name: "viewer"},
		Message: "\U000E0000\U000E007F   ",
	})

	assert.Equal(t, 0, agg.Depth())
}

func TestTwitchAnonymousWithoutToken(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	tc := newTestTwitchClient(t, TwitchConfig{Channel: "streamer"}, NewAggregator(1, logger))

	assert.True(t, tc.anonymous)
	assert.False(t, tc.Connected())
	tc.Say("hello")
	assert.Equal(t, int64(0), tc.Reconnects())
}

func TestTwitchTokenGetsOAuthPrefix(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	tc := newTestTwitchClient(t, TwitchConfig{Channel: "streamer", Nick: "bot", Token: "abc123"}, NewAggregator(1, logger))

	assert.False(t, tc.anonymous)
	assert.Equal(t, "streamer", tc.channel)
}
