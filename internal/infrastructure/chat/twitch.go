package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/pkg/retry"
	"github.com/shift-devs/twitch-gamepad/pkg/utils"
)

// TwitchConfig carries the IRC connection settings.
type TwitchConfig struct {
	Channel string
	Nick    string
	Token   string
}

// twitchClient bridges one Twitch channel into the aggregator. With no
// token it connects anonymously: messages flow in, but Say is a no-op.
type twitchClient struct {
	channel   string
	anonymous bool
	client    *twitch.Client
	agg       *Aggregator
	logger    *zap.SugaredLogger

	connected  atomic.Bool
	reconnects atomic.Int64

	mu     sync.Mutex
	runCtx context.Context
}

// NewTwitchClient builds the chat transport for the configured channel.
func NewTwitchClient(cfg TwitchConfig, agg *Aggregator, logger *zap.SugaredLogger) ports.ChatClient {
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))

	t := &twitchClient{
		channel: channel,
		agg:     agg,
		logger:  logger,
	}

	if cfg.Token == "" {
		t.anonymous = true
		t.client = twitch.NewAnonymousClient()
		logger.Warnw("no twitch token configured, connecting read-only", "channel", channel)
	} else {
		token := cfg.Token
		if !strings.HasPrefix(token, "oauth:") {
			token = "oauth:" + token
		}
		t.client = twitch.NewClient(cfg.Nick, token)
	}

	t.client.OnConnect(func() {
		t.connected.Store(true)
		t.logger.Infow("connected to twitch", "channel", channel, "anonymous", t.anonymous)
	})
	t.client.OnPrivateMessage(t.handleMessage)
	t.client.Join(channel)

	return t
}

// Run connects and keeps reconnecting with capped backoff until the context
// is cancelled. Authentication failures are permanent and returned.
func (t *twitchClient) Run(ctx context.Context) error {
	t.mu.Lock()
	t.runCtx = ctx
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.client.Disconnect()
	}()

	backoff := retry.DefaultConfig()
	backoff.InitialDelay = time.Second
	backoff.MaxDelay = 30 * time.Second

	attempt := 0
	for {
		err := t.client.Connect()
		hadSession := t.connected.Swap(false)

		if ctx.Err() != nil || errors.Is(err, twitch.ErrClientDisconnected) {
			return nil
		}
		if errors.Is(err, twitch.ErrLoginAuthenticationFailed) {
			return err
		}
		if err == nil {
			return nil
		}

		// A drop after a held session restarts the backoff curve.
		if hadSession {
			attempt = 0
		}
		t.reconnects.Add(1)
		delay := retry.Delay(backoff, attempt)
		attempt++
		t.logger.Warnw("twitch connection lost, reconnecting",
			"error", err,
			"delay", delay,
			"attempt", attempt,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// Say sends text to the channel. Anonymous connections cannot speak; the
// reply is logged and discarded.
func (t *twitchClient) Say(text string) {
	if t.anonymous {
		t.logger.Debugw("read-only connection, dropping reply", "text", utils.TruncateRunes(text, 60))
		return
	}
	t.client.Say(t.channel, text)
}

// Connected reports whether the IRC session is currently up.
func (t *twitchClient) Connected() bool {
	return t.connected.Load()
}

// Reconnects reports how many times the connection was re-established.
func (t *twitchClient) Reconnects() int64 {
	return t.reconnects.Load()
}

func (t *twitchClient) handleMessage(msg twitch.PrivateMessage) {
	text := utils.SanitizeMessage(msg.Message)
	if text == "" {
		return
	}

	event := domain.InputEvent{
		Origin:  domain.OriginChat,
		Sender:  domain.NormalizeHandle(msg.User.Name),
		Display: msg.User.DisplayName,
		Role:    t.roleFor(msg),
		Text:    text,
		At:      msg.Time,
	}

	t.mu.Lock()
	ctx := t.runCtx
	t.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := t.agg.Submit(ctx, event); err != nil {
		t.logger.Debugw("dropping chat message", "sender", event.Sender, "error", err)
	}
}

// roleFor maps IRC badges and tags onto the channel role ladder. The
// broadcaster's own login matches even when the badge is missing.
func (t *twitchClient) roleFor(msg twitch.PrivateMessage) domain.ChannelRole {
	if msg.User.Badges["broadcaster"] > 0 || strings.EqualFold(msg.User.Name, t.channel) {
		return domain.RoleBroadcaster
	}
	if msg.User.Badges["moderator"] > 0 || msg.Tags["mod"] == "1" {
		return domain.RoleModerator
	}
	return domain.RoleNone
}
