package chat

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/pkg/utils"
)

// Twitch rejects messages longer than 500 characters; stay under it with
// room for the IRC framing.
const maxReplyRunes = 450

const defaultReplyQueueSize = 64

// ReplierConfig bounds the outbound chat rate.
type ReplierConfig struct {
	MessagesPerSec float64
	Burst          int
	QueueSize      int
}

// Replier routes dispatcher replies back to the surface the command came
// from. Chat replies go through a rate-limited queue so a hot channel
// cannot get the bot muted; console replies print synchronously; API
// replies only surface on the event stream.
type Replier struct {
	say     func(text string)
	out     io.Writer
	limiter *rate.Limiter
	queue   chan string
	logger  *zap.SugaredLogger

	dropped atomic.Int64

	mu      sync.Mutex
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReplier builds a replier that sends chat text through say and console
// text to out. The worker goroutine starts immediately.
func NewReplier(cfg ReplierConfig, say func(text string), out io.Writer, logger *zap.SugaredLogger) *Replier {
	if cfg.MessagesPerSec <= 0 {
		cfg.MessagesPerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultReplyQueueSize
	}
	if say == nil {
		say = func(string) {}
	}
	if out == nil {
		out = io.Discard
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Replier{
		say:     say,
		out:     out,
		limiter: rate.NewLimiter(rate.Limit(cfg.MessagesPerSec), cfg.Burst),
		queue:   make(chan string, cfg.QueueSize),
		logger:  logger,
		cancel:  cancel,
	}
	r.wg.Add(1)
	go r.run(ctx)
	return r
}

var _ ports.Replier = (*Replier)(nil)

// Reply delivers text to the event's sender on the surface it arrived from.
// It never blocks on the chat connection.
func (r *Replier) Reply(_ context.Context, event domain.InputEvent, text string) {
	switch event.Origin {
	case domain.OriginConsole:
		fmt.Fprintln(r.out, text)
	case domain.OriginAPI:
		r.logger.Debugw("api reply", "sender", event.Sender, "text", text)
	default:
		name := event.Display
		if name == "" {
			name = event.Sender
		}
		r.enqueue(utils.TruncateRunes("@"+name+" "+text, maxReplyRunes))
	}
}

// Dropped reports how many chat replies were shed under queue pressure.
func (r *Replier) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops the worker. Queued replies that have not cleared the rate
// limiter yet are abandoned.
func (r *Replier) Close() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	close(r.queue)
	r.wg.Wait()
}

func (r *Replier) enqueue(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	select {
	case r.queue <- text:
		return
	default:
	}

	// Full: shed the oldest queued reply to keep the freshest ones, then
	// try once more.
	select {
	case old := <-r.queue:
		r.dropped.Add(1)
		r.logger.Warnw("reply queue full, dropping oldest", "dropped", utils.TruncateRunes(old, 60))
	default:
	}
	select {
	case r.queue <- text:
	default:
		r.dropped.Add(1)
	}
}

func (r *Replier) run(ctx context.Context) {
	defer r.wg.Done()
	for text := range r.queue {
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		r.say(text)
	}
}
