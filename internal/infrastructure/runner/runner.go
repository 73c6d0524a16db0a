package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// terminationGrace is how long a stopped game gets to exit after SIGTERM
// before it is killed.
const terminationGrace = 5 * time.Second

// ProcessRunner launches and terminates the active game's process, one at a
// time. A spontaneous exit only marks the runner idle; the game selection
// is someone else's state.
type ProcessRunner struct {
	bus    ports.EventPublisher
	logger *zap.SugaredLogger
	grace  time.Duration

	mu      sync.Mutex
	current *gameProcess
}

type gameProcess struct {
	cmd    *exec.Cmd
	name   string
	exited chan struct{}

	// Set before signaling so the waiter can tell a requested stop from a
	// crash.
	stopRequested atomic.Bool
}

func NewProcessRunner(bus ports.EventPublisher, logger *zap.SugaredLogger) *ProcessRunner {
	return &ProcessRunner{
		bus:    bus,
		logger: logger,
		grace:  terminationGrace,
	}
}

var _ ports.GameRunner = (*ProcessRunner)(nil)

func (r *ProcessRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

func (r *ProcessRunner) Start(_ context.Context, game domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return fmt.Errorf("game process already running: %s", r.current.name)
	}

	cmd := exec.Command(game.Command, game.Args...)
	cmd.Stdout = newLogWriter(r.logger, game.Name, "stdout")
	cmd.Stderr = newLogWriter(r.logger, game.Name, "stderr")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %q: %w", game.Command, err)
	}

	p := &gameProcess{
		cmd:    cmd,
		name:   game.Name,
		exited: make(chan struct{}),
	}
	r.current = p
	go r.wait(p)

	r.logger.Infow("game process started",
		"game", game.Name,
		"command", game.Command,
		"pid", cmd.Process.Pid,
	)
	return nil
}

// Stop terminates the current process: SIGTERM, a grace period, then
// SIGKILL. It returns once the process is gone, so a following Start never
// races the old pid.
func (r *ProcessRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	p := r.current
	r.mu.Unlock()
	if p == nil {
		return nil
	}

	p.stopRequested.Store(true)
	r.logger.Infow("stopping game process", "game", p.name, "pid", p.cmd.Process.Pid)

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signaling %s: %w", p.name, err)
	}

	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.grace):
	}

	r.logger.Warnw("game ignored SIGTERM, killing", "game", p.name)
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing %s: %w", p.name, err)
	}

	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *ProcessRunner) wait(p *gameProcess) {
	err := p.cmd.Wait()

	r.mu.Lock()
	if r.current == p {
		r.current = nil
	}
	r.mu.Unlock()
	close(p.exited)

	if p.stopRequested.Load() {
		r.logger.Infow("game process stopped", "game", p.name)
		return
	}

	detail := map[string]string{"game": p.name, "reason": "exited"}
	if err != nil {
		detail["error"] = err.Error()
	}
	r.logger.Warnw("game process exited on its own", "game", p.name, "error", err)
	r.bus.Publish(domain.RouterEvent{
		ID:     uuid.NewString(),
		Kind:   domain.EventGameStopped,
		At:     time.Now(),
		Detail: detail,
	})
}

// logWriter forwards a process stream to the log, one line per entry.
type logWriter struct {
	logger *zap.SugaredLogger
	game   string
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLogWriter(logger *zap.SugaredLogger, game, stream string) *logWriter {
	return &logWriter{logger: logger, game: game, stream: stream}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line: keep it for the next write.
			w.buf.WriteString(line)
			break
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			w.logger.Debugw("game output", "game", w.game, "stream", w.stream, "line", line)
		}
	}
	return len(p), nil
}
