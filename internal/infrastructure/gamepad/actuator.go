package gamepad

import (
	"errors"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// writeQueueSize bounds pending device writes. The writer keeps up with any
// realistic chat rate; a full queue means the device is wedged.
const writeQueueSize = 256

type writeOp struct {
	button domain.Button
	press  bool
}

// buttonHold tracks one pressed button. The generation makes superseded
// release timers no-ops instead of racing the hold they no longer own.
type buttonHold struct {
	generation uint64
	deadline   time.Time
	timer      *time.Timer
}

// actuator schedules per-button hold timers and serializes every device
// write through a single goroutine.
type actuator struct {
	device ports.Device
	bus    ports.EventPublisher
	logger *zap.SugaredLogger
	fatal  func(error)

	mu      sync.Mutex
	holds   map[domain.Button]*buttonHold
	nextGen uint64
	stopped bool

	queue    chan writeOp
	wg       sync.WaitGroup
	fatalOne sync.Once
}

// NewActuator starts the device writer. fatal is invoked at most once, when
// a write fails in a way that means the device handle is gone; the caller
// uses it to trigger process shutdown.
func NewActuator(device ports.Device, bus ports.EventPublisher, fatal func(error), logger *zap.SugaredLogger) ports.Actuator {
	if fatal == nil {
		fatal = func(error) {}
	}
	a := &actuator{
		device: device,
		bus:    bus,
		logger: logger,
		fatal:  fatal,
		holds:  make(map[domain.Button]*buttonHold),
		queue:  make(chan writeOp, writeQueueSize),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Press holds every listed button for the given duration. Buttons already
// held follow extend-only semantics: a later deadline replaces the current
// one, an earlier or equal deadline changes nothing, and the button is never
// released and re-pressed in between.
func (a *actuator) Press(buttons []domain.Button, hold time.Duration) {
	if hold < 0 {
		hold = 0
	}
	if hold > domain.MaxHold {
		hold = domain.MaxHold
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}

	deadline := time.Now().Add(hold)
	for _, b := range buttons {
		if h, held := a.holds[b]; held {
			if !deadline.After(h.deadline) {
				continue
			}
			a.nextGen++
			h.generation = a.nextGen
			h.deadline = deadline
			h.timer.Stop()
			h.timer = a.scheduleRelease(b, h.generation, hold)
			continue
		}

		a.nextGen++
		h := &buttonHold{generation: a.nextGen, deadline: deadline}
		a.holds[b] = h
		a.enqueueLocked(writeOp{button: b, press: true})
		h.timer = a.scheduleRelease(b, h.generation, hold)
	}
}

func (a *actuator) scheduleRelease(b domain.Button, generation uint64, after time.Duration) *time.Timer {
	return time.AfterFunc(after, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		h, held := a.holds[b]
		if !held || h.generation != generation {
			return
		}
		delete(a.holds, b)
		a.enqueueLocked(writeOp{button: b, press: false})
	})
}

func (a *actuator) Held() []domain.Button {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Button, 0, len(a.holds))
	for b := range a.holds {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReleaseAll releases every held button immediately.
func (a *actuator) ReleaseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseAllLocked()
}

func (a *actuator) releaseAllLocked() {
	for b, h := range a.holds {
		h.timer.Stop()
		delete(a.holds, b)
		a.enqueueLocked(writeOp{button: b, press: false})
	}
}

// Close releases everything, waits for pending writes to reach the device
// and stops the writer. The device handle itself stays open; its owner
// closes it after Close returns.
func (a *actuator) Close() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.releaseAllLocked()
	a.stopped = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
}

// enqueueLocked hands a write to the writer goroutine. Callers hold a.mu.
// The queue only fills when the device stopped accepting writes, and in that
// state dropping is better than stalling dispatch.
func (a *actuator) enqueueLocked(op writeOp) {
	if a.stopped {
		return
	}
	select {
	case a.queue <- op:
	default:
		a.logger.Errorw("device write queue full, dropping write",
			"button", op.button, "press", op.press)
	}
}

func (a *actuator) run() {
	defer a.wg.Done()
	for op := range a.queue {
		var err error
		if op.press {
			err = a.device.Press(op.button)
		} else {
			err = a.device.Release(op.button)
		}
		if err != nil {
			a.logger.Errorw("device write failed",
				"button", op.button, "press", op.press, "error", err)
			if isFatalDeviceErr(err) {
				a.fatalOne.Do(func() { a.fatal(err) })
			}
			continue
		}

		kind := domain.EventButtonReleased
		if op.press {
			kind = domain.EventButtonPressed
		}
		a.bus.Publish(domain.RouterEvent{
			ID:     uuid.NewString(),
			Kind:   kind,
			At:     time.Now(),
			Detail: map[string]string{"button": op.button.String()},
		})
	}
}

// isFatalDeviceErr reports whether a write failure means the uinput node is
// gone rather than a transient hiccup.
func isFatalDeviceErr(err error) bool {
	return errors.Is(err, domain.ErrDeviceClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EBADF) ||
		errors.Is(err, syscall.ENODEV)
}
