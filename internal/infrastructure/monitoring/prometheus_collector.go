package monitoring

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
)

// GaugeSources exposes live readings from components that keep their own
// counters. Nil fields skip the corresponding metric (console-only runs
// have no chat client).
type GaugeSources struct {
	QueueDepth     func() int
	ActiveHolds    func() int
	RepliesDropped func() int64
	ChatReconnects func() int64
}

// PrometheusCollector turns router events into metrics. It sits on a bus
// subscription, off the dispatch path.
type PrometheusCollector struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration prometheus.Histogram
	buttonPresses   *prometheus.CounterVec
	snapshotSaves   *prometheus.CounterVec

	queueDepth     prometheus.GaugeFunc
	activeHolds    prometheus.GaugeFunc
	repliesDropped prometheus.CounterFunc
	chatReconnects prometheus.CounterFunc
}

func NewPrometheusCollector(reg prometheus.Registerer, sources GaugeSources) *PrometheusCollector {
	factory := promauto.With(reg)

	c := &PrometheusCollector{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "twitch_gamepad_commands_total",
			Help: "Dispatch outcomes by command kind and result",
		}, []string{"kind", "result"}),

		commandDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "twitch_gamepad_command_duration_seconds",
			Help:    "Time from input receipt to dispatch outcome, queue wait included",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		buttonPresses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "twitch_gamepad_button_presses_total",
			Help: "Button press writes that reached the virtual pad",
		}, []string{"button"}),

		snapshotSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "twitch_gamepad_snapshot_saves_total",
			Help: "Snapshot writes by backend and result",
		}, []string{"backend", "result"}),
	}

	if sources.QueueDepth != nil {
		c.queueDepth = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "twitch_gamepad_input_queue_depth",
			Help: "Input events waiting for the dispatcher",
		}, func() float64 { return float64(sources.QueueDepth()) })
	}
	if sources.ActiveHolds != nil {
		c.activeHolds = factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "twitch_gamepad_active_holds",
			Help: "Buttons currently held on the virtual pad",
		}, func() float64 { return float64(sources.ActiveHolds()) })
	}
	if sources.RepliesDropped != nil {
		c.repliesDropped = factory.NewCounterFunc(prometheus.CounterOpts{
			Name: "twitch_gamepad_replies_dropped_total",
			Help: "Chat replies shed by the outbound queue",
		}, func() float64 { return float64(sources.RepliesDropped()) })
	}
	if sources.ChatReconnects != nil {
		c.chatReconnects = factory.NewCounterFunc(prometheus.CounterOpts{
			Name: "twitch_gamepad_chat_reconnects_total",
			Help: "Reconnect attempts against the chat server",
		}, func() float64 { return float64(sources.ChatReconnects()) })
	}

	return c
}

// Run consumes router events until the subscription closes or the context
// is cancelled.
func (c *PrometheusCollector) Run(ctx context.Context, events <-chan domain.RouterEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.Observe(event)
		}
	}
}

// Observe records a single router event in the metric families it feeds.
func (c *PrometheusCollector) Observe(event domain.RouterEvent) {
	switch event.Kind {
	case domain.EventCommandAccepted:
		kind := event.Detail["kind"]
		if kind == "" {
			kind = "movement"
		}
		c.commandsTotal.WithLabelValues(kind, "accepted").Inc()
		c.observeLatency(event.Detail)

	case domain.EventCommandRejected:
		reason := event.Detail["reason"]
		if reason == "" {
			reason = "unknown"
		}
		c.commandsTotal.WithLabelValues(kindForReason(reason), reason).Inc()
		c.observeLatency(event.Detail)

	case domain.EventBlockAdded, domain.EventBlockRemoved,
		domain.EventOperatorAdded, domain.EventOperatorRemoved,
		domain.EventModeChanged, domain.EventGameSwitched,
		domain.EventGameStopped, domain.EventCooldownChanged:
		// A sender means a command caused this; runner-originated stops
		// carry none.
		if event.Sender != "" {
			c.commandsTotal.WithLabelValues("moderation", "accepted").Inc()
		}

	case domain.EventButtonPressed:
		c.buttonPresses.WithLabelValues(event.Detail["button"]).Inc()

	case domain.EventSnapshotSaved:
		result := event.Detail["result"]
		if result == "" {
			result = "ok"
		}
		c.snapshotSaves.WithLabelValues(event.Detail["backend"], result).Inc()
	}
}

func (c *PrometheusCollector) observeLatency(detail map[string]string) {
	raw, ok := detail["latency_us"]
	if !ok {
		return
	}
	us, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || us < 0 {
		return
	}
	c.commandDuration.Observe(float64(us) / 1e6)
}

// kindForReason maps a rejection back to the command kind that produced it.
func kindForReason(reason string) string {
	if reason == "privilege_denied" {
		return "moderation"
	}
	return "movement"
}
