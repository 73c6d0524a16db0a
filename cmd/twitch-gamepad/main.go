package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/internal/core/services"
	httphandlers "github.com/shift-devs/twitch-gamepad/internal/handlers/http"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/chat"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/events"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/gamepad"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/monitoring"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/persistence"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/runner"
	"github.com/shift-devs/twitch-gamepad/pkg/config"
	"github.com/shift-devs/twitch-gamepad/pkg/logger"
	"github.com/shift-devs/twitch-gamepad/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to twitch_gamepad.toml (default: upward search)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	zapLogger := logger.New(cfg.Log.Level, cfg.Log.Development)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "twitch-gamepad",
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Errorw("initializing tracing", "error", err)
		return 1
	}

	games, err := buildGames(cfg.Games)
	if err != nil {
		log.Errorw("invalid game configuration", "error", err)
		return 1
	}

	// Cancelled by a signal or by a fatal device write; everything serving
	// input hangs off this context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	var exitCode atomic.Int32
	var deviceLost atomic.Bool

	device, err := gamepad.NewDevice(cfg.Device.Name, cfg.Device.Vendor, cfg.Device.Product, log)
	if err != nil {
		log.Errorw("creating virtual gamepad", "error", err)
		return 1
	}
	defer device.Close()

	bus := events.NewBus(0, log)
	defer bus.Close()

	pad := gamepad.NewActuator(device, bus, func(err error) {
		log.Errorw("device handle lost, shutting down", "error", err)
		deviceLost.Store(true)
		exitCode.Store(1)
		cancel()
	}, log)

	store := services.NewModerationStore()
	resolver := services.NewPrivilegeResolver(store)
	procRunner := runner.NewProcessRunner(bus, log)
	registry := services.NewGameRegistry(games, store, procRunner, pad, log)
	log.Infow("game catalog loaded",
		"games", len(games),
		"capability_union", len(registry.CapabilityUnion()),
	)

	snapshots := persistence.NewSnapshotStore(ctx, persistence.Config{
		Backend:          cfg.Persistence.Backend,
		Path:             cfg.Persistence.Path,
		ArchiveRetention: cfg.Persistence.ArchiveRetention,
		Redis: persistence.RedisConfig{
			Addr:     cfg.Persistence.Redis.Addr,
			Password: cfg.Persistence.Redis.Password,
			DB:       cfg.Persistence.Redis.DB,
			Key:      cfg.Persistence.Redis.Key,
		},
	}, log)
	defer snapshots.Close()

	agg := chat.NewAggregator(0, log)

	var chatClient ports.ChatClient
	if cfg.Twitch.Channel != "" {
		chatClient = chat.NewTwitchClient(chat.TwitchConfig{
			Channel: cfg.Twitch.Channel,
			Nick:    cfg.Twitch.Nick,
			Token:   cfg.Twitch.Token,
		}, agg, log)
	} else {
		log.Warnw("no twitch channel configured, running console-only")
	}

	say := func(string) {}
	if chatClient != nil {
		say = chatClient.Say
	}
	replier := chat.NewReplier(chat.ReplierConfig{
		MessagesPerSec: cfg.Twitch.MessagesPerSec,
		Burst:          cfg.Twitch.Burst,
	}, say, os.Stdout, log)
	defer replier.Close()

	dispatcher := services.NewDispatcher(services.DispatcherConfig{
		DefaultHold:         time.Duration(cfg.Defaults.MovementSecs * float64(time.Second)),
		ReplyToUnrecognized: cfg.Twitch.ReplyToUnrecognized,
	}, store, registry, resolver, pad, snapshots, replier, bus, log)

	// Restore persisted moderation state before any input is consumed. A
	// snapshot that exists but cannot be applied is a startup failure.
	if err := dispatcher.Bootstrap(ctx); err != nil {
		log.Errorw("restoring persisted state", "error", err)
		return 1
	}

	sources := monitoring.GaugeSources{
		QueueDepth:     agg.Depth,
		ActiveHolds:    func() int { return len(pad.Held()) },
		RepliesDropped: replier.Dropped,
	}
	if counter, ok := chatClient.(interface{ Reconnects() int64 }); ok {
		sources.ChatReconnects = counter.Reconnects
	}
	collector := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer, sources)
	metricsEvents, unsubscribeMetrics := bus.Subscribe()
	defer unsubscribeMetrics()
	go collector.Run(ctx, metricsEvents)

	health := monitoring.NewHealthChecker()
	health.AddCheck("device", func(context.Context) error {
		if deviceLost.Load() {
			return domain.ErrDeviceClosed
		}
		return nil
	}, 0)
	health.AddCheck("snapshot_store", func(ctx context.Context) error {
		if _, err := snapshots.Load(ctx); err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
			return err
		}
		return nil
	}, 0)
	if chatClient != nil {
		health.AddCheck("chat", func(context.Context) error {
			if !chatClient.Connected() {
				return errors.New("not connected")
			}
			return nil
		}, 0)
	}

	var apiServer *http.Server
	if cfg.API.Enabled {
		tokens := services.NewTokenService(cfg.API.JWTSecret, time.Duration(cfg.API.TokenTTLSecs)*time.Second)
		handler := httphandlers.NewHandlerGroup(
			httphandlers.NewAuthHandler(tokens, cfg.API.AdminKey, log),
			httphandlers.NewRouterHandler(agg, store, registry, chatConnected(chatClient), log),
		)
		hub := httphandlers.NewEventsHub(bus, log)
		engine := httphandlers.NewRouter(handler, hub, health, tokens, log, httphandlers.RouterConfig{
			Development:    cfg.Log.Development,
			TracingEnabled: cfg.Tracing.Enabled,
			RatePerMin:     cfg.API.RatePerMin,
			RateBurst:      cfg.API.RatePerMin,
		})

		apiServer = &http.Server{Addr: cfg.API.ListenAddr, Handler: engine}
		go func() {
			log.Infow("api server listening", "addr", cfg.API.ListenAddr)
			if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("api server failed", "error", err)
			}
		}()
	}

	// The dispatcher drains on its own context so commands queued before
	// shutdown still execute; closing the aggregator ends its loop.
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(context.Background(), agg.Events())
	}()

	console := chat.NewConsoleReader(agg, os.Stdin, log)
	go func() {
		if err := console.Run(sigCtx); err != nil && !errors.Is(err, chat.ErrStreamClosed) {
			log.Warnw("console reader stopped", "error", err)
		}
	}()

	if chatClient != nil {
		go func() {
			if err := chatClient.Run(sigCtx); err != nil {
				log.Errorw("chat connection failed permanently", "error", err)
				exitCode.Store(1)
				cancel()
			}
		}()
	}

	if cfg.Persistence.AutosaveSecs > 0 {
		autosaver := persistence.NewAutosaver(
			dispatcher,
			store.Generation,
			time.Duration(cfg.Persistence.AutosaveSecs)*time.Second,
			log,
		)
		go autosaver.Start(sigCtx)
	}

	log.Infow("twitch-gamepad running",
		"channel", cfg.Twitch.Channel,
		"games", len(games),
		"persistence", snapshots.Name(),
		"api", cfg.API.Enabled,
	)

	<-sigCtx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	// Stop intake first, then let the dispatcher finish what is queued.
	agg.Close()
	<-dispatchDone

	if err := procRunner.Stop(shutdownCtx); err != nil {
		log.Warnw("stopping game process", "error", err)
	}

	if cfg.Persistence.SaveOnShutdown && !deviceLost.Load() {
		if err := dispatcher.SaveState(shutdownCtx); err != nil {
			log.Errorw("final snapshot save failed", "error", err)
		}
	}

	// Release every held button before the device node disappears.
	pad.Close()

	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Warnw("api server shutdown", "error", err)
		}
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warnw("tracer shutdown", "error", err)
	}

	log.Infow("shutdown complete", "exit_code", exitCode.Load())
	return int(exitCode.Load())
}

// buildGames turns configuration entries into catalog games. Unknown button
// tokens are startup errors: a typo must not silently shrink a vocabulary.
func buildGames(entries []config.GameConfig) ([]domain.Game, error) {
	games := make([]domain.Game, 0, len(entries))
	for _, entry := range entries {
		game := domain.Game{
			Name:     entry.Name,
			Command:  entry.Command,
			Args:     entry.Args,
			Controls: entry.Controls,
		}

		if len(entry.Buttons) > 0 {
			game.Buttons = domain.NewButtonSet()
			for _, token := range entry.Buttons {
				b, ok := domain.ParseButton(token)
				if !ok {
					return nil, fmt.Errorf("game %q: unknown button %q", entry.Name, token)
				}
				game.Buttons.Add(b)
			}
		}

		for _, token := range entry.ResetCombo {
			b, ok := domain.ParseConfigButton(token)
			if !ok {
				return nil, fmt.Errorf("game %q: unknown reset_combo button %q", entry.Name, token)
			}
			game.ResetCombo = append(game.ResetCombo, b)
		}

		games = append(games, game)
	}
	return games, nil
}

// chatConnected adapts an optional chat client for the status endpoint.
func chatConnected(client ports.ChatClient) func() bool {
	if client == nil {
		return func() bool { return false }
	}
	return client.Connected
}
