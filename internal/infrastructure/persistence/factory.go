package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/pkg/circuitbreaker"
	"github.com/shift-devs/twitch-gamepad/pkg/retry"
)

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "none"

	defaultSnapshotPath = "twitch_gamepad_state.json"
)

// Config selects and parameterizes the snapshot backend.
type Config struct {
	Backend          string
	Path             string
	ArchiveRetention int
	Redis            RedisConfig
}

// NewSnapshotStore builds the configured backend. An unknown backend name
// or a redis that will not answer degrades to the file store with a
// warning; losing persistence resilience must not keep the stream offline.
func NewSnapshotStore(ctx context.Context, cfg Config, logger *zap.SugaredLogger) ports.SnapshotStore {
	if cfg.Path == "" {
		cfg.Path = defaultSnapshotPath
	}

	switch cfg.Backend {
	case BackendRedis:
		store, err := NewRedisStore(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warnw("redis unavailable, falling back to file snapshots",
				"addr", cfg.Redis.Addr,
				"error", err,
			)
			break
		}
		return NewResilientStore(store, retry.DefaultConfig(), circuitbreaker.DefaultConfig(), logger)

	case BackendMemory, "memory":
		logger.Infow("using in-memory snapshots, state will not survive a restart")
		return NewMemoryStore()

	case BackendFile, "":
	default:
		logger.Warnw("unknown persistence backend, using file", "backend", cfg.Backend)
	}

	logger.Infow("using file snapshots", "path", cfg.Path)
	return NewFileStore(cfg.Path, cfg.ArchiveRetention, logger)
}
