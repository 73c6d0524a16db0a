package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/pkg/retry"
)

const defaultRedisKey = "twitch-gamepad:snapshot"

// RedisConfig carries the connection settings for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the snapshot under one key as a JSON value, so state
// survives host reinstalls and can be shared with external tooling.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.SugaredLogger
}

// NewRedisStore dials redis and verifies the connection before returning.
// The dial is retried briefly; a backend that stays silent is the factory's
// cue to fall back.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.SugaredLogger) (*RedisStore, error) {
	if cfg.Key == "" {
		cfg.Key = defaultRedisKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	dialRetry := retry.Config{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
	if err := retry.Retry(ctx, dialRetry, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	logger.Infow("connected to redis", "addr", cfg.Addr, "db", cfg.DB, "key", cfg.Key)
	return &RedisStore{client: client, key: cfg.Key, logger: logger}, nil
}

var _ ports.SnapshotStore = (*RedisStore)(nil)

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing snapshot to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("reading snapshot from redis: %w", err)
	}
	return decodeSnapshot(data)
}

func (s *RedisStore) Close() error { return s.client.Close() }
