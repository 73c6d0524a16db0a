package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/shift-devs/twitch-gamepad/pkg/validation"
)

// DefaultFileName is what the upward directory search looks for.
const DefaultFileName = "twitch_gamepad.toml"

// EnvConfigPath overrides the config file location when no -config flag is
// given. EnvToken and EnvRedisAddr override individual values, so secrets
// can stay out of the file.
const (
	EnvConfigPath = "TWITCH_GAMEPAD_CONFIG"
	EnvToken      = "TWITCH_GAMEPAD_TOKEN"
	EnvRedisAddr  = "TWITCH_GAMEPAD_REDIS_ADDR"
	EnvLogLevel   = "TWITCH_GAMEPAD_LOG_LEVEL"
)

type Config struct {
	Twitch      TwitchConfig      `toml:"twitch"`
	Games       []GameConfig      `toml:"games"`
	Persistence PersistenceConfig `toml:"persistence"`
	API         APIConfig         `toml:"api"`
	Device      DeviceConfig      `toml:"device"`
	Log         LogConfig         `toml:"log"`
	Tracing     TracingConfig     `toml:"tracing"`
	Defaults    DefaultsConfig    `toml:"defaults"`
}

// TwitchConfig connects one channel. An empty channel means console-only
// operation: no chat client is started and replies print locally.
type TwitchConfig struct {
	Channel             string  `toml:"channel"`
	Nick                string  `toml:"nick"`
	Token               string  `toml:"token"`
	ReplyToUnrecognized bool    `toml:"reply_to_unrecognized"`
	MessagesPerSec      float64 `toml:"messages_per_sec"`
	Burst               int     `toml:"burst"`
}

// GameConfig is one catalog entry. Button tokens use the chat vocabulary;
// reset_combo additionally accepts "mode".
type GameConfig struct {
	Name       string   `toml:"name"`
	Buttons    []string `toml:"buttons"`
	Command    string   `toml:"command"`
	Args       []string `toml:"args"`
	ResetCombo []string `toml:"reset_combo"`
	Controls   string   `toml:"controls"`
}

type PersistenceConfig struct {
	Backend          string      `toml:"backend"`
	Path             string      `toml:"path"`
	ArchiveRetention int         `toml:"archive_retention"`
	AutosaveSecs     int         `toml:"autosave_secs"`
	SaveOnShutdown   bool        `toml:"save_on_shutdown"`
	Redis            RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Key      string `toml:"key"`
}

type APIConfig struct {
	Enabled      bool   `toml:"enabled"`
	ListenAddr   string `toml:"listen_addr"`
	AdminKey     string `toml:"admin_key"`
	JWTSecret    string `toml:"jwt_secret"`
	TokenTTLSecs int    `toml:"token_ttl_secs"`
	RatePerMin   int    `toml:"rate_per_min"`
}

type DeviceConfig struct {
	Name    string `toml:"name"`
	Vendor  uint16 `toml:"vendor"`
	Product uint16 `toml:"product"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type TracingConfig struct {
	Enabled     bool    `toml:"enabled"`
	Endpoint    string  `toml:"endpoint"`
	SampleRatio float64 `toml:"sample_ratio"`
}

type DefaultsConfig struct {
	// MovementSecs is the hold applied to movement lines without an
	// explicit duration. The 5s maximum hold is fixed, not configurable.
	MovementSecs float64 `toml:"movement_secs"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Twitch.ReplyToUnrecognized = true
	cfg.Twitch.MessagesPerSec = 1
	cfg.Twitch.Burst = 3

	cfg.Persistence.Backend = "file"
	cfg.Persistence.Path = "twitch_gamepad_state.json"
	cfg.Persistence.SaveOnShutdown = true

	cfg.API.ListenAddr = ":8730"
	cfg.API.TokenTTLSecs = 3600
	cfg.API.RatePerMin = 60

	cfg.Device.Name = "Twitch Gamepad"

	cfg.Log.Level = "info"

	cfg.Tracing.Endpoint = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRatio = 1.0

	cfg.Defaults.MovementSecs = 0.5

	return cfg
}

// Load reads the file at path over the defaults, applies env overrides and
// validates. An empty path triggers Resolve; running with no file at all is
// allowed (console-only defaults), but a file that exists and will not parse
// is a startup error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = Resolve()
	}
	if path == "" {
		cfg.applyEnvOverrides()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve finds the config file when no explicit path was given: upward
// directory search for the default filename from the working directory,
// then the environment variable. Empty means no file.
func Resolve() string {
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, DefaultFileName)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return ""
}

func (c *Config) applyEnvOverrides() {
	if token := os.Getenv(EnvToken); token != "" {
		c.Twitch.Token = token
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		c.Persistence.Redis.Addr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate checks field shapes and cross-field requirements. Whether a
// button token names a real catalog button is decided where the catalog
// lives, at game construction.
func (c *Config) Validate() error {
	if c.Twitch.Channel != "" {
		if err := validation.ValidateChannel(c.Twitch.Channel); err != nil {
			return fmt.Errorf("twitch: %w", err)
		}
		if c.Twitch.Token != "" && c.Twitch.Nick == "" {
			return errors.New("twitch: nick is required when a token is set")
		}
	}
	if c.Twitch.MessagesPerSec <= 0 {
		return errors.New("twitch: messages_per_sec must be > 0")
	}
	if c.Twitch.Burst <= 0 {
		return errors.New("twitch: burst must be > 0")
	}

	seen := make(map[string]struct{}, len(c.Games))
	for i, g := range c.Games {
		if err := validation.ValidateGameName(g.Name); err != nil {
			return fmt.Errorf("games[%d]: %w", i, err)
		}
		key := strings.ToLower(strings.TrimSpace(g.Name))
		if _, dup := seen[key]; dup {
			return fmt.Errorf("games[%d]: duplicate game name %q", i, g.Name)
		}
		seen[key] = struct{}{}

		for _, token := range g.Buttons {
			if err := validation.ValidateButtonToken(token); err != nil {
				return fmt.Errorf("games[%d] (%s): %w", i, g.Name, err)
			}
		}
		for _, token := range g.ResetCombo {
			if err := validation.ValidateButtonToken(token); err != nil {
				return fmt.Errorf("games[%d] (%s) reset_combo: %w", i, g.Name, err)
			}
		}
	}

	switch c.Persistence.Backend {
	case "", "file", "none", "memory":
	case "redis":
		if c.Persistence.Redis.Addr == "" {
			return errors.New("persistence: redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("persistence: unknown backend %q", c.Persistence.Backend)
	}
	if c.Persistence.ArchiveRetention < 0 {
		return errors.New("persistence: archive_retention must be >= 0")
	}
	if c.Persistence.AutosaveSecs < 0 {
		return errors.New("persistence: autosave_secs must be >= 0")
	}

	if c.API.Enabled {
		if err := validation.ValidateListenAddr(c.API.ListenAddr); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		if err := validation.ValidateStringLength(c.API.AdminKey, 16, 256, "api.admin_key"); err != nil {
			return err
		}
		if err := validation.ValidateStringLength(c.API.JWTSecret, 32, 512, "api.jwt_secret"); err != nil {
			return err
		}
		if c.API.TokenTTLSecs <= 0 {
			return errors.New("api: token_ttl_secs must be > 0")
		}
		if c.API.RatePerMin <= 0 {
			return errors.New("api: rate_per_min must be > 0")
		}
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing: endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("tracing: sample_ratio must be within [0, 1]")
	}

	if c.Defaults.MovementSecs <= 0 || c.Defaults.MovementSecs > 5 {
		return errors.New("defaults: movement_secs must be within (0, 5]")
	}

	return nil
}
