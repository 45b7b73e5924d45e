package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/nowkit/nowkit/core/database"
)

// BotConfig holds messaging provider settings.
type BotConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// Username is the bot identity used as the application key when
	// persisting dialogue state.
	Username string `yaml:"username" envconfig:"BOT_USERNAME"`
	// APIURL overrides the provider endpoint, mainly for tests.
	APIURL string `yaml:"api_url" envconfig:"BOT_API_URL"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	Path   string `yaml:"path" envconfig:"WEBHOOK_PATH"`
	// PublicURL, when set, is registered with the provider on startup.
	PublicURL string `yaml:"public_url" envconfig:"WEBHOOK_PUBLIC_URL"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

const (
	// StateMemory selects the in-process dialogue state store.
	StateMemory = "memory"
	// StateRedis selects the Redis-backed dialogue state store.
	StateRedis = "redis"
	// StatePostgres selects the Postgres-backed dialogue state store.
	StatePostgres = "postgres"
)

// RedisConfig holds connection settings for the Redis state store.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// StateConfig selects and configures the dialogue state backend.
type StateConfig struct {
	Backend string      `yaml:"backend" envconfig:"STATE_BACKEND"`
	Redis   RedisConfig `yaml:"redis"`
}

// Config aggregates the configuration for a nowkit bot.
type Config struct {
	Bot      BotConfig       `yaml:"bot"`
	Webhook  WebhookConfig   `yaml:"webhook"`
	Logging  LoggingConfig   `yaml:"logging"`
	State    StateConfig     `yaml:"state"`
	Database database.Config `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and
// adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Bot.Username == "" {
		return fmt.Errorf("bot username is required")
	}

	if strings.TrimSpace(cfg.Webhook.Path) == "" {
		cfg.Webhook.Path = "/webhook"
	}
	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		cfg.Webhook.Path = "/" + cfg.Webhook.Path
	}
	if cfg.Webhook.Port <= 0 {
		return fmt.Errorf("webhook.port must be > 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	if backend == "" {
		backend = StateMemory
	}
	switch backend {
	case StateMemory:
	case StateRedis:
		if strings.TrimSpace(cfg.State.Redis.Addr) == "" {
			return fmt.Errorf("state.redis.addr is required when state.backend is 'redis'")
		}
	case StatePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" {
			return fmt.Errorf("database.host is required when state.backend is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: memory, redis, postgres", cfg.State.Backend)
	}
	cfg.State.Backend = backend

	return nil
}
