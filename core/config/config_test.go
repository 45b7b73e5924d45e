package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
bot:
  token: "123:abc"
  username: "test_bot"
webhook:
  port: 8080
logging:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "test_bot", cfg.Bot.Username)
	assert.Equal(t, 8080, cfg.Webhook.Port)
	assert.Equal(t, "/webhook", cfg.Webhook.Path, "path defaults")
	assert.Equal(t, StateMemory, cfg.State.Backend, "backend defaults to memory")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:zzz")
	t.Setenv("WEBHOOK_PORT", "9090")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "999:zzz", cfg.Bot.Token)
	assert.Equal(t, 9090, cfg.Webhook.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNormalizeRequiredFields(t *testing.T) {
	base := func() *Config {
		return &Config{
			Bot:     BotConfig{Token: "123:abc", Username: "test_bot"},
			Webhook: WebhookConfig{Port: 8080},
		}
	}

	cfg := base()
	require.NoError(t, Normalize(cfg))

	cfg = base()
	cfg.Bot.Token = ""
	assert.ErrorContains(t, Normalize(cfg), "token")

	cfg = base()
	cfg.Bot.Username = ""
	assert.ErrorContains(t, Normalize(cfg), "username")

	cfg = base()
	cfg.Webhook.Port = 0
	assert.ErrorContains(t, Normalize(cfg), "port")
}

func TestNormalizeWebhookPath(t *testing.T) {
	cfg := &Config{
		Bot:     BotConfig{Token: "t", Username: "u"},
		Webhook: WebhookConfig{Port: 1, Path: "hook"},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "/hook", cfg.Webhook.Path, "leading slash is added")
}

func TestNormalizeStateBackends(t *testing.T) {
	cfg := &Config{
		Bot:     BotConfig{Token: "t", Username: "u"},
		Webhook: WebhookConfig{Port: 1},
		State:   StateConfig{Backend: "Redis"},
	}
	assert.ErrorContains(t, Normalize(cfg), "redis.addr")

	cfg.State.Redis.Addr = "localhost:6379"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, StateRedis, cfg.State.Backend, "backend is lowercased")

	cfg.State.Backend = "postgres"
	assert.ErrorContains(t, Normalize(cfg), "database.host")

	cfg.State.Backend = "cassandra"
	assert.ErrorContains(t, Normalize(cfg), "invalid state.backend")
}
