package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExpandsEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SAUNA_BOT_TOKEN", "123:abc")

	path := writeConfig(t, dir, `
telegram:
  bot_token: ${SAUNA_BOT_TOKEN}
api:
  base_url: http://api.local/api/v1/
  cache_ttl_seconds: 60
database:
  path: `+filepath.Join(dir, "db", "bot.db")+`
logging:
  level: debug
admins: [42, 7]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "http://api.local/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout())
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())
	assert.Equal(t, 8090, cfg.Monitoring.HealthCheckPort)
	assert.Equal(t, 30, cfg.Report.RevenuePeriodDays)
	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(1))

	_, err = os.Stat(filepath.Join(dir, "db"))
	require.NoError(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("telegram: [unclosed"))
	require.Error(t, err)
}

func TestLogLevelFallback(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "loud"
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
}

func TestWatch_Reloads(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "bot.db")
	path := writeConfig(t, dir, "database:\n  path: "+dbPath+"\nadmins: [1]\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen [][]int64
	err := Watch(ctx, path, 10*time.Millisecond, func(c *Config) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.Admins)
	})
	require.NoError(t, err)

	future := time.Now().Add(time.Minute)
	writeConfig(t, dir, "database:\n  path: "+dbPath+"\nadmins: [1, 2]\n")
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1}, seen[0])
	assert.Equal(t, []int64{1, 2}, seen[1])
}
