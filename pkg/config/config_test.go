package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, 108*time.Second, cfg.Monitor.Cooldown)
	assert.Equal(t, 2.0, cfg.Monitor.DefaultThreshold)
	assert.Equal(t, "pulsewatch.alerts", cfg.Kafka.AlertsTopic)
	assert.Equal(t, 5, cfg.RateLimit.Capacity)
	assert.Equal(t, 10, cfg.Market.TickerLimit)
	assert.Equal(t, 30*time.Second, cfg.Market.TickerCacheTTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Zero(t, cfg.Kafka.Consumer.RetryMax, "alert delivery is not retried")
}

func TestLoad_Watchlist(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
monitor:
  interval: 30s
  cooldown: 0s
  watchlist:
    - user_id: u1
      asset_type: crypto
      symbol: bitcoin
    - user_id: u1
      asset_type: stock
      symbol: AAPL
      alert_threshold: 4.5
`))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Zero(t, cfg.Monitor.Cooldown)
	require.Len(t, cfg.Monitor.Watchlist, 2)
	assert.Equal(t, 4.5, cfg.Monitor.Watchlist[1].AlertThreshold)
}

func TestLoad_CooldownFollowsInterval(t *testing.T) {
	cfg, err := Load(writeConfig(t, "monitor:\n  interval: 30s\n"))
	require.NoError(t, err)
	assert.Equal(t, 27*time.Second, cfg.Monitor.Cooldown)
	assert.Less(t, cfg.Monitor.Cooldown, cfg.Monitor.Interval)

	cfg, err = Load(writeConfig(t, "monitor:\n  interval: 30s\n  cooldown: 30s\n"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Cooldown)
}

func TestLoadWithEnv_IntervalRederivesCooldown(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL", "10m")
	t.Setenv("MONITOR_COOLDOWN", "")

	cfg, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)
	assert.Equal(t, 9*time.Minute, cfg.Monitor.Cooldown)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad asset type": "monitor:\n  watchlist:\n    - symbol: gold\n      asset_type: commodity\n",
		"missing symbol": "monitor:\n  watchlist:\n    - asset_type: crypto\n",
		"short interval": "monitor:\n  interval: 100ms\n",
		"kafka brokers":  "kafka:\n  enabled: true\n",
		"telegram token": "telegram:\n  enabled: true\n",
		"port":           "server:\n  port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONITOR_COOLDOWN", "5m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LOVABLE_API_KEY", "secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")

	cfg, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.Cooldown)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, int64(-100200), cfg.Telegram.ChatID)
}
