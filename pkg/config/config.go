package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string          `yaml:"environment" default:"development"`
	Server      ServerConfig    `yaml:"server"`
	Logger      LoggerConfig    `yaml:"logger"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Monitor     MonitorConfig   `yaml:"monitor"`
	Redis       RedisConfig     `yaml:"redis"`
	Postgres    PostgresConfig  `yaml:"postgres"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	ClickHouse  ClickHouse      `yaml:"clickhouse"`
	CoinGecko   CoinGecko       `yaml:"coingecko"`
	Finnhub     Finnhub         `yaml:"finnhub"`
	Market      MarketConfig    `yaml:"market"`
	LLM         LLMConfig       `yaml:"llm"`
	Telegram    TelegramConfig  `yaml:"telegram"`
	RateLimit   RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type LoggerConfig struct {
	Level        string `yaml:"level" default:"info"`
	Format       string `yaml:"format" default:"json"`
	Output       string `yaml:"output" default:"stdout"`
	CollectTopic string `yaml:"collect_topic"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled" default:"true"`
	Interval time.Duration `yaml:"interval" default:"2m"`
	// Cooldown defaults to DefaultCooldown(Interval) when not set explicitly.
	Cooldown         time.Duration  `yaml:"cooldown"`
	DefaultThreshold float64        `yaml:"default_threshold" default:"2.0"`
	RunOnStart       bool           `yaml:"run_on_start" default:"true"`
	LockTTL          time.Duration  `yaml:"lock_ttl"`
	DispatchTimeout  time.Duration  `yaml:"dispatch_timeout" default:"10s"`
	Watchlist        []WatchedAsset `yaml:"watchlist"`

	cooldownSet bool
}

// DefaultCooldown leaves a tenth of the interval as slack so that tick
// start jitter cannot suppress an alert one full interval after the last.
func DefaultCooldown(interval time.Duration) time.Duration {
	return interval - interval/10
}

func (m *MonitorConfig) deriveCooldown() {
	if !m.cooldownSet {
		m.Cooldown = DefaultCooldown(m.Interval)
	}
}

// WatchedAsset is a statically configured watchlist row, used when no
// Postgres DSN is set.
type WatchedAsset struct {
	UserID         string  `yaml:"user_id"`
	AssetType      string  `yaml:"asset_type"`
	Symbol         string  `yaml:"symbol"`
	Name           string  `yaml:"name"`
	AlertThreshold float64 `yaml:"alert_threshold"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"pulsewatch"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns" default:"10"`
	MinConns        int32         `yaml:"min_conns" default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" default:"30m"`
	RequireSSL      bool          `yaml:"require_ssl"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	AlertsTopic  string   `yaml:"alerts_topic" default:"pulsewatch.alerts"`
	RequiredAcks int      `yaml:"required_acks" default:"1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"10ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool   `yaml:"enabled" default:"true"`
		GroupID    string `yaml:"group_id" default:"pulsewatch-delivery"`
		Workers    int    `yaml:"workers" default:"4"`
		BufferSize int    `yaml:"buffer_size" default:"256"`
		// RetryMax stays 0 for alert delivery: a retry would resend to every
		// channel, including the ones that already succeeded.
		RetryMax   int           `yaml:"retry_max"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouse struct {
	Enabled     bool          `yaml:"enabled"`
	Host        string        `yaml:"host" default:"localhost"`
	Port        int           `yaml:"port" default:"9000"`
	Database    string        `yaml:"database" default:"pulsewatch"`
	User        string        `yaml:"user" default:"default"`
	Password    string        `yaml:"password"`
	UseHTTP     bool          `yaml:"use_http"`
	AsyncInsert bool          `yaml:"async_insert"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
}

type CoinGecko struct {
	BaseURL string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type Finnhub struct {
	BaseURL string        `yaml:"base_url" default:"https://finnhub.io/api/v1"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

// MarketConfig drives the /api/market/tickers strip.
type MarketConfig struct {
	TickerLimit    int           `yaml:"ticker_limit" default:"10"`
	TickerStocks   []string      `yaml:"ticker_stocks"`
	TickerCacheTTL time.Duration `yaml:"ticker_cache_ttl" default:"30s"`
}

type LLMConfig struct {
	BaseURL        string        `yaml:"base_url" default:"https://ai.gateway.lovable.dev/v1"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model" default:"google/gemini-2.5-flash"`
	Timeout        time.Duration `yaml:"timeout" default:"60s"`
	AnchorCacheTTL time.Duration `yaml:"anchor_cache_ttl" default:"60s"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
	// UserChats routes a watchlist user to their own chat.
	UserChats map[string]int64 `yaml:"user_chats"`
}

type RateLimitConfig struct {
	Capacity   int     `yaml:"capacity" default:"5"`
	RefillRate float64 `yaml:"refill_per_second" default:"0.1"`
}

// Load reads and parses a YAML configuration file on top of struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var explicit struct {
		Monitor map[string]interface{} `yaml:"monitor"`
	}
	if err := yaml.Unmarshal(b, &explicit); err == nil {
		_, c.Monitor.cooldownSet = explicit.Monitor["cooldown"]
	}
	c.Monitor.deriveCooldown()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Monitor.Interval = d
		}
	}
	if v := os.Getenv("MONITOR_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Monitor.Cooldown = d
			c.Monitor.cooldownSet = true
		}
	}
	c.Monitor.deriveCooldown()
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_ALERTS_TOPIC"); v != "" {
		c.Kafka.AlertsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if v := os.Getenv("LOVABLE_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Monitor.Interval < time.Second {
		return fmt.Errorf("monitor.interval must be at least 1s, got %s", c.Monitor.Interval)
	}
	if c.Monitor.Cooldown < 0 {
		return fmt.Errorf("monitor.cooldown cannot be negative")
	}
	if c.Monitor.DefaultThreshold <= 0 {
		return fmt.Errorf("monitor.default_threshold must be > 0, got %v", c.Monitor.DefaultThreshold)
	}
	for i, w := range c.Monitor.Watchlist {
		if w.Symbol == "" {
			return fmt.Errorf("monitor.watchlist[%d].symbol is required", i)
		}
		if w.AssetType != "crypto" && w.AssetType != "stock" {
			return fmt.Errorf("monitor.watchlist[%d].asset_type must be 'crypto' or 'stock', got '%s'", i, w.AssetType)
		}
		if w.AlertThreshold < 0 {
			return fmt.Errorf("monitor.watchlist[%d].alert_threshold cannot be negative", i)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram is enabled")
	}
	if c.RateLimit.Capacity <= 0 || c.RateLimit.RefillRate <= 0 {
		return fmt.Errorf("ratelimit.capacity and ratelimit.refill_per_second must be > 0")
	}
	return nil
}
