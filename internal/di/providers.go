package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"PulseWatch/internal/domain/models"
	"PulseWatch/internal/domain/repository"
	"PulseWatch/internal/handler/api"
	internalrepo "PulseWatch/internal/repository"
	"PulseWatch/internal/service/coingecko"
	"PulseWatch/internal/service/finnhub"
	"PulseWatch/internal/service/llm"
	"PulseWatch/internal/service/market"
	"PulseWatch/internal/service/notify"
	"PulseWatch/internal/service/ratelimit"
	"PulseWatch/internal/usecase"
	"PulseWatch/pkg/cache"
	pkgch "PulseWatch/pkg/clickhouse"
	"PulseWatch/pkg/config"
	xhttp "PulseWatch/pkg/http"
	pkgkafka "PulseWatch/pkg/kafka"
	"PulseWatch/pkg/logger"
	"PulseWatch/pkg/metrics"
	"PulseWatch/pkg/postgres"
	"PulseWatch/pkg/server"
)

// DeliveryChannels fan a notification out to the user-facing sinks that sit
// behind Kafka when it is enabled.
type DeliveryChannels struct {
	*notify.Multi
}

// ProvideLogger builds the application logger. When a collect topic is set
// and Kafka is enabled, repeated warn/error lines are shipped to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, func(), error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Logger.CollectTopic != "" {
		l.AddCollector(&logger.CollectionConfig{
			Service:   "pulsewatch",
			Topic:     cfg.Logger.CollectTopic,
			Publisher: producer,
		})
	}
	return l, l.RemoveCollector, nil
}

func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCache returns Redis when enabled so cooldowns and the tick lock are
// shared across replicas, otherwise an in-process cache.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		c := cache.NewMemoryCache()
		return c, func() { _ = c.Close() }, nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithAsync(p.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when alert
// history is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, false),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideAlertHistory prepares the alert_history table.
func ProvideAlertHistory(client *pkgch.Client) (repository.AlertHistory, error) {
	if client == nil {
		return internalrepo.NopAlertHistory{}, nil
	}
	h := internalrepo.NewClickHouseAlertHistory(client.DB(), "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return h, nil
}

// ProvidePostgresPool connects to Postgres, or returns nil when the
// watchlist comes from the config file.
func ProvidePostgresPool(cfg *config.Config) (*pgxpool.Pool, func(), error) {
	pg := cfg.Postgres
	if pg.DSN == "" {
		return nil, func() {}, nil
	}
	pool, err := postgres.NewPool(context.Background(), pg.DSN,
		postgres.WithMaxConns(pg.MaxConns),
		postgres.WithMinConns(pg.MinConns),
		postgres.WithConnLifetime(pg.MaxConnLifetime, pg.MaxConnIdleTime),
		postgres.WithRequireSSL(pg.RequireSSL),
	)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

func ProvideInstrumentRegistry(pool *pgxpool.Pool, cfg *config.Config) repository.InstrumentRegistry {
	if pool == nil {
		return internalrepo.NewStaticWatchlist(cfg.Monitor.Watchlist, cfg.Monitor.DefaultThreshold)
	}
	return internalrepo.NewPostgresWatchlist(pool, cfg.Monitor.DefaultThreshold)
}

// ProvideMarketRouter routes crypto to CoinGecko and stocks to Finnhub.
func ProvideMarketRouter(cfg *config.Config, log *logger.Logger) *market.Router {
	crypto := coingecko.New(
		coingecko.WithBaseURL(cfg.CoinGecko.BaseURL),
		coingecko.WithAPIKey(cfg.CoinGecko.APIKey),
		coingecko.WithTimeout(cfg.CoinGecko.Timeout),
	)
	var stock market.Provider
	if cfg.Finnhub.APIKey != "" {
		stock = finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL, cfg.Finnhub.Timeout, log)
	} else {
		log.Warn("finnhub api key not set; stock instruments will fail their tick")
	}
	return market.NewRouter(crypto, stock)
}

// ProvideMarketTickers quotes stocks only when a stock provider is set.
func ProvideMarketTickers(cfg *config.Config, router *market.Router, c cache.Service, m repository.Metrics, log *logger.Logger) *usecase.MarketTickers {
	var stocks repository.SnapshotSource
	if router.Supports(models.AssetStock) {
		stocks = router
	}
	return usecase.NewMarketTickers(router, stocks, c, usecase.MarketTickersConfig{
		CryptoLimit: cfg.Market.TickerLimit,
		Stocks:      cfg.Market.TickerStocks,
		CacheTTL:    cfg.Market.TickerCacheTTL,
	}, m, log)
}

func ProvideHub(log *logger.Logger) (*notify.Hub, func()) {
	h := notify.NewHub(log)
	return h, h.Close
}

// ProvideDeliveryChannels builds the Telegram and history sinks. Without
// Telegram, alerts are logged instead.
func ProvideDeliveryChannels(cfg *config.Config, log *logger.Logger, m repository.Metrics, history repository.AlertHistory) (*DeliveryChannels, error) {
	var chat repository.Dispatcher = notify.NewLogDispatcher(log)
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.UserChats)
		if err != nil {
			return nil, err
		}
		chat = tg
	}
	return &DeliveryChannels{notify.NewMulti(log, m, chat, notify.NewHistoryDispatcher(history))}, nil
}

// ProvideMonitorDispatcher always pushes to websocket subscribers. The rest
// goes through Kafka when it is enabled, directly otherwise.
func ProvideMonitorDispatcher(
	cfg *config.Config,
	log *logger.Logger,
	m repository.Metrics,
	hub *notify.Hub,
	producer *pkgkafka.Producer,
	delivery *DeliveryChannels,
) repository.Dispatcher {
	if producer != nil {
		return notify.NewMulti(log, m, hub, notify.NewKafkaDispatcher(producer, cfg.Kafka.AlertsTopic))
	}
	return notify.NewMulti(log, m, hub, delivery)
}

func ProvideAlertDeliveryHandler(cfg *config.Config, delivery *DeliveryChannels, m repository.Metrics) *usecase.AlertDeliveryHandler {
	return usecase.NewAlertDeliveryHandler(cfg.Kafka.AlertsTopic, delivery, m)
}

// ProvideKafkaConsumer creates the delivery consumer, or nil when Kafka or
// the consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger, h *usecase.AlertDeliveryHandler) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithHook(pkgkafka.TraceHook())
	consumer.RegisterHandler(h)
	return consumer, nil
}

func ProvideCooldownStore(c cache.Service) repository.CooldownStore {
	return internalrepo.NewCooldownStore(c)
}

func ProvidePriceMonitor(
	cfg *config.Config,
	registry repository.InstrumentRegistry,
	router *market.Router,
	dispatcher repository.Dispatcher,
	cooldowns repository.CooldownStore,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.PriceMonitor {
	return usecase.NewPriceMonitor(registry, router, dispatcher, cooldowns, m, log, usecase.MonitorConfig{
		Cooldown:        cfg.Monitor.Cooldown,
		DispatchTimeout: cfg.Monitor.DispatchTimeout,
	})
}

func ProvideScheduler(cfg *config.Config, monitor *usecase.PriceMonitor, c cache.Service, log *logger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(monitor, c, log, usecase.SchedulerConfig{
		Interval:   cfg.Monitor.Interval,
		RunOnStart: cfg.Monitor.RunOnStart,
		LockTTL:    cfg.Monitor.LockTTL,
	})
}

func ProvideChartAnalysis(cfg *config.Config, router *market.Router, c cache.Service, m repository.Metrics, log *logger.Logger) (*usecase.ChartAnalysis, error) {
	gateway, err := llm.New(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("llm api key not set; chart analysis will answer 502")
		return usecase.NewChartAnalysis(router, llm.Disabled{}, c, cfg.LLM.AnchorCacheTTL, m, log), nil
	case err != nil:
		return nil, fmt.Errorf("llm gateway: %w", err)
	}
	return usecase.NewChartAnalysis(router, gateway, c, cfg.LLM.AnchorCacheTTL, m, log), nil
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(float64(cfg.RateLimit.Capacity), cfg.RateLimit.RefillRate)
}

// ProvideHealthChecks collects a readiness probe per configured backend.
func ProvideHealthChecks(c cache.Service, ch *pkgch.Client, pool *pgxpool.Pool) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{}
	if rc, ok := c.(*cache.RedisCache); ok {
		checks["redis"] = func(ctx context.Context) error { return rc.Client().Ping(ctx).Err() }
	}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	return checks
}

// ProvideHTTPHandler mounts every API route group.
func ProvideHTTPHandler(
	log *logger.Logger,
	analysis *usecase.ChartAnalysis,
	limiter *ratelimit.Limiter,
	scheduler *usecase.Scheduler,
	history repository.AlertHistory,
	hub *notify.Hub,
	tickers *usecase.MarketTickers,
	checks map[string]api.HealthCheck,
) xhttp.Handler {
	return api.Routes{
		api.NewHealthEchoHandler(checks),
		api.NewPredictionEchoHandler(log, analysis, limiter),
		api.NewMonitorEchoHandler(log, scheduler),
		api.NewAlertsEchoHandler(log, history, hub),
		api.NewMarketEchoHandler(log, tickers),
	}
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, handler xhttp.Handler, reg *prometheus.Registry) *xhttp.Server {
	s := cfg.Server
	metricsPath := cfg.Metrics.Path
	if !cfg.Metrics.Enabled {
		metricsPath = ""
	}
	return xhttp.NewServer(log, handler,
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithHost(s.Host),
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithCORSOrigins(s.CORSOrigins),
		xhttp.WithRegistry(reg),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(log, httpServer, scheduler, consumer, limiter, server.Options{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MonitorEnabled:  cfg.Monitor.Enabled,
	})
}
