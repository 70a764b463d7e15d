//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"PulseWatch/pkg/config"
	"PulseWatch/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideRegistry,
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvidePostgresPool,

		// Repositories
		ProvideAlertHistory,
		ProvideInstrumentRegistry,
		ProvideCooldownStore,
		ProvideMarketRouter,

		// Notification channels
		ProvideHub,
		ProvideDeliveryChannels,
		ProvideMonitorDispatcher,
		ProvideAlertDeliveryHandler,
		ProvideKafkaConsumer,

		// Use cases
		ProvidePriceMonitor,
		ProvideScheduler,
		ProvideChartAnalysis,
		ProvideRateLimiter,
		ProvideMarketTickers,

		// HTTP
		ProvideHealthChecks,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
