//go:build wireinject
// +build wireinject

package di

import (
	"PortOpt/pkg/config"
	"PortOpt/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvidePriceStore,
		ProvideResultPublisher,
		ProvideMarketData,

		// Optimizer and use cases
		ProvideOptimizer,
		ProvideSolveDefaults,
		ProvideStatisticsProvider,
		ProvideOptimizationUseCase,
		ProvideQueue,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
