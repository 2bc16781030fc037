//go:build wireinject
// +build wireinject

package di

import (
	"AutoTrader/pkg/config"
	"AutoTrader/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,
		ProvideClickHouseClient,

		// Decision engine
		ProvideProfiles,
		ProvideIndicators,
		ProvideEngine,

		// Repositories
		ProvideCandleSource,
		ProvideSignalBoard,
		ProvideSinks,

		// Use cases
		ProvideSignalCycle,
		ProvideEvaluateUseCase,
		ProvideCandlesUseCase,
		ProvidePriceCollector,

		// HTTP
		ProvideOperators,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
