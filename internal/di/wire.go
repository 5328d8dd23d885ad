//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"StockPilot/internal/domain/repository"
	"StockPilot/internal/domain/service"
	"StockPilot/internal/service/yahoo"
	"StockPilot/internal/services/signals"
	"StockPilot/internal/usecase"
	"StockPilot/pkg/config"
	applogger "StockPilot/pkg/logger"
	"StockPilot/pkg/server"
)

var metricsSet = wire.NewSet(
	ProvideRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	ProvideMetrics,
)

var ingestionSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideEventPublisher,
	ProvideObjectStore,
	ProvideRedisClient,
	ProvideCache,
	ProvideYahooClient,
	wire.Bind(new(repository.MarketData), new(*yahoo.Client)),
	ProvideMetadataResolver,
	ProvideNormalizer,
	ProvideIngestor,
	ProvideBatchWriter,
	ProvidePipeline,
	ProvideRunner,
)

var querySet = wire.NewSet(
	ProvideClickHouseClient,
	ProvideBarReader,
	ProvideSignalEngine,
	wire.Bind(new(service.SignalEvaluator), new(*signals.Engine)),
	ProvideQueryService,
)

// InitializeApp builds the long-running service: API, scheduler, job queue and loader.
func InitializeApp(cfg *config.Config, l *applogger.Logger) (*server.App, func(), error) {
	wire.Build(
		metricsSet,
		ingestionSet,
		querySet,
		ProvideBarStore,
		ProvideWarehouseLoader,
		ProvideKafkaConsumer,
		ProvideJobQueue,
		ProvideScheduler,
		ProvideRateLimiter,
		ProvideStreamMetrics,
		ProvideHTTPHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeRunner builds just the ingestion path for one-shot runs.
func InitializeRunner(cfg *config.Config, l *applogger.Logger) (*usecase.Runner, func(), error) {
	wire.Build(metricsSet, ingestionSet)
	return nil, nil, nil
}

// InitializeQueryService builds the read path over the warehouse.
func InitializeQueryService(cfg *config.Config, l *applogger.Logger) (*usecase.QueryService, func(), error) {
	wire.Build(metricsSet, querySet, ProvideRedisClient, ProvideCache)
	return nil, nil, nil
}

// InitializeWarehouseLoader builds the loader for manual partition loads.
func InitializeWarehouseLoader(cfg *config.Config, l *applogger.Logger) (*usecase.WarehouseLoader, func(), error) {
	wire.Build(
		metricsSet,
		ProvideClickHouseClient,
		ProvideBarStore,
		ProvideObjectStore,
		ProvideWarehouseLoader,
	)
	return nil, nil, nil
}
