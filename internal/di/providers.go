package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"StockPilot/internal/domain/repository"
	"StockPilot/internal/domain/service"
	"StockPilot/internal/handler/api"
	internalrepo "StockPilot/internal/repository"
	"StockPilot/internal/repository/objectstore"
	imetrics "StockPilot/internal/service/metrics"
	"StockPilot/internal/service/ratelimit"
	"StockPilot/internal/service/yahoo"
	"StockPilot/internal/services/metadata"
	"StockPilot/internal/services/normalize"
	"StockPilot/internal/services/signals"
	"StockPilot/internal/usecase"
	"StockPilot/pkg/cache"
	pkgch "StockPilot/pkg/clickhouse"
	"StockPilot/pkg/config"
	xhttp "StockPilot/pkg/http"
	pkgkafka "StockPilot/pkg/kafka"
	applogger "StockPilot/pkg/logger"
	"StockPilot/pkg/metrics"
	"StockPilot/pkg/queue"
	"StockPilot/pkg/retry"
	"StockPilot/pkg/server"
)

const runLockKey = "lock:ingestion"

func noop() {}

// ProvideRegistry creates the Prometheus registry served at /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates the domain metrics recorder.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	return metrics.New(reg)
}

// ProvideClickHouseClient connects to ClickHouse.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideBarStore creates the warehouse writer and ensures its schema exists.
func ProvideBarStore(ch *pkgch.Client, cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*internalrepo.BarStore, error) {
	store := internalrepo.NewBarStore(ch, cfg.ClickHouse.Database, m, l)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideBarReader creates the warehouse reader.
func ProvideBarReader(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.BarReader {
	return internalrepo.NewBarReader(ch, cfg.ClickHouse.Database, cfg.Signals.FastPeriod, cfg.Signals.SlowPeriod, l)
}

// ProvideKafkaProducer creates the producer and makes it the sink of the
// error log collector. It is nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config, reg prometheus.Registerer, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		l.Warn("kafka brokers not configured, partition events and log shipping disabled")
		return nil, noop, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(-1),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.Topics.Logs,
		Publisher:      producer,
	})
	cleanup := func() {
		// flush collected errors before the producer goes away
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideEventPublisher publishes PartitionWritten events, or nothing without Kafka.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topics.Partitions)
}

// ProvideObjectStore selects the GCS or filesystem backend.
func ProvideObjectStore(cfg *config.Config, l *applogger.Logger) (repository.ObjectStore, func(), error) {
	if err := cfg.StorageDestination(); err != nil {
		return nil, nil, err
	}
	switch cfg.Storage.Backend {
	case "fs":
		fs, err := objectstore.NewFilesystem(cfg.Storage.Root)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		gcs, err := objectstore.NewGCS(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := gcs.Close(); err != nil {
				l.Warn("gcs close error", applogger.Error(err))
			}
		}
		return gcs, cleanup, nil
	}
}

// ProvideRedisClient connects to Redis, or returns nil when disabled.
func ProvideRedisClient(cfg *config.Config, l *applogger.Logger) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, noop, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Prefix),
	)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc.Client(), cleanup, nil
}

// ProvideCache layers memory over Redis when Redis is enabled, memory only otherwise.
func ProvideCache(cfg *config.Config, rc *redis.Client) (cache.Service, func()) {
	if rc == nil {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
		return mc, func() { _ = mc.Close() }
	}
	lc := cache.NewLayeredCache(
		cache.NewRedisCacheFromClient(rc, cfg.Cache.Prefix),
		cache.WithLayeredMemorySize(cfg.Cache.MaxSize),
		cache.WithLayeredMemoryTTL(cfg.Cache.PriceTTL),
	)
	// the redis client is closed by its own provider
	return lc, noop
}

// ProvideYahooClient creates the market data client.
func ProvideYahooClient(cfg *config.Config, l *applogger.Logger) *yahoo.Client {
	return yahoo.New(cfg.Provider.ChartURL, cfg.Provider.SearchURL,
		yahoo.WithHTTPClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.Provider.Timeout),
			xhttp.WithHeader("User-Agent", cfg.Provider.UserAgent),
		)),
		yahoo.WithRateLimit(cfg.Provider.RatePerSecond, cfg.Provider.Burst),
		yahoo.WithLogger(l),
	)
}

// ProvideMetadataResolver consults chart metadata first, then search.
func ProvideMetadataResolver(c *yahoo.Client, cch cache.Service, cfg *config.Config, l *applogger.Logger) service.MetadataResolver {
	return metadata.New(
		yahoo.NewChartMetaSource(c),
		[]repository.MetadataSource{yahoo.NewSearchSource(c)},
		metadata.WithCache(cch, cfg.Provider.MetadataTTL),
		metadata.WithLogger(l),
	)
}

func ProvideNormalizer(cfg *config.Config) *normalize.Normalizer {
	return normalize.New(normalize.Policy(cfg.Ingestion.OHLCPolicy))
}

func ProvideIngestor(md repository.MarketData, norm *normalize.Normalizer, meta service.MetadataResolver,
	m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.Ingestor {
	return usecase.NewIngestor(md, norm, meta, m, usecase.IngestorConfig{
		Concurrency: cfg.Ingestion.Concurrency,
		Retry: retry.Policy{
			MaxAttempts: cfg.Ingestion.Retry.MaxAttempts,
			BaseDelay:   cfg.Ingestion.Retry.BaseDelay,
			MaxDelay:    cfg.Ingestion.Retry.MaxDelay,
			Hint:        xhttp.RetryAfterOf,
		},
	}, l)
}

func ProvideBatchWriter(store repository.ObjectStore, events repository.EventPublisher, m repository.Metrics,
	cfg *config.Config, l *applogger.Logger) *usecase.BatchWriter {
	return usecase.NewBatchWriter(store, events, m, cfg.Storage.WriteConcurrency, l)
}

func ProvidePipeline(ing *usecase.Ingestor, w *usecase.BatchWriter, cfg *config.Config, l *applogger.Logger) *usecase.Pipeline {
	return usecase.NewPipeline(ing, w, cfg.StorageDestination, l)
}

// ProvideRunner serializes runs through the cache lock.
func ProvideRunner(p *usecase.Pipeline, cch cache.Service, cfg *config.Config, m repository.Metrics, l *applogger.Logger) *usecase.Runner {
	return usecase.NewRunner(p, cch, runLockKey, cfg.Ingestion.RunLockTTL, ProvideRunDefaults(cfg), m, l)
}

func ProvideRunDefaults(cfg *config.Config) usecase.RunDefaults {
	return usecase.RunDefaults{
		Instruments: cfg.Ingestion.Universe,
		Period:      cfg.Ingestion.Period,
		Interval:    cfg.Ingestion.Interval,
	}
}

// ProvideSignalEngine builds the rolling signal engine from config thresholds.
func ProvideSignalEngine(cfg *config.Config) *signals.Engine {
	s := cfg.Signals
	return signals.New(signals.Config{
		FastPeriod:      s.FastPeriod,
		SlowPeriod:      s.SlowPeriod,
		VolumePeriod:    s.VolumePeriod,
		HighVolumeRatio: s.HighVolumeRatio,
		LowVolumeRatio:  s.LowVolumeRatio,
		LevelPeriod:     s.LevelPeriod,
		LevelProximity:  s.LevelProximity,
		ShortPeriod:     1,
		ShortThreshold:  s.ShortThreshold,
		MediumPeriod:    s.MediumPeriod,
		MediumThreshold: s.MediumThreshold,
	})
}

func ProvideQueryService(reader repository.BarReader, engine service.SignalEvaluator, cch cache.Service,
	m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.QueryService {
	c := cfg.Cache
	return usecase.NewQueryService(reader, engine, cch, m, usecase.QueryConfig{
		TTL: usecase.QueryTTLs{
			Price:       c.PriceTTL,
			History:     c.HistoryTTL,
			Volume:      c.VolumeTTL,
			Trend:       c.TrendTTL,
			Signals:     c.SignalsTTL,
			Instruments: c.InstrumentsTTL,
		},
		Prefix:          "query",
		HistoryBars:     cfg.Signals.HistoryBars,
		VolumePeriod:    cfg.Signals.VolumePeriod,
		HighVolumeRatio: cfg.Signals.HighVolumeRatio,
	}, l)
}

func ProvideWarehouseLoader(cfg *config.Config, store repository.ObjectStore, wh *internalrepo.BarStore,
	m repository.Metrics, l *applogger.Logger) *usecase.WarehouseLoader {
	return usecase.NewWarehouseLoader(cfg.Kafka.Topics.Partitions, store, wh, m, l)
}

// ProvideKafkaConsumer creates the loader's consumer group, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, reg prometheus.Registerer, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	kc := cfg.Kafka.Consumer
	if kc.Disabled || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook(), pkgkafka.LogErrorsHook(l)))
	return consumer, nil
}

// ProvideJobQueue runs queued ingestion requests on Redis when enabled, in process otherwise.
func ProvideJobQueue(cfg *config.Config, rc *redis.Client, runner *usecase.Runner, l *applogger.Logger) queue.Queue {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		JobTimeout: cfg.Ingestion.RunLockTTL,
	}
	var q queue.Queue
	if rc != nil {
		q = queue.NewRedisQueue(l, qc, rc, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
	} else {
		q = queue.NewLocalQueue(l, qc)
	}
	q.RegisterJobs(usecase.NewIngestJob(runner, l))
	return q
}

// ProvideScheduler returns nil when scheduling is switched off.
func ProvideScheduler(cfg *config.Config, runner *usecase.Runner, l *applogger.Logger) (*usecase.Scheduler, error) {
	if cfg.Ingestion.ScheduleOff {
		return nil, nil
	}
	return usecase.NewScheduler(cfg.Ingestion.Schedule, runner, cfg.Ingestion.RunLockTTL, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.RefillPerSec, int(cfg.Server.RateLimit.Capacity))
}

func ProvideStreamMetrics(reg prometheus.Registerer) *imetrics.StreamMetrics {
	return imetrics.NewStreamMetrics(reg)
}

// ProvideHTTPHandlers assembles the API and health routes.
func ProvideHTTPHandlers(cfg *config.Config, q *usecase.QueryService, jobs queue.Queue, limiter *ratelimit.Limiter,
	sm *imetrics.StreamMetrics, ch *pkgch.Client, rc *redis.Client, l *applogger.Logger) []xhttp.Handler {
	checks := map[string]api.HealthCheck{"clickhouse": ch.Health}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}
	return []xhttp.Handler{
		api.NewStockEchoHandler(l, q, jobs, ProvideRunDefaults(cfg), limiter, sm, api.StreamConfig{}),
		api.NewHealthHandler(l, 3*time.Second, checks),
	}
}

func ProvideHTTPServer(cfg *config.Config, handlers []xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(reg, reg),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the serve lifecycle. A nil consumer leaves loading to `stockpilot load`.
func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, consumer *pkgkafka.Consumer,
	loader *usecase.WarehouseLoader, jobs queue.Queue, scheduler *usecase.Scheduler) *server.App {
	return server.New(cfg, l, srv, consumer, loader, jobs, scheduler)
}
