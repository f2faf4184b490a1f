package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"PortOpt/internal/domain/models"
	"PortOpt/internal/domain/repository"
	"PortOpt/internal/handler/api"
	mid "PortOpt/internal/middleware"
	internalrepo "PortOpt/internal/repository"
	"PortOpt/internal/service/stooq"
	"PortOpt/internal/services/meanvar"
	"PortOpt/internal/services/solver"
	"PortOpt/internal/usecase"
	pkgcache "PortOpt/pkg/cache"
	pkgch "PortOpt/pkg/clickhouse"
	"PortOpt/pkg/config"
	xhttp "PortOpt/pkg/http"
	pkgkafka "PortOpt/pkg/kafka"
	applogger "PortOpt/pkg/logger"
	"PortOpt/pkg/metrics"
	"PortOpt/pkg/queue"
	"PortOpt/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the daily
// closes schema. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".daily_closes (symbol String, day Date, close Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, day)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePriceStore creates the ClickHouse-backed price store, nil when
// ClickHouse is disabled.
func ProvidePriceStore(chClient *pkgch.Client, cfg *config.Config) repository.PriceStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHousePriceStore(chClient.DB(), cfg.ClickHouse.Database+".daily_closes")
}

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher creates the report publisher; a no-op one when Kafka
// is disabled.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return internalrepo.NewNopResultPublisher()
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRedisCache creates the Redis cache layer, nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
	)
}

// ProvideCache picks the cache service: layered memory+Redis when Redis is
// enabled, in-process memory otherwise.
func ProvideCache(redisCache *pkgcache.RedisCache, cfg *config.Config) pkgcache.Service {
	if redisCache != nil {
		return pkgcache.NewLayeredCache(redisCache, pkgcache.WithLayeredMemorySize(cfg.Cache.MaxEntries))
	}
	return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MaxEntries))
}

// ProvideMarketData creates the Stooq daily-closes client.
func ProvideMarketData(cfg *config.Config) repository.MarketData {
	return stooq.New(cfg.Stooq.BaseURL, cfg.Stooq.Suffix, cfg.Stooq.Timeout)
}

// ProvideOptimizer builds the mean-variance optimizer on the penalty solver.
func ProvideOptimizer(cfg *config.Config) *meanvar.Optimizer {
	var solverOpts []solver.Option
	if cfg.Optimizer.PenaltyRounds > 0 {
		solverOpts = append(solverOpts, solver.WithRounds(cfg.Optimizer.PenaltyRounds))
	}
	return meanvar.NewOptimizer(
		solver.New(solverOpts...),
		meanvar.WithAnnualization(cfg.Optimizer.Annualization),
	)
}

// ProvideSolveDefaults maps configured fallbacks for optional request fields.
func ProvideSolveDefaults(cfg *config.Config) usecase.SolveDefaults {
	return usecase.SolveDefaults{
		RiskFreeRate: cfg.Optimizer.RiskFreeRate,
		Bounds: models.Bounds{
			Lower: cfg.Optimizer.LowerBound,
			Upper: cfg.Optimizer.UpperBound,
		},
		FrontierPoints: cfg.Optimizer.FrontierPoints,
		Parallelism:    cfg.Optimizer.MaxConcurrentSolves,
	}
}

// ProvideStatisticsProvider creates the statistics use case.
func ProvideStatisticsProvider(
	market repository.MarketData,
	store repository.PriceStore,
	cache pkgcache.Service,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.StatisticsProvider {
	return usecase.NewStatisticsProvider(market, store, cache, m, l,
		cfg.Cache.StatisticsTTL, cfg.Stooq.MaxParallel)
}

// ProvideOptimizationUseCase creates the optimization orchestrator.
func ProvideOptimizationUseCase(
	stats *usecase.StatisticsProvider,
	optimizer *meanvar.Optimizer,
	publisher repository.ResultPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	defaults usecase.SolveDefaults,
) *usecase.OptimizationUseCase {
	return usecase.NewOptimizationUseCase(stats, optimizer, publisher, m, l, defaults)
}

// ProvideQueue creates the Redis job queue running both producer and consumer
// sides, with the optimize job registered. Nil when the queue is disabled.
func ProvideQueue(
	cfg *config.Config,
	l *applogger.Logger,
	redisCache *pkgcache.RedisCache,
	uc *usecase.OptimizationUseCase,
	cache pkgcache.Service,
	defaults usecase.SolveDefaults,
) *queue.RedisQueue {
	if !cfg.Queue.Enabled || redisCache == nil {
		return nil
	}
	var opts []queue.RedisQueueOption
	if cfg.Queue.KeyPrefix != "" {
		opts = append(opts, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, redisCache.Client(), queue.ModeProducerConsumer, opts...)
	q.RegisterJob(usecase.NewOptimizeJob(uc, cache, l, cfg.Queue.ResultTTL, defaults))
	return q
}

// ProvideHandler creates the HTTP handler with the solve gate attached.
func ProvideHandler(
	l *applogger.Logger,
	uc *usecase.OptimizationUseCase,
	q *queue.RedisQueue,
	cache pkgcache.Service,
	store repository.PriceStore,
	defaults usecase.SolveDefaults,
	cfg *config.Config,
) xhttp.Handler {
	gate := mid.NewSolveGate(l,
		cfg.Optimizer.MaxConcurrentSolves,
		cfg.Optimizer.RateLimit.Capacity,
		cfg.Optimizer.RateLimit.RefillPerSec,
	)
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	return api.NewOptimizeEchoHandler(l, uc, qs, cache, store, gate, defaults, cfg.Queue.ResultTTL)
}

// ProvideApp assembles the application server. With Kafka enabled, repeated
// error logs are aggregated and shipped to a side topic.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	redisCache *pkgcache.RedisCache,
) *server.App {
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	return server.New(cfg, l, handler, q, chClient, producer, redisCache)
}

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher contract.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
