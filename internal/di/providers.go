package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	"AutoTrader/internal/handler/api"
	mid "AutoTrader/internal/middleware"
	internalrepo "AutoTrader/internal/repository"
	"AutoTrader/internal/service/exchange"
	"AutoTrader/internal/service/okxws"
	"AutoTrader/internal/service/ratelimit"
	"AutoTrader/internal/services/indicators"
	"AutoTrader/internal/services/signal"
	"AutoTrader/internal/usecase"
	"AutoTrader/pkg/cache"
	pkgch "AutoTrader/pkg/clickhouse"
	"AutoTrader/pkg/config"
	xhttp "AutoTrader/pkg/http"
	"AutoTrader/pkg/http/middleware"
	pkgkafka "AutoTrader/pkg/kafka"
	applogger "AutoTrader/pkg/logger"
	"AutoTrader/pkg/metrics"
	"AutoTrader/pkg/server"
)

const boardTTL = 7 * 24 * time.Hour

// ProvideLogger creates the application logger from config. When the log
// collector is enabled, error digests go out through the Kafka producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		// attach before anything derives a component logger with With
		l.AttachCollector(&applogger.CollectorConfig{
			FlushInterval: cfg.Log.Collector.FlushInterval,
			MaxEntries:    cfg.Log.Collector.MaxEntries,
			Topic:         cfg.Log.Collector.Topic,
			IncludeWarn:   cfg.Log.Collector.IncludeWarn,
			Publisher:     producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideCache returns the layered Redis cache when Redis is enabled and an
// in-process cache otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdle),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	return cache.NewLayeredCache(rc, cache.WithL1(cfg.Redis.L1Size, cfg.Redis.L1TTL)), nil
}

func needsClickHouse(cfg *config.Config) bool {
	return cfg.Candles.Source == "clickhouse" || cfg.Candles.Archive || cfg.Sinks.ClickHouse
}

// ProvideClickHouseClient connects and prepares the schema when any
// component stores to or reads from ClickHouse. Otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !needsClickHouse(cfg) {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.UseHTTP),
		pkgch.WithLogin(cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns, cfg.ClickHouse.ConnMaxLifetime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout, cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates the producer shared by the signal sink and the
// log digest collector. Nil when neither is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Sinks.Kafka && !cfg.Log.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Producer.Async),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideProfiles builds the SWING and POSITIONAL profiles.
func ProvideProfiles(cfg *config.Config) usecase.Profiles {
	profile := func(m models.Mode, mc config.ModeConfig) models.ModeProfile {
		return models.ModeProfile{
			Mode:             m,
			Timeframe:        mc.Timeframe,
			CandleLimit:      mc.CandleLimit,
			TargetMultiplier: mc.TargetMultiplier,
			ConfidenceBase:   mc.ConfidenceBase,
			MinGainPct:       mc.MinGainPct,
			MaxGainPct:       mc.MaxGainPct,
			ChangeWindow:     mc.ChangeWindow,
		}
	}
	return usecase.Profiles{
		profile(models.ModeSwing, cfg.Modes.Swing),
		profile(models.ModePositional, cfg.Modes.Positional),
	}
}

func ProvideIndicators(cfg *config.Config) *indicators.Engine {
	e := cfg.Engine
	return indicators.New(indicators.Periods{
		Fast:   e.FastEMA,
		Slow:   e.SlowEMA,
		ATR:    e.ATRLen,
		ADX:    e.ADXLen,
		Margin: e.MarginBars,
		UseADX: e.UseADX,
	})
}

// ProvideEngine assembles the decision pipeline.
func ProvideEngine(cfg *config.Config, ind *indicators.Engine) (*signal.Engine, error) {
	e := cfg.Engine
	proj, err := signal.NewProjector(e.TargetStrategy, e.ATRPctMin, e.ATRPctMax, e.Fibonacci.Lookback, e.Fibonacci.Ratios)
	if err != nil {
		return nil, err
	}
	scorer, err := signal.NewScorer(e.Scorer, signal.Band{Min: e.Confidence.Min, Max: e.Confidence.Max})
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	filter := signal.Filter{
		MinGainPct:    e.Filter.MinGainPct,
		MinConfidence: e.Filter.MinConfidence,
		ZeroFiltered:  e.Filter.FilteredFields == "zero",
	}
	return signal.NewEngine(ind, proj, scorer, filter, signal.NewAssembler(e.PriceDecimals, e.PctDecimals, loc)), nil
}

// ProvideCandleSource builds the source chain:
// exchange or ClickHouse, then the optional archive, then the cache.
func ProvideCandleSource(
	cfg *config.Config,
	ch *pkgch.Client,
	c cache.Service,
	l *applogger.Logger,
	m *metrics.Recorder,
) (domrepo.CandleSource, error) {
	var src domrepo.CandleSource
	switch cfg.Candles.Source {
	case "clickhouse":
		src = internalrepo.NewCHCandleStore(ch, "", l)
	default:
		var limiter *ratelimit.Limiter
		if t := cfg.Candles.Throttle; t > 0 {
			limiter = ratelimit.New(1/t.Seconds(), 1)
		}
		exchanges, err := exchange.New(cfg.Candles.Exchanges, exchange.Options{
			Timeout: cfg.Candles.RequestTimeout,
			Retries: cfg.Candles.Retries,
			Limiter: limiter,
		})
		if err != nil {
			return nil, err
		}
		src = exchange.NewFallbackSource(exchanges, cfg.Quote, l, m)
		if cfg.Candles.Archive {
			names := strings.Join(cfg.Candles.Exchanges, ",")
			src = internalrepo.NewArchivingSource(src, internalrepo.NewCHCandleStore(ch, names, l), l, m)
		}
	}
	if cfg.Candles.Cache.Enabled {
		src = internalrepo.NewCachedCandleSource(src, c, cfg.Candles.Cache.TTL)
	}
	return src, nil
}

func ProvideSignalBoard(c cache.Service) *internalrepo.CacheSignalBoard {
	return internalrepo.NewCacheSignalBoard(c, boardTTL)
}

// ProvideSinks fans each cycle out to every enabled sink.
func ProvideSinks(
	cfg *config.Config,
	board *internalrepo.CacheSignalBoard,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	l *applogger.Logger,
	m *metrics.Recorder,
) (*internalrepo.MultiSink, error) {
	var (
		signals []internalrepo.NamedSignalSink
		reports []internalrepo.NamedReportSink
	)
	if cfg.Sinks.Board {
		signals = append(signals, internalrepo.NamedSignalSink{Name: "board", Sink: board})
		reports = append(reports, internalrepo.NamedReportSink{Name: "board", Sink: board})
	}
	if cfg.Sinks.Kafka {
		signals = append(signals, internalrepo.NamedSignalSink{Name: "kafka", Sink: internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalTopic)})
	}
	if cfg.Sinks.File.Enabled {
		loc, err := time.LoadLocation(cfg.Engine.Timezone)
		if err != nil {
			return nil, fmt.Errorf("engine.timezone: %w", err)
		}
		reports = append(reports, internalrepo.NamedReportSink{Name: "file", Sink: internalrepo.NewJSONFileSink(cfg.Sinks.File.Path, loc)})
	}
	if cfg.Sinks.ClickHouse {
		reports = append(reports, internalrepo.NamedReportSink{Name: "clickhouse", Sink: internalrepo.NewCHSignalStorage(ch)})
	}
	return internalrepo.NewMultiSink(signals, reports, l, m), nil
}

func ProvideSignalCycle(
	cfg *config.Config,
	source domrepo.CandleSource,
	engine *signal.Engine,
	sinks *internalrepo.MultiSink,
	c cache.Service,
	profiles usecase.Profiles,
	l *applogger.Logger,
	m *metrics.Recorder,
) *usecase.SignalCycle {
	return usecase.NewSignalCycle(source, engine, sinks, sinks, c, l, m, usecase.CycleConfig{
		Pairs:              cfg.Pairs,
		Profiles:           profiles,
		Workers:            cfg.Scheduler.Workers,
		Timeout:            cfg.Scheduler.CycleTimeout,
		PlaceholderSkipped: cfg.Engine.Skipped == "placeholder",
	})
}

func ProvideEvaluateUseCase(engine *signal.Engine, profiles usecase.Profiles) *usecase.EvaluateUseCase {
	return usecase.NewEvaluateUseCase(engine, profiles)
}

func ProvideCandlesUseCase(source domrepo.CandleSource, ind *indicators.Engine, profiles usecase.Profiles) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(source, ind, profiles)
}

// ProvidePriceCollector wires live tickers into the board. Nil when the
// price stream is disabled.
func ProvidePriceCollector(
	cfg *config.Config,
	board *internalrepo.CacheSignalBoard,
	l *applogger.Logger,
	m *metrics.Recorder,
) *usecase.PriceCollector {
	if !cfg.PriceStream.Enabled {
		return nil
	}
	ps := cfg.PriceStream
	stream := okxws.New(ps.URL, cfg.Quote, ps.ReconnectDelay, ps.PingInterval, l)
	refresher := usecase.NewPriceRefresher(board, []models.Mode{models.ModeSwing, models.ModePositional},
		cfg.Engine.PriceDecimals, cfg.Engine.PctDecimals)
	pipe := mid.NewRealtimePipeline(refresher, m,
		mid.WithMinInterval(ps.MinInterval),
		mid.WithBufferSize(len(cfg.Pairs)*4),
	)
	return usecase.NewPriceCollector(stream, pipe, cfg.Pairs, m, l)
}

// ProvideOperators returns nil when no operator secret is configured.
func ProvideOperators(cfg *config.Config) *middleware.Operators {
	if cfg.Server.OperatorSecret == "" {
		return nil
	}
	return middleware.NewOperators(cfg.Server.OperatorSecret, cfg.Server.OperatorTokenTTL)
}

func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	board *internalrepo.CacheSignalBoard,
	cycle *usecase.SignalCycle,
	evaluate *usecase.EvaluateUseCase,
	candles *usecase.CandlesUseCase,
	ops *middleware.Operators,
	c cache.Service,
	ch *pkgch.Client,
	collector *usecase.PriceCollector,
) *api.SignalsEchoHandler {
	checks := map[string]api.HealthCheck{
		"cache": func(ctx context.Context) error {
			var v string
			err := c.Get(ctx, "healthz", &v)
			if err == nil || errors.Is(err, cache.ErrCacheMiss) {
				return nil
			}
			return err
		},
	}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if collector != nil {
		checks["price_stream"] = func(context.Context) error {
			if !collector.IsConnected() {
				return fmt.Errorf("price stream disconnected")
			}
			return nil
		}
	}
	return api.NewSignalsEchoHandler(l, board, cycle, evaluate, candles, api.Options{
		Operators:       ops,
		CycleRPS:        cfg.Server.CycleTriggerRPS,
		CandlesCacheTTL: cfg.Server.CandlesCacheTTL,
		Checks:          checks,
	})
}

// ProvideApp registers the long-running components and the clients to close.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	cycle *usecase.SignalCycle,
	handler *api.SignalsEchoHandler,
	collector *usecase.PriceCollector,
	c cache.Service,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	closers := []server.Closer{{Name: "cache", Close: c.Close}}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if producer != nil {
		// closers run in reverse: the collector flushes before the producer closes
		closers = append(closers, server.Closer{Name: "kafka", Close: producer.Close})
		closers = append(closers, server.Closer{Name: "log_collector", Close: func() error { l.DetachCollector(); return nil }})
	}

	app := server.New(server.Options{
		Interval:        cfg.Scheduler.Interval,
		RunOnStart:      cfg.Scheduler.RunOnStart,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, l, cycle, closers...)

	if collector != nil {
		app.Add("price_collector", collector)
	}
	if cfg.Server.Enabled {
		opts := []xhttp.ServerOption{
			xhttp.WithHost(cfg.Server.Host),
			xhttp.WithPort(cfg.Server.Port),
			xhttp.WithCORS(cfg.Server.CORS),
			xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		}
		if !cfg.Metrics.Enabled {
			opts = append(opts, xhttp.WithMetricsPath(""))
		} else {
			opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
		}
		app.Add("http", xhttp.NewServer(handler, l, opts...))
	}
	return app
}
