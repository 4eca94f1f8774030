package di

import (
	"context"
	"fmt"
	"time"

	"FlowTrack/internal/domain/repository"
	"FlowTrack/internal/handler/api"
	internalrepo "FlowTrack/internal/repository"
	icache "FlowTrack/internal/service/cache"
	"FlowTrack/internal/service/ingest"
	"FlowTrack/internal/services/accumulation"
	"FlowTrack/internal/services/baseline"
	"FlowTrack/internal/services/detect"
	"FlowTrack/internal/services/levels"
	"FlowTrack/internal/services/score"
	"FlowTrack/internal/usecase"
	pkgch "FlowTrack/pkg/clickhouse"
	"FlowTrack/pkg/config"
	pkgkafka "FlowTrack/pkg/kafka"
	"FlowTrack/pkg/logger"
	"FlowTrack/pkg/metrics"
	"FlowTrack/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return logger.New(&logger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSnapshotSource picks the feed implementation from config.
func ProvideSnapshotSource(cfg *config.Config, log *logger.Logger) repository.SnapshotSource {
	if cfg.Feed.Mode == "live" {
		return ingest.NewWSClient(
			cfg.Feed.APIKey,
			cfg.Feed.WebSocketURL,
			cfg.Feed.Symbols,
			cfg.Feed.ReconnectDelay.Std(),
			cfg.Feed.PingInterval.Std(),
			log,
		)
	}
	return ingest.NewDemoSource(cfg.Feed.Symbols, cfg.Feed.DemoInterval.Std(), log)
}

// ProvideDetectConfig maps YAML thresholds onto the detector config.
func ProvideDetectConfig(cfg *config.Config) detect.Config {
	return detect.Config{
		VolumeMultiplier:   cfg.Detectors.VolumeMultiplier,
		VolumeFullScale:    cfg.Detectors.VolumeFullScale,
		MinVolume:          cfg.Detectors.MinVolume,
		OIChangePct:        cfg.Detectors.OIChangePct,
		IVSpikePts:         cfg.Detectors.IVSpikePts,
		DeltaMovePct:       cfg.Detectors.DeltaMovePct,
		MinPremium:         cfg.Detectors.MinPremium,
		EnableTradeSignals: cfg.Detectors.EnableTradeSignals,
		BlockMinContracts:  cfg.Detectors.BlockMinContracts,
		SweepMinVenues:     cfg.Detectors.SweepMinVenues,
		SweepWindow:        cfg.Detectors.SweepWindow.Std(),
		SweepMinPremium:    cfg.Detectors.SweepMinPremium,
		GoldenSweepPremium: cfg.Detectors.GoldenSweepPremium,
		GoldenSweepOTMPct:  cfg.Detectors.GoldenSweepOTMPct,
	}
}

// ProvideBaselineStore creates the rolling per-contract baseline store.
func ProvideBaselineStore(cfg *config.Config) *baseline.Store {
	return baseline.New(cfg.Baseline.Sessions, cfg.Baseline.PriceSpan.Std())
}

// ProvideDetector creates the snapshot/trade detector set.
func ProvideDetector(dc detect.Config) *detect.Detector {
	return detect.NewDetector(dc)
}

// ProvideTradeWindow creates the sweep-detection trade buffer.
func ProvideTradeWindow() *detect.TradeWindow {
	return detect.NewTradeWindow()
}

// ProvideClassifier creates the signal classifier.
func ProvideClassifier(dc detect.Config) *detect.Classifier {
	return detect.NewClassifier(dc.MinPremium)
}

// ProvideScorer creates the conviction scorer with stock weights.
func ProvideScorer() *score.Scorer {
	return score.NewScorer(score.Config{})
}

// ProvidePolicy creates the decision policy.
func ProvidePolicy(cfg *config.Config) *score.Policy {
	return score.NewPolicy(cfg.Scoring.DecisionThreshold)
}

// ProvideTracker creates the multi-day positioning tracker.
func ProvideTracker(cfg *config.Config) *accumulation.Tracker {
	return accumulation.NewTracker(accumulation.Config{
		WindowDays:    cfg.Accumulation.WindowDays,
		BiasFloor:     cfg.Accumulation.BiasFloor,
		MajorityShare: cfg.Accumulation.MajorityShare,
	})
}

// ProvideLevels creates the technical levels calculator.
func ProvideLevels() *levels.Calculator {
	return levels.NewCalculator(levels.Config{})
}

// ProvideLevelsCache backs the levels cache with Redis when configured,
// falling back to the in-process TTL cache.
func ProvideLevelsCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// archive is disabled.
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
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout.Std(), cfg.ClickHouse.ReadTimeout.Std(), cfg.ClickHouse.WriteTimeout.Std()),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime.Std()),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchive creates the signal archive, or nil when disabled.
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config) (repository.Archive, error) {
	if chClient == nil {
		return nil, nil
	}
	table := cfg.ClickHouse.Table
	if table == "" {
		table = cfg.ClickHouse.Database + ".flow_signals"
	}
	archive := internalrepo.NewClickHouseArchive(chClient.DB(), table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return archive, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
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
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout.Std()),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout.Std(), cfg.Kafka.Producer.ReadTimeout.Std()),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEmitter assembles the alert emitter with whatever downstream
// sinks config enabled.
func ProvideEmitter(
	log *logger.Logger,
	m repository.Metrics,
	producer *pkgkafka.Producer,
	archive repository.Archive,
	cfg *config.Config,
) *usecase.Emitter {
	var sinks []repository.Publisher
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic))
	}
	if archive != nil {
		sinks = append(sinks, internalrepo.NewArchivePublisher(archive))
	}
	return usecase.NewEmitter(log, m, cfg.Alerts.DedupWindow.Std(), cfg.Alerts.MaxLog, sinks...)
}

// ProvideScanner assembles the scan pipeline.
func ProvideScanner(
	log *logger.Logger,
	m repository.Metrics,
	source repository.SnapshotSource,
	baselines *baseline.Store,
	detector *detect.Detector,
	window *detect.TradeWindow,
	classifier *detect.Classifier,
	scorer *score.Scorer,
	policy *score.Policy,
	tracker *accumulation.Tracker,
	calc *levels.Calculator,
	levelsCache icache.BytesCache,
	emitter *usecase.Emitter,
	cfg *config.Config,
) *usecase.Scanner {
	return usecase.NewScanner(usecase.ScannerDeps{
		Log:         log,
		Metrics:     m,
		Source:      source,
		Baselines:   baselines,
		Detector:    detector,
		Window:      window,
		Classify:    classifier,
		Scorer:      scorer,
		Policy:      policy,
		Tracker:     tracker,
		Levels:      calc,
		Emitter:     emitter,
		Symbols:     cfg.Feed.Symbols,
		LevelsCache: levelsCache,
	})
}

// ProvideAlertsHandler creates the REST handler.
func ProvideAlertsHandler(
	log *logger.Logger,
	emitter *usecase.Emitter,
	scanner *usecase.Scanner,
	tracker *accumulation.Tracker,
	archive repository.Archive,
) *api.AlertsHandler {
	return api.NewAlertsHandler(log, emitter, scanner, tracker, archive)
}

// ProvideStreamHandler creates the WebSocket push handler.
func ProvideStreamHandler(log *logger.Logger, emitter *usecase.Emitter) *api.StreamHandler {
	return api.NewStreamHandler(log, emitter)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	scanner *usecase.Scanner,
	emitter *usecase.Emitter,
	alerts *api.AlertsHandler,
	stream *api.StreamHandler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, scanner, emitter, alerts, stream, chClient)
}
