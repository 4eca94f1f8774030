//go:build wireinject
// +build wireinject

package di

import (
	"FlowTrack/pkg/config"
	"FlowTrack/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideArchive,

		// Ingestion
		ProvideSnapshotSource,

		// Engine services
		ProvideDetectConfig,
		ProvideBaselineStore,
		ProvideDetector,
		ProvideTradeWindow,
		ProvideClassifier,
		ProvideScorer,
		ProvidePolicy,
		ProvideTracker,
		ProvideLevels,
		ProvideLevelsCache,

		// Use cases
		ProvideEmitter,
		ProvideScanner,

		// HTTP handlers
		ProvideAlertsHandler,
		ProvideStreamHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
