package repository

import (
	"context"
	"time"

	"FlowTrack/internal/domain/models"
)

// SnapshotSource is the narrow ingestion boundary. Implementations may be
// push-based (streaming) or pull-based (periodic fetch); the engine only
// consumes the channels.
type SnapshotSource interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketSnapshot, <-chan *models.OptionTrade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
	Mode() string // "demo" or "live"
}

// Publisher ships emitted flow signals to an external bus.
type Publisher interface {
	Publish(ctx context.Context, sig *models.FlowSignal) error
	Close() error
}

// Archive appends emitted flow signals to long-term storage for offline review.
// The in-memory alert log stays authoritative; the archive is best-effort.
type Archive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, sig *models.FlowSignal) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.FlowSignal, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records engine observability counters.
type Metrics interface {
	RecordSignalEmitted(symbol string, typ models.SignalType, decision models.Decision)
	RecordError(kind string)
	RecordConviction(symbol string, score float64)
	RecordScanLatency(op string, seconds float64)
	SetSourceConnected(connected bool)
}
