package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
	domrepo "FlowTrack/internal/domain/repository"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	ProcessSnapshot(ctx context.Context, snap *models.MarketSnapshot) error
}

// SnapshotPipeline sits between the market feed and the scan loop.
// It validates, throttles per contract, and buffers when downstream
// delivery fails, flushing in the background with backoff.
type SnapshotPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.MarketSnapshot
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	lastSeen map[string]time.Time // per-contract last accepted time
}

type PipelineOption func(*SnapshotPipeline)

// WithMaxRPS caps accepted snapshots per second per contract.
func WithMaxRPS(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer used when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewSnapshotPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.MarketSnapshot, p.bufSize)
	return p
}

// Start launches background flushing of buffered snapshots.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case snap := <-p.bufCh:
				if snap == nil {
					continue
				}
				if err := p.proc.ProcessSnapshot(ctx, snap); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- snap:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards one snapshot, buffering on
// downstream errors. Throttled snapshots are dropped, not errors.
func (p *SnapshotPipeline) Process(ctx context.Context, snap *models.MarketSnapshot) error {
	start := time.Now()
	if err := validate(snap); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(snap.Contract.String(), start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.ProcessSnapshot(ctx, snap); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- snap:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordScanLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validate(snap *models.MarketSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot nil")
	}
	if snap.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	return snap.Validate()
}

func (p *SnapshotPipeline) allow(key string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[key]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(p.maxRPS) {
		p.lastSeen[key] = now
		return true
	}
	return false
}
