package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
)

type recordingProc struct {
	mu    sync.Mutex
	snaps []*models.MarketSnapshot
	err   error
}

func (r *recordingProc) ProcessSnapshot(_ context.Context, snap *models.MarketSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *recordingProc) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

type noopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newNoopMetrics() *noopMetrics { return &noopMetrics{errors: make(map[string]int)} }

func (m *noopMetrics) RecordSignalEmitted(string, models.SignalType, models.Decision) {}
func (m *noopMetrics) RecordConviction(string, float64)                               {}
func (m *noopMetrics) RecordScanLatency(string, float64)                              {}
func (m *noopMetrics) SetSourceConnected(bool)                                        {}

func (m *noopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *noopMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func pipelineSnap(symbol string, ts time.Time) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol: symbol,
		Contract: models.ContractKey{
			Symbol: symbol, Strike: 500, Expiration: "2026-09-18", Right: models.Call,
		},
		Bid:       4.9,
		Ask:       5.1,
		Last:      5.0,
		Volume:    100,
		Delta:     0.5,
		Timestamp: ts,
	}
}

func TestProcessForwardsValidSnapshot(t *testing.T) {
	proc := &recordingProc{}
	p := NewSnapshotPipeline(proc, newNoopMetrics())

	require.NoError(t, p.Process(context.Background(), pipelineSnap("SPY", time.Now())))
	assert.Equal(t, 1, proc.count())
}

func TestProcessRejectsMalformed(t *testing.T) {
	proc := &recordingProc{}
	m := newNoopMetrics()
	p := NewSnapshotPipeline(proc, m)

	assert.Error(t, p.Process(context.Background(), nil))

	bad := pipelineSnap("SPY", time.Now())
	bad.Symbol = ""
	assert.Error(t, p.Process(context.Background(), bad))

	inverted := pipelineSnap("SPY", time.Now())
	inverted.Bid, inverted.Ask = 5.1, 4.9
	assert.ErrorIs(t, p.Process(context.Background(), inverted), models.ErrMalformedSnapshot)

	assert.Equal(t, 0, proc.count())
	assert.Equal(t, 3, m.errorCount("pipeline_validate"))
}

func TestProcessThrottlesPerContract(t *testing.T) {
	proc := &recordingProc{}
	m := newNoopMetrics()
	p := NewSnapshotPipeline(proc, m, WithMaxRPS(1))

	now := time.Now()
	require.NoError(t, p.Process(context.Background(), pipelineSnap("SPY", now)))
	// same contract again within the rate window: dropped without error
	require.NoError(t, p.Process(context.Background(), pipelineSnap("SPY", now)))
	assert.Equal(t, 1, proc.count())
	assert.Equal(t, 1, m.errorCount("pipeline_throttle"))

	// a different contract has its own budget
	other := pipelineSnap("QQQ", now)
	require.NoError(t, p.Process(context.Background(), other))
	assert.Equal(t, 2, proc.count())
}

func TestProcessBuffersOnDownstreamError(t *testing.T) {
	proc := &recordingProc{err: errors.New("scan loop busy")}
	m := newNoopMetrics()
	p := NewSnapshotPipeline(proc, m, WithBufferSize(8))

	err := p.Process(context.Background(), pipelineSnap("SPY", time.Now()))
	require.Error(t, err)
	assert.Equal(t, 1, m.errorCount("pipeline_process"))

	// downstream recovers; the background flusher replays the buffer
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return proc.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}
