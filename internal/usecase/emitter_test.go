package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
	"FlowTrack/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

type capturingSink struct {
	mu        sync.Mutex
	published []*models.FlowSignal
	err       error
}

func (c *capturingSink) Publish(_ context.Context, sig *models.FlowSignal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, sig)
	return nil
}

func (c *capturingSink) Close() error { return nil }

func (c *capturingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

func (c *capturingSink) first() *models.FlowSignal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published[0]
}

func alert(symbol string, typ models.SignalType, ts time.Time) *models.FlowSignal {
	return &models.FlowSignal{
		Symbol: symbol,
		Contract: models.ContractKey{
			Symbol: symbol, Strike: 500, Expiration: "2026-09-18", Right: models.Call,
		},
		Direction:       models.Bullish,
		DominantType:    typ,
		ConvictionScore: 72,
		ConvictionLevel: models.ConvictionMedium,
		Decision:        models.DecisionBuy,
		Timestamp:       ts,
	}
}

func TestEmitDeduplicatesWithinWindow(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, 5*time.Minute, 100)
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	require.True(t, e.Emit(context.Background(), alert("SPY", models.SignalSweep, base)))

	// same contract and type inside the window: suppressed, first wins
	dup := alert("SPY", models.SignalSweep, base.Add(90*time.Second))
	assert.False(t, e.Emit(context.Background(), dup))
	assert.Len(t, e.Log(LogFilter{}), 1)

	// a different dominant type is its own alert
	assert.True(t, e.Emit(context.Background(), alert("SPY", models.SignalBlock, base.Add(time.Second))))
}

func TestEmitNewWindowNewAlert(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, time.Minute, 100)
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	require.True(t, e.Emit(context.Background(), alert("SPY", models.SignalSweep, base)))
	assert.True(t, e.Emit(context.Background(), alert("SPY", models.SignalSweep, base.Add(time.Minute))))
}

func TestEmitAssignsID(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, time.Minute, 100)
	sig := alert("SPY", models.SignalSweep, time.Now())
	require.True(t, e.Emit(context.Background(), sig))
	assert.NotEmpty(t, sig.ID)
}

func TestLogIsBounded(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, time.Minute, 3)
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		sym := fmt.Sprintf("S%d", i)
		require.True(t, e.Emit(context.Background(), alert(sym, models.SignalSweep, base.Add(time.Duration(i)*time.Second))))
	}

	got := e.Log(LogFilter{})
	require.Len(t, got, 3)
	assert.Equal(t, "S4", got[0].Symbol, "newest first, oldest evicted")
	assert.Equal(t, "S2", got[2].Symbol)
}

func TestLogFilters(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, time.Minute, 100)
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	a := alert("SPY", models.SignalSweep, base)
	b := alert("NVDA", models.SignalBlock, base.Add(time.Second))
	b.Direction = models.Bearish
	b.Decision = models.DecisionSell
	b.ConvictionScore = 90
	b.Metrics.Premium = 300_000
	require.True(t, e.Emit(context.Background(), a))
	require.True(t, e.Emit(context.Background(), b))

	assert.Len(t, e.Log(LogFilter{Symbol: "SPY"}), 1)
	assert.Len(t, e.Log(LogFilter{Direction: models.Bearish}), 1)
	assert.Len(t, e.Log(LogFilter{Type: models.SignalSweep}), 1)
	assert.Len(t, e.Log(LogFilter{Decision: models.DecisionSell}), 1)
	assert.Len(t, e.Log(LogFilter{MinConviction: 80}), 1)
	assert.Len(t, e.Log(LogFilter{MinPremium: 250_000}), 1)
	assert.Len(t, e.Log(LogFilter{Since: base.Add(time.Second)}), 1)
	assert.Len(t, e.Log(LogFilter{Limit: 1}), 1)
	assert.Empty(t, e.Log(LogFilter{Symbol: "TSLA"}))
}

func TestSummaryAggregates(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, time.Minute, 100)
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	buy := alert("SPY", models.SignalSweep, base)
	buy.ConvictionScore = 80
	wait := alert("NVDA", models.SignalIVSpike, base.Add(time.Second))
	wait.Decision = models.DecisionWait
	wait.Direction = models.Neutral
	wait.ConvictionScore = 40
	require.True(t, e.Emit(context.Background(), buy))
	require.True(t, e.Emit(context.Background(), wait))

	s := e.Summary()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, int64(2), s.EmittedTotal)
	assert.Equal(t, 1, s.ActionableCount)
	assert.InDelta(t, 60, s.AvgConfidence, 0.001)
	assert.Equal(t, 1, s.ByDirection[models.Bullish])
	assert.Equal(t, 1, s.ByType[models.SignalIVSpike])
	assert.Equal(t, 1, s.ByDecision[models.DecisionWait])
}

func TestSubscribeReceivesEmissions(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, time.Minute, 100)
	ch, cancel := e.Subscribe(4)
	defer cancel()

	sig := alert("SPY", models.SignalSweep, time.Now())
	require.True(t, e.Emit(context.Background(), sig))

	select {
	case got := <-ch:
		assert.Equal(t, sig.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the alert")
	}
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	e := NewEmitter(testLogger(t), nil, time.Minute, 100)
	ch, cancel := e.Subscribe(4)
	cancel()

	require.True(t, e.Emit(context.Background(), alert("SPY", models.SignalSweep, time.Now())))
	select {
	case <-ch:
		t.Fatal("cancelled subscriber should not receive alerts")
	default:
	}
}

func TestSinksReceivePublishedAlerts(t *testing.T) {
	sink := &capturingSink{}
	e := NewEmitter(testLogger(t), nil, time.Minute, 100, sink)

	sig := alert("SPY", models.SignalSweep, time.Now())
	require.True(t, e.Emit(context.Background(), sig))
	e.Close() // drains the publish queue
	require.Equal(t, 1, sink.count())
	assert.Equal(t, sig.ID, sink.first().ID)
}

func TestSinkFailureDoesNotBlockEmit(t *testing.T) {
	bad := &capturingSink{err: errors.New("broker down")}
	good := &capturingSink{}
	e := NewEmitter(testLogger(t), nil, time.Minute, 100, bad, good)

	assert.True(t, e.Emit(context.Background(), alert("SPY", models.SignalSweep, time.Now())))
	e.Close()
	assert.Equal(t, 1, good.count(), "a failing sink must not starve the others")
}

type stalledSink struct {
	capturingSink
	release chan struct{}
}

func (s *stalledSink) Publish(ctx context.Context, sig *models.FlowSignal) error {
	<-s.release
	return s.capturingSink.Publish(ctx, sig)
}

func TestSlowSinkDoesNotStallEmit(t *testing.T) {
	sink := &stalledSink{release: make(chan struct{})}
	e := NewEmitter(testLogger(t), nil, time.Minute, 100, sink)

	start := time.Now()
	require.True(t, e.Emit(context.Background(), alert("SPY", models.SignalSweep, time.Now())))
	assert.Less(t, time.Since(start), 200*time.Millisecond,
		"emit must return without waiting on the sink")

	close(sink.release)
	e.Close()
	assert.Equal(t, 1, sink.count())
}
