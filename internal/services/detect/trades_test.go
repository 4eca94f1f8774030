package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
)

func tradeAt(ts time.Time, venue string, size int64, side models.TradeSide) *models.OptionTrade {
	return &models.OptionTrade{
		Contract: models.ContractKey{
			Symbol: "TSLA", Strike: 250, Expiration: "2026-09-18", Right: models.Call,
		},
		Price:           4.0,
		Size:            size,
		Side:            side,
		Venue:           venue,
		UnderlyingPrice: 248,
		Timestamp:       ts,
	}
}

func TestSweepAcrossVenues(t *testing.T) {
	d := NewDetector(Defaults())
	w := NewTradeWindow()
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	// $40K on CBOE alone: not a sweep yet
	signals := d.InspectTrade(w, tradeAt(base, "CBOE", 100, models.SideBuy))
	_, ok := findSignal(signals, models.SignalSweep)
	assert.False(t, ok)

	// second venue 200ms later pushes the burst to $80K across 2 venues
	signals = d.InspectTrade(w, tradeAt(base.Add(200*time.Millisecond), "ISE", 100, models.SideBuy))
	sig, ok := findSignal(signals, models.SignalSweep)
	require.True(t, ok)
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.InDelta(t, 80000, sig.Metrics["premium"], 0.1)
	assert.Equal(t, float64(2), sig.Metrics["venues"])
	assert.Equal(t, float64(80), sig.Strength)
}

func TestSweepReportedOnce(t *testing.T) {
	d := NewDetector(Defaults())
	w := NewTradeWindow()
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	d.InspectTrade(w, tradeAt(base, "CBOE", 100, models.SideBuy))
	signals := d.InspectTrade(w, tradeAt(base.Add(100*time.Millisecond), "ISE", 100, models.SideBuy))
	_, ok := findSignal(signals, models.SignalSweep)
	require.True(t, ok)

	// a third fill in the same burst must not re-alert
	signals = d.InspectTrade(w, tradeAt(base.Add(300*time.Millisecond), "PHLX", 50, models.SideBuy))
	_, ok = findSignal(signals, models.SignalSweep)
	assert.False(t, ok)
}

func TestSweepSellSideInvertsDirection(t *testing.T) {
	d := NewDetector(Defaults())
	w := NewTradeWindow()
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	d.InspectTrade(w, tradeAt(base, "CBOE", 150, models.SideSell))
	signals := d.InspectTrade(w, tradeAt(base.Add(100*time.Millisecond), "ISE", 150, models.SideSell))
	sig, ok := findSignal(signals, models.SignalSweep)
	require.True(t, ok)
	assert.Equal(t, models.Bearish, sig.Direction, "calls swept to the bid read bearish")
}

func TestGoldenSweepTag(t *testing.T) {
	d := NewDetector(Defaults())
	w := NewTradeWindow()
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	// $160K near the money: strike 250 vs underlying 248 is <1% OTM
	d.InspectTrade(w, tradeAt(base, "CBOE", 200, models.SideBuy))
	signals := d.InspectTrade(w, tradeAt(base.Add(100*time.Millisecond), "ISE", 200, models.SideBuy))
	sig, ok := findSignal(signals, models.SignalSweep)
	require.True(t, ok)
	assert.Equal(t, float64(1), sig.Metrics["golden"])
}

func TestBlockTrade(t *testing.T) {
	d := NewDetector(Defaults())
	w := NewTradeWindow()
	base := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	signals := d.InspectTrade(w, tradeAt(base, "CBOE", 250, models.SideBuy))
	sig, ok := findSignal(signals, models.SignalBlock)
	require.True(t, ok)
	assert.Equal(t, float64(250), sig.Metrics["contracts"])
	assert.Equal(t, models.Bullish, sig.Direction)

	signals = d.InspectTrade(w, tradeAt(base.Add(2*time.Second), "ISE", 99, models.SideBuy))
	_, ok = findSignal(signals, models.SignalBlock)
	assert.False(t, ok, "99 contracts sits under the block floor")
}

func TestDarkPoolPrint(t *testing.T) {
	d := NewDetector(Defaults())
	w := NewTradeWindow()
	tr := tradeAt(time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC), "", 80, models.SideBuy)
	tr.OffExchange = true

	signals := d.InspectTrade(w, tr)
	sig, ok := findSignal(signals, models.SignalDarkPool)
	require.True(t, ok)
	assert.Equal(t, models.Bullish, sig.Direction)
}

func TestTradeSignalsDisabled(t *testing.T) {
	cfg := Defaults()
	cfg.EnableTradeSignals = false
	d := NewDetector(cfg)
	w := NewTradeWindow()

	signals := d.InspectTrade(w, tradeAt(time.Now(), "CBOE", 500, models.SideBuy))
	assert.Nil(t, signals)
}
