package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/services/baseline"
)

func callSnap() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol: "NVDA",
		Contract: models.ContractKey{
			Symbol: "NVDA", Strike: 190, Expiration: "2026-09-18", Right: models.Call,
		},
		UnderlyingPrice:   185.2,
		Bid:               4.95,
		Ask:               5.05,
		Last:              5.0,
		Volume:            15420,
		OpenInterest:      42000,
		ImpliedVolatility: 38,
		Delta:             0.46,
		Timestamp:         time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC),
	}
}

func findSignal(signals []models.RawSignal, typ models.SignalType) (models.RawSignal, bool) {
	for _, s := range signals {
		if s.Type == typ {
			return s, true
		}
	}
	return models.RawSignal{}, false
}

func TestUnusualVolumeFiresAboveMultiplier(t *testing.T) {
	d := NewDetector(Defaults())
	view := baseline.View{AvgVolume: 3200, SessionOpenIV: 38, PrevOpenInterest: 42000}

	signals := d.Inspect(callSnap(), view, nil)
	sig, ok := findSignal(signals, models.SignalUnusualVolume)
	require.True(t, ok, "15420 against a 3200 average is a 4.8x ratio")

	assert.Equal(t, models.Bullish, sig.Direction)
	assert.InDelta(t, 4.82, sig.Metrics["volume_ratio"], 0.01)
	// linear ramp: (4.82 - 3) / (10 - 3) * 100
	assert.InDelta(t, 25.98, sig.Strength, 0.1)
}

func TestUnusualVolumeQuietBelowMultiplier(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.Volume = 6000
	view := baseline.View{AvgVolume: 3200}

	signals := d.Inspect(snap, view, nil)
	_, ok := findSignal(signals, models.SignalUnusualVolume)
	assert.False(t, ok, "1.9x ratio must stay silent")
}

func TestUnusualVolumeRespectsAbsoluteFloor(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.Volume = 90 // 9x a tiny average but below the floor
	view := baseline.View{AvgVolume: 10}

	signals := d.Inspect(snap, view, nil)
	_, ok := findSignal(signals, models.SignalUnusualVolume)
	assert.False(t, ok)
}

func TestUnusualVolumeStrengthClampsAt100(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.Volume = 64000 // 20x
	view := baseline.View{AvgVolume: 3200}

	signals := d.Inspect(snap, view, nil)
	sig, ok := findSignal(signals, models.SignalUnusualVolume)
	require.True(t, ok)
	assert.Equal(t, float64(100), sig.Strength)
}

func TestPutVolumeReadsBearish(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.Contract.Right = models.Put
	snap.Delta = -0.46
	view := baseline.View{AvgVolume: 3200}

	signals := d.Inspect(snap, view, nil)
	sig, ok := findSignal(signals, models.SignalUnusualVolume)
	require.True(t, ok)
	assert.Equal(t, models.Bearish, sig.Direction)
}

func TestOIAcceleration(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.OpenInterest = 54600 // +30% vs 42000
	view := baseline.View{PrevOpenInterest: 42000}

	signals := d.Inspect(snap, view, nil)
	sig, ok := findSignal(signals, models.SignalOIAcceleration)
	require.True(t, ok)
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.InDelta(t, 30, sig.Metrics["oi_change_pct"], 0.01)
}

func TestOIDeclineOnCallsReadsBearish(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.OpenInterest = 29400 // -30%
	view := baseline.View{PrevOpenInterest: 42000}

	signals := d.Inspect(snap, view, nil)
	sig, ok := findSignal(signals, models.SignalOIAcceleration)
	require.True(t, ok)
	assert.Equal(t, models.Bearish, sig.Direction, "unwinding call interest flips the read")
}

func TestIVSpikeIsNeutral(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.ImpliedVolatility = 58 // +20pts intra-session
	view := baseline.View{SessionOpenIV: 38}

	signals := d.Inspect(snap, view, nil)
	sig, ok := findSignal(signals, models.SignalIVSpike)
	require.True(t, ok)
	assert.Equal(t, models.Neutral, sig.Direction)
	assert.InDelta(t, 20, sig.Metrics["iv_rise_pts"], 0.01)
}

func TestIVSpikeBelowThresholdSilent(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.ImpliedVolatility = 48 // +10pts, threshold is 15
	view := baseline.View{SessionOpenIV: 38}

	signals := d.Inspect(snap, view, nil)
	_, ok := findSignal(signals, models.SignalIVSpike)
	assert.False(t, ok)
}

func TestDeltaMomentumNeedsCoMovement(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	base := snap.Timestamp.Add(-3 * time.Minute)
	up := []models.PricePoint{
		{Timestamp: base, Price: 180},
		{Timestamp: snap.Timestamp, Price: 185.4}, // +3%
	}
	down := []models.PricePoint{
		{Timestamp: base, Price: 190},
		{Timestamp: snap.Timestamp, Price: 184.3},
	}

	signals := d.Inspect(snap, baseline.View{}, up)
	sig, ok := findSignal(signals, models.SignalDeltaMomentum)
	require.True(t, ok)
	assert.Equal(t, models.Bullish, sig.Direction)

	// underlying falling against positive delta stays silent
	signals = d.Inspect(snap, baseline.View{}, down)
	_, ok = findSignal(signals, models.SignalDeltaMomentum)
	assert.False(t, ok)
}

func TestInstitutionalFlowTiers(t *testing.T) {
	cases := []struct {
		name     string
		volume   int64
		tier     models.PremiumTier
		strength float64
	}{
		{"tracked", 60, models.TierTracked, 50},        // $30K
		{"notable", 120, models.TierNotable, 70},       // $60K
		{"whale", 600, models.TierWhale, 85},           // $300K
		{"mega whale", 2400, models.TierMegaWhale, 100}, // $1.2M
	}
	d := NewDetector(Defaults())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := callSnap()
			snap.Volume = tc.volume // premium = 5.00 * volume * 100
			signals := d.Inspect(snap, baseline.View{}, nil)
			sig, ok := findSignal(signals, models.SignalInstitutionalFlow)
			require.True(t, ok)
			assert.Equal(t, tc.strength, sig.Strength)
			assert.Equal(t, tc.tier.Boost(), sig.Metrics["tier_boost"])
		})
	}
}

func TestInstitutionalFlowBelowFloorSilent(t *testing.T) {
	d := NewDetector(Defaults())
	snap := callSnap()
	snap.Volume = 40 // $20K premium, floor is $25K
	signals := d.Inspect(snap, baseline.View{}, nil)
	_, ok := findSignal(signals, models.SignalInstitutionalFlow)
	assert.False(t, ok)
}
