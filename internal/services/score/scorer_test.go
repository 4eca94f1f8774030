package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FlowTrack/internal/domain/models"
)

func TestScoreEmptyBatchIsZero(t *testing.T) {
	s := NewScorer(Config{})
	b := s.Score(nil, models.Neutral, models.TierNone, 0)
	assert.Zero(t, b.FinalScore)
	assert.Zero(t, b.WeightedTotal)
}

func TestScoreStaysInRange(t *testing.T) {
	s := NewScorer(Config{})
	signals := []models.RawSignal{
		{Type: models.SignalSweep, Direction: models.Bullish, Strength: 100,
			Metrics: map[string]float64{"volume_ratio": 12}},
		{Type: models.SignalBlock, Direction: models.Bullish, Strength: 100},
		{Type: models.SignalInstitutionalFlow, Direction: models.Bullish, Strength: 100},
	}
	b := s.Score(signals, models.Bullish, models.TierMegaWhale, 0)
	assert.LessOrEqual(t, b.FinalScore, float64(100))
	assert.GreaterOrEqual(t, b.FinalScore, float64(0))
	assert.Equal(t, float64(100), b.FinalScore, "max strength plus every bonus pins to the cap")
}

func TestSpreadPenalty(t *testing.T) {
	s := NewScorer(Config{})
	signals := []models.RawSignal{
		{Type: models.SignalUnusualVolume, Direction: models.Bullish, Strength: 60},
	}

	tight := s.Score(signals, models.Bullish, models.TierNone, 3)
	assert.Zero(t, tight.SpreadPenalty, "spreads at or under 5% ride free")

	wide := s.Score(signals, models.Bullish, models.TierNone, 7.5)
	assert.InDelta(t, 5, wide.SpreadPenalty, 0.001) // (7.5-5)*2

	extreme := s.Score(signals, models.Bullish, models.TierNone, 40)
	assert.Equal(t, float64(15), extreme.SpreadPenalty, "penalty caps at 15")
}

func TestVolatilityPenaltyFromIVSpike(t *testing.T) {
	s := NewScorer(Config{})
	signals := []models.RawSignal{
		{Type: models.SignalUnusualVolume, Direction: models.Bullish, Strength: 70},
		{Type: models.SignalIVSpike, Direction: models.Neutral, Strength: 80},
	}
	b := s.Score(signals, models.Bullish, models.TierNone, 0)
	assert.InDelta(t, 20, b.VolatilityPenalty, 0.001) // 0.25 * 80

	calm := s.Score(signals[:1], models.Bullish, models.TierNone, 0)
	assert.Zero(t, calm.VolatilityPenalty)
}

func TestConvergenceBonusNeedsThreeAgreeingTypes(t *testing.T) {
	s := NewScorer(Config{})
	two := []models.RawSignal{
		{Type: models.SignalUnusualVolume, Direction: models.Bullish, Strength: 60},
		{Type: models.SignalOIAcceleration, Direction: models.Bullish, Strength: 55},
	}
	b := s.Score(two, models.Bullish, models.TierNone, 0)
	assert.Zero(t, b.ConvergenceBonus)

	three := append(two, models.RawSignal{
		Type: models.SignalInstitutionalFlow, Direction: models.Bullish, Strength: 50,
	})
	b = s.Score(three, models.Bullish, models.TierNone, 0)
	assert.Equal(t, float64(15), b.ConvergenceBonus)
}

func TestConvergenceIgnoresDisagreeingSignals(t *testing.T) {
	s := NewScorer(Config{})
	signals := []models.RawSignal{
		{Type: models.SignalUnusualVolume, Direction: models.Bullish, Strength: 60},
		{Type: models.SignalOIAcceleration, Direction: models.Bullish, Strength: 55},
		{Type: models.SignalDeltaMomentum, Direction: models.Bearish, Strength: 90},
	}
	b := s.Score(signals, models.Bullish, models.TierNone, 0)
	assert.Zero(t, b.ConvergenceBonus, "only two types agree with the majority read")
}

func TestTierBoostApplied(t *testing.T) {
	s := NewScorer(Config{})
	signals := []models.RawSignal{
		{Type: models.SignalInstitutionalFlow, Direction: models.Bullish, Strength: 70},
	}
	none := s.Score(signals, models.Bullish, models.TierNone, 0)
	whale := s.Score(signals, models.Bullish, models.TierWhale, 0)
	assert.Equal(t, float64(20), whale.TierBoost)
	assert.InDelta(t, 20, whale.FinalScore-none.FinalScore, 0.001)
}

func TestWeightedTotalFavorsStructuralPrints(t *testing.T) {
	s := NewScorer(Config{})
	sweep := s.Score([]models.RawSignal{
		{Type: models.SignalSweep, Direction: models.Bullish, Strength: 70},
	}, models.Bullish, models.TierNone, 0)
	iv := s.Score([]models.RawSignal{
		{Type: models.SignalIVSpike, Direction: models.Neutral, Strength: 70},
	}, models.Neutral, models.TierNone, 0)
	// single-signal weighted averages are the strength itself; the sweep
	// event still scores higher because IV charges its own penalty
	assert.Greater(t, sweep.FinalScore, iv.FinalScore)
}

func TestScoreIsDeterministic(t *testing.T) {
	s := NewScorer(Config{})
	signals := []models.RawSignal{
		{Type: models.SignalBlock, Direction: models.Bearish, Strength: 65,
			Metrics: map[string]float64{"volume_ratio": 4}},
		{Type: models.SignalOIAcceleration, Direction: models.Bearish, Strength: 55},
	}
	a := s.Score(signals, models.Bearish, models.TierNotable, 6)
	b := s.Score(signals, models.Bearish, models.TierNotable, 6)
	assert.Equal(t, a, b)
}
