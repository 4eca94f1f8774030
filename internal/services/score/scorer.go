package score

import (
	"math"

	"FlowTrack/internal/domain/models"
)

// Config tunes the conviction scorer. Zero values fall back to defaults.
type Config struct {
	Weights               map[models.SignalType]float64
	ConvergenceMinTypes   int     // distinct agreeing types needed for the bonus
	ConvergenceBonus      float64
	SpreadPenaltyFloorPct float64 // spreads at or below this are free
	SpreadPenaltyPerPct   float64
	SpreadPenaltyMax      float64
	VolatilityPenaltyFrac float64 // fraction of the IV-spike strength charged
	LiquidityBonusMax     float64
}

// Defaults returns the stock scoring weights. Weight tracks the dominance
// priority: structural prints (sweeps, blocks) are worth more than derived
// statistics, and an IV spike alone is weak evidence.
func Defaults() Config {
	return Config{
		Weights: map[models.SignalType]float64{
			models.SignalSweep:             1.0,
			models.SignalBlock:             0.95,
			models.SignalDarkPool:          0.85,
			models.SignalInstitutionalFlow: 0.9,
			models.SignalOIAcceleration:    0.8,
			models.SignalUnusualVolume:     0.75,
			models.SignalIVSpike:           0.5,
			models.SignalDeltaMomentum:     0.6,
		},
		ConvergenceMinTypes:   3,
		ConvergenceBonus:      15,
		SpreadPenaltyFloorPct: 5,
		SpreadPenaltyPerPct:   2,
		SpreadPenaltyMax:      15,
		VolatilityPenaltyFrac: 0.25,
		LiquidityBonusMax:     10,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if len(c.Weights) == 0 {
		c.Weights = d.Weights
	}
	if c.ConvergenceMinTypes <= 0 {
		c.ConvergenceMinTypes = d.ConvergenceMinTypes
	}
	if c.ConvergenceBonus <= 0 {
		c.ConvergenceBonus = d.ConvergenceBonus
	}
	if c.SpreadPenaltyFloorPct <= 0 {
		c.SpreadPenaltyFloorPct = d.SpreadPenaltyFloorPct
	}
	if c.SpreadPenaltyPerPct <= 0 {
		c.SpreadPenaltyPerPct = d.SpreadPenaltyPerPct
	}
	if c.SpreadPenaltyMax <= 0 {
		c.SpreadPenaltyMax = d.SpreadPenaltyMax
	}
	if c.VolatilityPenaltyFrac <= 0 {
		c.VolatilityPenaltyFrac = d.VolatilityPenaltyFrac
	}
	if c.LiquidityBonusMax <= 0 {
		c.LiquidityBonusMax = d.LiquidityBonusMax
	}
	return c
}

// Scorer fuses a batch of raw signals into one conviction score with a
// full breakdown. Pure: the same inputs always produce the same score.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg.withDefaults()}
}

// Score computes the conviction score for one event. spreadPct is the
// quoted bid/ask spread in percent of mid, tier the event's premium tier,
// direction the majority direction from classification.
func (s *Scorer) Score(signals []models.RawSignal, direction models.Direction, tier models.PremiumTier, spreadPct float64) models.ScoreBreakdown {
	b := models.ScoreBreakdown{SignalScores: make(map[string]float64, len(signals))}
	if len(signals) == 0 {
		return b
	}

	var weighted, totalWeight float64
	var ivStrength float64
	typesAgreeing := make(map[models.SignalType]struct{})
	hasStructural := false
	for _, sig := range signals {
		w, ok := s.cfg.Weights[sig.Type]
		if !ok {
			w = 0.5
		}
		b.SignalScores[string(sig.Type)] = sig.Strength
		weighted += w * sig.Strength
		totalWeight += w

		if sig.Type == models.SignalIVSpike && sig.Strength > ivStrength {
			ivStrength = sig.Strength
		}
		if direction != models.Neutral && sig.Direction == direction {
			typesAgreeing[sig.Type] = struct{}{}
		}
		if sig.Type == models.SignalSweep || sig.Type == models.SignalBlock {
			hasStructural = true
		}
	}
	b.WeightedTotal = weighted / totalWeight

	// elevated IV means the move is already priced; charge part of it
	b.VolatilityPenalty = s.cfg.VolatilityPenaltyFrac * ivStrength

	b.LiquidityBonus = s.liquidityBonus(signals, hasStructural)

	if spreadPct > s.cfg.SpreadPenaltyFloorPct {
		b.SpreadPenalty = math.Min(s.cfg.SpreadPenaltyMax,
			(spreadPct-s.cfg.SpreadPenaltyFloorPct)*s.cfg.SpreadPenaltyPerPct)
	}

	if len(typesAgreeing) >= s.cfg.ConvergenceMinTypes {
		b.ConvergenceBonus = s.cfg.ConvergenceBonus
	}

	b.TierBoost = tier.Boost()

	b.FinalScore = clamp(b.WeightedTotal -
		b.VolatilityPenalty -
		b.SpreadPenalty +
		b.LiquidityBonus +
		b.ConvergenceBonus +
		b.TierBoost)
	return b
}

// liquidityBonus rewards events backed by real traded size: a high volume
// ratio, or a structural print (sweep/block) which implies fills happened.
func (s *Scorer) liquidityBonus(signals []models.RawSignal, hasStructural bool) float64 {
	var bonus float64
	for _, sig := range signals {
		if ratio, ok := sig.Metrics["volume_ratio"]; ok && ratio > 1 {
			bonus = math.Max(bonus, (ratio-1)*2)
		}
	}
	if hasStructural {
		bonus += 5
	}
	return math.Min(s.cfg.LiquidityBonusMax, bonus)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
