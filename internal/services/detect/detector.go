package detect

import (
	"math"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/services/baseline"
)

// Detector runs every snapshot-level check against one observation and its
// rolling baseline. All checks are pure; the detector holds only thresholds.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Inspect returns zero or more raw signals for one snapshot. No check
// short-circuits another; everything that fires is attached to the event.
func (d *Detector) Inspect(snap *models.MarketSnapshot, view baseline.View, prices []models.PricePoint) []models.RawSignal {
	var out []models.RawSignal
	if s := d.unusualVolume(snap, view); s != nil {
		out = append(out, *s)
	}
	if s := d.oiAcceleration(snap, view); s != nil {
		out = append(out, *s)
	}
	if s := d.ivSpike(snap, view); s != nil {
		out = append(out, *s)
	}
	if s := d.deltaMomentum(snap, prices); s != nil {
		out = append(out, *s)
	}
	if s := d.institutionalFlow(snap); s != nil {
		out = append(out, *s)
	}
	return out
}

func (d *Detector) unusualVolume(snap *models.MarketSnapshot, view baseline.View) *models.RawSignal {
	if view.AvgVolume <= 0 || snap.Volume < d.cfg.MinVolume {
		return nil
	}
	ratio := float64(snap.Volume) / view.AvgVolume
	if ratio < d.cfg.VolumeMultiplier {
		return nil
	}
	// linear ramp: threshold maps to 0, full-scale ratio maps to 100
	strength := (ratio - d.cfg.VolumeMultiplier) / (d.cfg.VolumeFullScale - d.cfg.VolumeMultiplier) * 100
	return &models.RawSignal{
		Type:      models.SignalUnusualVolume,
		Direction: rightBias(snap.Contract.Right),
		Strength:  clamp(strength),
		Metrics: map[string]float64{
			"volume_ratio": ratio,
			"volume":       float64(snap.Volume),
			"avg_volume":   view.AvgVolume,
		},
	}
}

func (d *Detector) oiAcceleration(snap *models.MarketSnapshot, view baseline.View) *models.RawSignal {
	if view.PrevOpenInterest <= 0 {
		return nil
	}
	changePct := float64(snap.OpenInterest-view.PrevOpenInterest) / float64(view.PrevOpenInterest) * 100
	if math.Abs(changePct) < d.cfg.OIChangePct {
		return nil
	}
	dir := rightBias(snap.Contract.Right)
	if changePct < 0 {
		dir = invert(dir)
	}
	excess := (math.Abs(changePct) - d.cfg.OIChangePct) / d.cfg.OIChangePct
	return &models.RawSignal{
		Type:      models.SignalOIAcceleration,
		Direction: dir,
		Strength:  clamp(50 + excess*50),
		Metrics: map[string]float64{
			"oi_change_pct": changePct,
			"open_interest": float64(snap.OpenInterest),
			"prev_oi":       float64(view.PrevOpenInterest),
		},
	}
}

func (d *Detector) ivSpike(snap *models.MarketSnapshot, view baseline.View) *models.RawSignal {
	if view.SessionOpenIV <= 0 {
		return nil
	}
	rise := snap.ImpliedVolatility - view.SessionOpenIV
	if rise < d.cfg.IVSpikePts {
		return nil
	}
	excess := (rise - d.cfg.IVSpikePts) / d.cfg.IVSpikePts
	// elevated IV alone is directionally ambiguous; it feeds the
	// volatility penalty downstream, not a directional vote
	return &models.RawSignal{
		Type:      models.SignalIVSpike,
		Direction: models.Neutral,
		Strength:  clamp(50 + excess*50),
		Metrics: map[string]float64{
			"iv_rise_pts": rise,
			"iv":          snap.ImpliedVolatility,
			"session_iv":  view.SessionOpenIV,
		},
	}
}

func (d *Detector) deltaMomentum(snap *models.MarketSnapshot, prices []models.PricePoint) *models.RawSignal {
	if len(prices) < 2 || snap.Delta == 0 {
		return nil
	}
	first, last := prices[0].Price, prices[len(prices)-1].Price
	if first <= 0 {
		return nil
	}
	movePct := (last - first) / first * 100
	if movePct*snap.Delta <= 0 {
		return nil // underlying moved against the contract's delta
	}
	strength := math.Abs(movePct) / d.cfg.DeltaMovePct * 100 * math.Abs(snap.Delta)
	if strength < 1 {
		return nil
	}
	dir := models.Bullish
	if movePct < 0 {
		dir = models.Bearish
	}
	return &models.RawSignal{
		Type:      models.SignalDeltaMomentum,
		Direction: dir,
		Strength:  clamp(strength),
		Metrics: map[string]float64{
			"move_pct": movePct,
			"delta":    snap.Delta,
		},
	}
}

func (d *Detector) institutionalFlow(snap *models.MarketSnapshot) *models.RawSignal {
	premium := snap.Premium()
	tier := models.ClassifyPremium(premium, d.cfg.MinPremium)
	if tier == models.TierNone {
		return nil
	}
	return &models.RawSignal{
		Type:      models.SignalInstitutionalFlow,
		Direction: rightBias(snap.Contract.Right),
		Strength:  tierStrength(tier),
		Metrics: map[string]float64{
			"premium":    premium,
			"tier_boost": tier.Boost(),
		},
	}
}

func rightBias(r models.OptionRight) models.Direction {
	if r == models.Put {
		return models.Bearish
	}
	return models.Bullish
}

func invert(d models.Direction) models.Direction {
	switch d {
	case models.Bullish:
		return models.Bearish
	case models.Bearish:
		return models.Bullish
	}
	return models.Neutral
}

func tierStrength(t models.PremiumTier) float64 {
	switch t {
	case models.TierMegaWhale:
		return 100
	case models.TierWhale:
		return 85
	case models.TierNotable:
		return 70
	default:
		return 50
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
