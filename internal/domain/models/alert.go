package models

import "time"

// TechnicalLevels carries advisory floor/resistance context for a symbol.
// These are heuristics for display next to an alert, never a signal input.
type TechnicalLevels struct {
	Floor       float64   `json:"floor"`
	Resistance  float64   `json:"resistance"`
	Pivot       float64   `json:"pivot"`
	Support1    float64   `json:"support_1"`
	Resistance1 float64   `json:"resistance_1"`
	Lookback    int       `json:"lookback"`
	ComputedAt  time.Time `json:"computed_at"`
}

// FlowMetrics is the numeric snapshot attached to an emitted signal.
type FlowMetrics struct {
	Premium     float64 `json:"premium"`
	Contracts   int64   `json:"contracts"`
	Volume      int64   `json:"volume"`
	AvgVolume   float64 `json:"avg_volume"`
	VolumeRatio float64 `json:"volume_ratio"`
	OIChangePct float64 `json:"oi_change_pct"`
	SpreadPct   float64 `json:"spread_pct"`
	IV          float64 `json:"implied_volatility"`
	Delta       float64 `json:"delta"`
}

// ScoreBreakdown makes every component of the conviction score reportable.
type ScoreBreakdown struct {
	SignalScores      map[string]float64 `json:"signal_scores"`
	WeightedTotal     float64            `json:"weighted_total"`
	VolatilityPenalty float64            `json:"volatility_penalty"`
	LiquidityBonus    float64            `json:"liquidity_bonus"`
	SpreadPenalty     float64            `json:"spread_penalty"`
	ConvergenceBonus  float64            `json:"convergence_bonus"`
	TierBoost         float64            `json:"tier_boost"`
	FinalScore        float64            `json:"final_score"`
}

// FlowSignal is the unit of output: one fused, scored event.
// Immutable once emitted; downstream consumers never mutate it.
type FlowSignal struct {
	ID              string           `json:"id"`
	Symbol          string           `json:"symbol"`
	Contract        ContractKey      `json:"contract"`
	Direction       Direction        `json:"direction"`
	DominantType    SignalType       `json:"dominant_type"`
	ConvictionScore float64          `json:"conviction_score"`
	ConvictionLevel ConvictionLevel  `json:"conviction_level"`
	PremiumTier     PremiumTier      `json:"premium_tier,omitempty"`
	Positioning     PositioningLabel `json:"positioning"`
	Decision        Decision         `json:"decision"`
	PriceTarget     float64          `json:"price_target,omitempty"`
	UnderlyingPrice float64          `json:"underlying_price"`
	Levels          TechnicalLevels  `json:"technical_levels"`
	Metrics         FlowMetrics      `json:"metrics"`
	Breakdown       ScoreBreakdown   `json:"breakdown"`
	Signals         []RawSignal      `json:"signals"`
	Tags            []string         `json:"tags,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// FlowSummary aggregates the current alert log for the status API.
// EmittedTotal counts every emission since start; Total is the bounded log.
type FlowSummary struct {
	Total           int                         `json:"total"`
	EmittedTotal    int64                       `json:"emitted_total"`
	ByDirection     map[Direction]int           `json:"by_direction"`
	ByType          map[SignalType]int          `json:"by_type"`
	ByDecision      map[Decision]int            `json:"by_decision"`
	AvgConfidence   float64                     `json:"avg_confidence"`
	ActionableCount int                         `json:"actionable_count"`
	Positioning     map[string]PositioningLabel `json:"positioning,omitempty"`
}

// SourceStatus reports ingestion connectivity for dashboards.
type SourceStatus struct {
	Mode      string    `json:"mode"` // "demo" or "live"
	Connected bool      `json:"connected"`
	LastTick  time.Time `json:"last_tick"`
}
