package models

// SignalType tags one class of detected flow activity.
type SignalType string

const (
	SignalSweep             SignalType = "SWEEP"
	SignalBlock             SignalType = "BLOCK"
	SignalDarkPool          SignalType = "DARK_POOL"
	SignalInstitutionalFlow SignalType = "INSTITUTIONAL_FLOW"
	SignalOIAcceleration    SignalType = "OI_ACCELERATION"
	SignalUnusualVolume     SignalType = "UNUSUAL_VOLUME"
	SignalIVSpike           SignalType = "IV_SPIKE"
	SignalDeltaMomentum     SignalType = "DELTA_MOMENTUM"
)

// signalPriority fixes the tie-break order for the dominant label.
// Lower value wins. All signals stay attached to the event for scoring.
var signalPriority = map[SignalType]int{
	SignalSweep:             0,
	SignalBlock:             1,
	SignalDarkPool:          2,
	SignalInstitutionalFlow: 3,
	SignalOIAcceleration:    4,
	SignalUnusualVolume:     5,
	SignalIVSpike:           6,
	SignalDeltaMomentum:     7,
}

// Priority returns the tie-break rank for t; unknown types rank last.
func (t SignalType) Priority() int {
	if p, ok := signalPriority[t]; ok {
		return p
	}
	return len(signalPriority)
}

// Direction is the bias a signal implies for the underlying.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// RawSignal is the output of exactly one detector for one event.
type RawSignal struct {
	Type      SignalType         `json:"type"`
	Direction Direction          `json:"direction"`
	Strength  float64            `json:"strength"` // 0-100
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// PremiumTier classifies an event by total premium, after the whale
// taxonomy used by institutional flow desks.
type PremiumTier string

const (
	TierNone      PremiumTier = ""
	TierTracked   PremiumTier = "TRACKED"
	TierNotable   PremiumTier = "NOTABLE"
	TierWhale     PremiumTier = "WHALE"
	TierMegaWhale PremiumTier = "MEGA_WHALE"
)

// Boost returns the fixed conviction boost a tier contributes.
func (t PremiumTier) Boost() float64 {
	switch t {
	case TierMegaWhale:
		return 30
	case TierWhale:
		return 20
	case TierNotable:
		return 10
	default:
		return 0
	}
}

// ClassifyPremium maps a total premium to its tier. min is the tracking
// floor; the Notable/Whale/MegaWhale cut-offs scale from the defaults.
func ClassifyPremium(premium, min float64) PremiumTier {
	switch {
	case premium >= 1_000_000:
		return TierMegaWhale
	case premium >= 250_000:
		return TierWhale
	case premium >= 2*min:
		return TierNotable
	case premium >= min:
		return TierTracked
	default:
		return TierNone
	}
}

// ConvictionLevel is the discretized presentation of the score.
type ConvictionLevel string

const (
	ConvictionLow    ConvictionLevel = "LOW"
	ConvictionMedium ConvictionLevel = "MEDIUM"
	ConvictionHigh   ConvictionLevel = "HIGH"
)

// ConvictionLevelFor is a pure step function of the score.
func ConvictionLevelFor(score float64) ConvictionLevel {
	switch {
	case score >= 75:
		return ConvictionHigh
	case score >= 50:
		return ConvictionMedium
	default:
		return ConvictionLow
	}
}

// Decision is the terminal state of the per-event decision policy.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionWait Decision = "WAIT"
)

// PositioningLabel classifies sustained multi-day flow for a symbol.
type PositioningLabel string

const (
	PositioningAccumulation PositioningLabel = "ACCUMULATION"
	PositioningDistribution PositioningLabel = "DISTRIBUTION"
	PositioningHedging      PositioningLabel = "HEDGING"
	PositioningSpeculative  PositioningLabel = "SPECULATIVE"
)
