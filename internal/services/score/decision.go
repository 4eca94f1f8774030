package score

import "FlowTrack/internal/domain/models"

// Policy turns a scored event into a terminal advisory decision. The
// policy never touches order routing; its output is a label on the alert.
type Policy struct {
	threshold float64
}

// DefaultThreshold is the conviction floor for an actionable decision.
const DefaultThreshold = 65.0

func NewPolicy(threshold float64) *Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Policy{threshold: threshold}
}

func (p *Policy) Threshold() float64 { return p.threshold }

// Decide maps (score, direction, signal count) to BUY, SELL, or WAIT.
// WAIT is the default: no signals, a neutral read, or a score below the
// threshold all resolve to it. Neutral direction never produces BUY or
// SELL regardless of score.
func (p *Policy) Decide(score float64, direction models.Direction, signalCount int) models.Decision {
	if signalCount == 0 || direction == models.Neutral || score < p.threshold {
		return models.DecisionWait
	}
	if direction == models.Bullish {
		return models.DecisionBuy
	}
	return models.DecisionSell
}

// PriceTarget projects a move from the contract's breakeven: the target
// sits half the strike-to-breakeven distance beyond breakeven, in the
// direction of the read. Returns 0 when inputs can't support a target.
func PriceTarget(contract models.ContractKey, premiumPerContract float64, direction models.Direction) float64 {
	if contract.Strike <= 0 || premiumPerContract <= 0 || direction == models.Neutral {
		return 0
	}
	var breakeven float64
	if contract.Right == models.Put {
		breakeven = contract.Strike - premiumPerContract
	} else {
		breakeven = contract.Strike + premiumPerContract
	}
	if breakeven <= 0 {
		return 0
	}
	move := 0.5 * (breakeven - contract.Strike)
	return breakeven + move
}
