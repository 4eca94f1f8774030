package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FlowTrack/internal/domain/models"
)

func TestDecideWaitsWithoutSignals(t *testing.T) {
	p := NewPolicy(0)
	assert.Equal(t, models.DecisionWait, p.Decide(95, models.Bullish, 0))
}

func TestDecideNeutralNeverActionable(t *testing.T) {
	p := NewPolicy(0)
	assert.Equal(t, models.DecisionWait, p.Decide(100, models.Neutral, 4))
}

func TestDecideThresholdBoundary(t *testing.T) {
	p := NewPolicy(0)
	assert.Equal(t, models.DecisionWait, p.Decide(64.99, models.Bullish, 2))
	assert.Equal(t, models.DecisionBuy, p.Decide(65, models.Bullish, 2))
	assert.Equal(t, models.DecisionSell, p.Decide(65, models.Bearish, 2))
}

func TestNewPolicyFallsBackToDefault(t *testing.T) {
	p := NewPolicy(-5)
	assert.Equal(t, DefaultThreshold, p.Threshold())

	custom := NewPolicy(80)
	assert.Equal(t, models.DecisionWait, custom.Decide(75, models.Bullish, 2))
	assert.Equal(t, models.DecisionBuy, custom.Decide(80, models.Bullish, 2))
}

func TestPriceTargetCall(t *testing.T) {
	contract := models.ContractKey{Symbol: "NVDA", Strike: 190, Expiration: "2026-09-18", Right: models.Call}
	// breakeven 195, target half the distance again beyond it
	got := PriceTarget(contract, 5, models.Bullish)
	assert.InDelta(t, 197.5, got, 0.001)
}

func TestPriceTargetPut(t *testing.T) {
	contract := models.ContractKey{Symbol: "TSLA", Strike: 250, Expiration: "2026-09-18", Right: models.Put}
	// breakeven 246, projecting downward
	got := PriceTarget(contract, 4, models.Bearish)
	assert.InDelta(t, 244, got, 0.001)
}

func TestPriceTargetRejectsBadInputs(t *testing.T) {
	contract := models.ContractKey{Symbol: "SPY", Strike: 500, Expiration: "2026-09-18", Right: models.Call}
	assert.Zero(t, PriceTarget(contract, 0, models.Bullish))
	assert.Zero(t, PriceTarget(contract, 5, models.Neutral))
	assert.Zero(t, PriceTarget(models.ContractKey{}, 5, models.Bullish))
}
