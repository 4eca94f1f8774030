package levels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"FlowTrack/internal/domain/models"
)

func series(vals ...float64) []models.PricePoint {
	base := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	pts := make([]models.PricePoint, len(vals))
	for i, v := range vals {
		pts[i] = models.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Price: v}
	}
	return pts
}

func TestComputeNeedsTwoPoints(t *testing.T) {
	c := NewCalculator(Config{})
	assert.Zero(t, c.Compute(nil, time.Now()))
	assert.Zero(t, c.Compute(series(500), time.Now()))
}

func TestComputePivotFormula(t *testing.T) {
	c := NewCalculator(Config{})
	out := c.Compute(series(100, 102, 104), time.Now())

	// P = (H + L + C) / 3 with H=104 L=100 C=104
	assert.InDelta(t, 102.667, out.Pivot, 0.001)
	assert.InDelta(t, 101.333, out.Support1, 0.001)
	assert.InDelta(t, 105.333, out.Resistance1, 0.001)
	assert.Equal(t, 3, out.Lookback)
}

func TestComputeConfirmedSwingLevels(t *testing.T) {
	c := NewCalculator(Config{})
	// two touches near 100 below and two near 110 above the 105 close
	out := c.Compute(series(105, 100, 105, 100.2, 106, 110, 106, 109.8, 106, 105), time.Now())

	assert.InDelta(t, 100.1, out.Floor, 0.001)
	assert.InDelta(t, 109.9, out.Resistance, 0.001)
}

func TestComputeSingleTouchFallsBackToPivot(t *testing.T) {
	c := NewCalculator(Config{})
	// one swing low at 100 is never confirmed with the default two touches
	out := c.Compute(series(104, 100, 104, 103), time.Now())

	low := 100.0
	assert.Equal(t, low, out.Floor, "fallback picks the lower of S1 and the session low")
	assert.Greater(t, out.Resistance, 103.0)
}

func TestComputeMonotonicSeriesFallback(t *testing.T) {
	c := NewCalculator(Config{})
	out := c.Compute(series(100, 102, 104), time.Now())

	assert.Equal(t, 100.0, out.Floor)
	assert.InDelta(t, 105.333, out.Resistance, 0.001)
}

func TestComputeStampsTime(t *testing.T) {
	c := NewCalculator(Config{})
	now := time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)
	out := c.Compute(series(100, 101), now)
	assert.Equal(t, now, out.ComputedAt)
}
