package accumulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
)

func day(n int) time.Time {
	return time.Date(2026, 8, 20+n, 15, 0, 0, 0, time.UTC)
}

func TestPositioningNeedsTwoDays(t *testing.T) {
	tr := NewTracker(Config{})
	assert.Equal(t, models.PositioningSpeculative, tr.Positioning("AAPL"))

	tr.Record("AAPL", models.Bullish, 80, day(0))
	assert.Equal(t, models.PositioningSpeculative, tr.Positioning("AAPL"), "one day is noise, not a trend")
}

func TestAccumulationRead(t *testing.T) {
	tr := NewTracker(Config{})
	for i := 0; i < 4; i++ {
		tr.Record("NVDA", models.Bullish, 70, day(i))
	}
	tr.Record("NVDA", models.Bearish, 30, day(4))
	assert.Equal(t, models.PositioningAccumulation, tr.Positioning("NVDA"))
}

func TestDistributionRead(t *testing.T) {
	tr := NewTracker(Config{})
	for i := 0; i < 4; i++ {
		tr.Record("TSLA", models.Bearish, 75, day(i))
	}
	assert.Equal(t, models.PositioningDistribution, tr.Positioning("TSLA"))
}

func TestHedgingRead(t *testing.T) {
	tr := NewTracker(Config{})
	// alternating small prints: no side commits
	dirs := []models.Direction{models.Bullish, models.Bearish, models.Bullish, models.Bearish}
	for i, dir := range dirs {
		tr.Record("SPY", dir, 10, day(i))
	}
	assert.Equal(t, models.PositioningHedging, tr.Positioning("SPY"))
}

func TestMajorityWithoutMagnitudeStaysSpeculative(t *testing.T) {
	tr := NewTracker(Config{})
	// four bullish days but tiny conviction: below the bias floor
	for i := 0; i < 4; i++ {
		tr.Record("QQQ", models.Bullish, 5, day(i))
	}
	assert.Equal(t, models.PositioningSpeculative, tr.Positioning("QQQ"))
}

func TestNeutralRecordsIgnored(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Record("AAPL", models.Neutral, 90, day(0))
	assert.Empty(t, tr.History("AAPL"))
}

func TestSameDayRecordsFold(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Record("AAPL", models.Bullish, 60, day(0))
	tr.Record("AAPL", models.Bearish, 20, day(0).Add(2*time.Hour))

	h := tr.History("AAPL")
	require.Len(t, h, 1)
	assert.Equal(t, float64(60), h[0].Bull)
	assert.Equal(t, float64(20), h[0].Bear)
	assert.Equal(t, float64(40), h[0].Net)
}

func TestWindowPrunesOldDays(t *testing.T) {
	tr := NewTracker(Config{WindowDays: 3})
	tr.Record("AAPL", models.Bullish, 50, day(0))
	tr.Record("AAPL", models.Bullish, 50, day(5))

	h := tr.History("AAPL")
	require.Len(t, h, 1)
	assert.Equal(t, day(5).Format("2006-01-02"), h[0].Day)
}

func TestHistorySortedOldestFirst(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Record("AAPL", models.Bullish, 50, day(2))
	tr.Record("AAPL", models.Bearish, 40, day(0))
	tr.Record("AAPL", models.Bullish, 30, day(1))

	h := tr.History("AAPL")
	require.Len(t, h, 3)
	assert.True(t, h[0].Day < h[1].Day && h[1].Day < h[2].Day)
}

func TestSnapshotCoversAllSymbols(t *testing.T) {
	tr := NewTracker(Config{})
	for i := 0; i < 3; i++ {
		tr.Record("NVDA", models.Bullish, 70, day(i))
		tr.Record("TSLA", models.Bearish, 70, day(i))
	}
	snap := tr.Snapshot()
	assert.Equal(t, models.PositioningAccumulation, snap["NVDA"])
	assert.Equal(t, models.PositioningDistribution, snap["TSLA"])
}
