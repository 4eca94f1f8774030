package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowTrack/internal/domain/models"
)

func testContract() models.ContractKey {
	return models.ContractKey{Symbol: "SPY", Strike: 500, Expiration: "2026-09-18", Right: models.Call}
}

func snapAt(ts time.Time, volume int64) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol:            "SPY",
		Contract:          testContract(),
		UnderlyingPrice:   498.5,
		Bid:               4.9,
		Ask:               5.1,
		Last:              5.0,
		Volume:            volume,
		OpenInterest:      10000,
		ImpliedVolatility: 35,
		Delta:             0.5,
		Timestamp:         ts,
	}
}

func TestUpdateRejectsOutOfOrder(t *testing.T) {
	s := New(20, 5*time.Minute)
	base := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

	_, err := s.Update(snapAt(base, 100))
	require.NoError(t, err)

	// same timestamp is a duplicate, earlier is stale; both rejected
	_, err = s.Update(snapAt(base, 200))
	require.ErrorIs(t, err, models.ErrOutOfOrder)
	_, err = s.Update(snapAt(base.Add(-time.Second), 200))
	require.ErrorIs(t, err, models.ErrOutOfOrder)

	_, err = s.Update(snapAt(base.Add(time.Second), 200))
	require.NoError(t, err)
}

func TestUpdateReturnsPriorView(t *testing.T) {
	s := New(20, 5*time.Minute)
	base := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

	view, err := s.Update(snapAt(base, 100))
	require.NoError(t, err)
	assert.Zero(t, view.AvgVolume, "first update sees an empty baseline")
	assert.Zero(t, view.PrevOpenInterest)

	view, err = s.Update(snapAt(base.Add(time.Minute), 300))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), view.PrevOpenInterest)
	assert.Equal(t, base, view.LastTimestamp)
}

func TestSessionRollFoldsVolumes(t *testing.T) {
	s := New(20, 5*time.Minute)
	day1 := time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	_, err := s.Update(snapAt(day1, 5000))
	require.NoError(t, err)

	// next day: the finished session lands in the trailing window
	view, err := s.Update(snapAt(day2, 100))
	require.NoError(t, err)
	assert.Equal(t, float64(5000), view.AvgVolume)
	assert.Equal(t, 1, view.Sessions)
}

func TestSeedSessionVolumes(t *testing.T) {
	s := New(20, 5*time.Minute)
	s.SeedSessionVolumes(testContract(), []int64{3000, 3200, 3400})

	view, err := s.Update(snapAt(time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC), 100))
	require.NoError(t, err)
	assert.InDelta(t, 3200, view.AvgVolume, 0.001)
	assert.Equal(t, 3, view.Sessions)
}

func TestSessionOpenIVIsSticky(t *testing.T) {
	s := New(20, 5*time.Minute)
	base := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

	first := snapAt(base, 100)
	first.ImpliedVolatility = 30
	_, err := s.Update(first)
	require.NoError(t, err)

	second := snapAt(base.Add(time.Hour), 200)
	second.ImpliedVolatility = 55
	view, err := s.Update(second)
	require.NoError(t, err)
	assert.Equal(t, float64(30), view.SessionOpenIV, "open IV pins to the first tick of the session")
}

func TestPriceHistoryTrimsBySpan(t *testing.T) {
	s := New(20, 5*time.Minute)
	now := time.Now()

	old := snapAt(now.Add(-10*time.Minute), 100)
	_, err := s.Update(old)
	require.NoError(t, err)
	fresh := snapAt(now, 200)
	_, err = s.Update(fresh)
	require.NoError(t, err)

	pts := s.PriceHistory("SPY")
	require.Len(t, pts, 1)
	assert.Equal(t, fresh.UnderlyingPrice, pts[0].Price)
}

func TestUpdateLeavesBaselineUntouchedOnReject(t *testing.T) {
	s := New(20, 5*time.Minute)
	base := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

	_, err := s.Update(snapAt(base, 100))
	require.NoError(t, err)
	_, err = s.Update(snapAt(base.Add(-time.Hour), 9999))
	require.Error(t, err)

	view, ok := s.Get(testContract())
	require.True(t, ok)
	assert.Equal(t, base, view.LastTimestamp)
}
