package detect

import "time"

// Config holds every detector threshold. All values are overridable from
// the YAML config; zero values fall back to the defaults below.
type Config struct {
	VolumeMultiplier   float64       // session volume vs trailing average
	VolumeFullScale    float64       // ratio mapping to strength 100
	MinVolume          int64         // absolute floor before volume fires
	OIChangePct        float64       // open interest change vs last recorded
	IVSpikePts         float64       // intra-session IV rise, percentage points
	DeltaMovePct       float64       // underlying co-movement that maps to strength 100
	MinPremium         float64       // institutional flow tracking floor
	EnableTradeSignals bool          // sweep/block/dark-pool need venue-tagged trades
	BlockMinContracts  int64
	SweepMinVenues     int
	SweepWindow        time.Duration
	SweepMinPremium    float64
	GoldenSweepPremium float64
	GoldenSweepOTMPct  float64
}

// Defaults returns the stock thresholds used when config leaves them unset.
func Defaults() Config {
	return Config{
		VolumeMultiplier:   3.0,
		VolumeFullScale:    10.0,
		MinVolume:          100,
		OIChangePct:        20.0,
		IVSpikePts:         15.0,
		DeltaMovePct:       2.0,
		MinPremium:         25_000,
		EnableTradeSignals: true,
		BlockMinContracts:  100,
		SweepMinVenues:     2,
		SweepWindow:        time.Second,
		SweepMinPremium:    50_000,
		GoldenSweepPremium: 100_000,
		GoldenSweepOTMPct:  5.0,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.VolumeMultiplier <= 0 {
		c.VolumeMultiplier = d.VolumeMultiplier
	}
	if c.VolumeFullScale <= c.VolumeMultiplier {
		c.VolumeFullScale = d.VolumeFullScale
	}
	if c.MinVolume <= 0 {
		c.MinVolume = d.MinVolume
	}
	if c.OIChangePct <= 0 {
		c.OIChangePct = d.OIChangePct
	}
	if c.IVSpikePts <= 0 {
		c.IVSpikePts = d.IVSpikePts
	}
	if c.DeltaMovePct <= 0 {
		c.DeltaMovePct = d.DeltaMovePct
	}
	if c.MinPremium <= 0 {
		c.MinPremium = d.MinPremium
	}
	if c.BlockMinContracts <= 0 {
		c.BlockMinContracts = d.BlockMinContracts
	}
	if c.SweepMinVenues <= 0 {
		c.SweepMinVenues = d.SweepMinVenues
	}
	if c.SweepWindow <= 0 {
		c.SweepWindow = d.SweepWindow
	}
	if c.SweepMinPremium <= 0 {
		c.SweepMinPremium = d.SweepMinPremium
	}
	if c.GoldenSweepPremium <= 0 {
		c.GoldenSweepPremium = d.GoldenSweepPremium
	}
	if c.GoldenSweepOTMPct <= 0 {
		c.GoldenSweepOTMPct = d.GoldenSweepOTMPct
	}
	return c
}
