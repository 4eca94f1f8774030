package accumulation

import (
	"math"
	"sort"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
)

// DayBias is one calendar day's net directional flow for a symbol.
type DayBias struct {
	Day  string  `json:"day"` // YYYY-MM-DD
	Net  float64 `json:"net"` // strength-weighted bull minus bear
	Bull float64 `json:"bull"`
	Bear float64 `json:"bear"`
}

// Config tunes the multi-day positioning read.
type Config struct {
	WindowDays    int     // trailing days considered
	BiasFloor     float64 // min avg |net| for a sustained read
	MajorityShare float64 // share of days that must lean one way
}

func Defaults() Config {
	return Config{
		WindowDays:    5,
		BiasFloor:     20,
		MajorityShare: 0.6,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.WindowDays <= 0 {
		c.WindowDays = d.WindowDays
	}
	if c.BiasFloor <= 0 {
		c.BiasFloor = d.BiasFloor
	}
	if c.MajorityShare <= 0 || c.MajorityShare > 1 {
		c.MajorityShare = d.MajorityShare
	}
	return c
}

// Tracker accumulates per-symbol per-day directional bias and classifies
// sustained positioning over a trailing day window. Records never decay
// within a day; days beyond the window are pruned on write.
type Tracker struct {
	mu      sync.RWMutex
	cfg     Config
	symbols map[string]map[string]*DayBias
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:     cfg.withDefaults(),
		symbols: make(map[string]map[string]*DayBias),
	}
}

// Record folds one emitted signal's direction and conviction into the
// symbol's ledger for the signal's calendar day.
func (t *Tracker) Record(symbol string, direction models.Direction, score float64, ts time.Time) {
	if direction == models.Neutral {
		return
	}
	day := ts.Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()
	days, ok := t.symbols[symbol]
	if !ok {
		days = make(map[string]*DayBias)
		t.symbols[symbol] = days
	}
	d, ok := days[day]
	if !ok {
		d = &DayBias{Day: day}
		days[day] = d
	}
	if direction == models.Bullish {
		d.Bull += score
	} else {
		d.Bear += score
	}
	d.Net = d.Bull - d.Bear

	t.pruneLocked(days, ts)
}

func (t *Tracker) pruneLocked(days map[string]*DayBias, now time.Time) {
	cutoff := now.AddDate(0, 0, -t.cfg.WindowDays).Format("2006-01-02")
	for day := range days {
		if day < cutoff {
			delete(days, day)
		}
	}
}

// History returns the symbol's day ledger, oldest first.
func (t *Tracker) History(symbol string) []DayBias {
	t.mu.RLock()
	defer t.mu.RUnlock()
	days := t.symbols[symbol]
	out := make([]DayBias, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Positioning classifies the symbol's trailing window. The read is pure:
// it derives entirely from the recorded ledger and mutates nothing.
//
//   - fewer than two recorded days is SPECULATIVE: no trend exists yet
//   - a majority of days leaning one way with enough average magnitude is
//     ACCUMULATION (bullish) or DISTRIBUTION (bearish)
//   - days that alternate sign with small magnitudes read as HEDGING
//   - everything else stays SPECULATIVE
func (t *Tracker) Positioning(symbol string) models.PositioningLabel {
	history := t.History(symbol)
	if len(history) < 2 {
		return models.PositioningSpeculative
	}

	var bullDays, bearDays int
	var totalMag float64
	flips := 0
	prevSign := 0
	for _, d := range history {
		totalMag += math.Abs(d.Net)
		sign := 0
		switch {
		case d.Net > 0:
			bullDays++
			sign = 1
		case d.Net < 0:
			bearDays++
			sign = -1
		}
		if sign != 0 && prevSign != 0 && sign != prevSign {
			flips++
		}
		if sign != 0 {
			prevSign = sign
		}
	}
	avgMag := totalMag / float64(len(history))
	need := int(math.Ceil(t.cfg.MajorityShare * float64(len(history))))

	switch {
	case bullDays >= need && avgMag >= t.cfg.BiasFloor:
		return models.PositioningAccumulation
	case bearDays >= need && avgMag >= t.cfg.BiasFloor:
		return models.PositioningDistribution
	case flips >= len(history)/2 && avgMag < t.cfg.BiasFloor:
		return models.PositioningHedging
	default:
		return models.PositioningSpeculative
	}
}

// Snapshot returns the current positioning read for every tracked symbol.
func (t *Tracker) Snapshot() map[string]models.PositioningLabel {
	t.mu.RLock()
	syms := make([]string, 0, len(t.symbols))
	for s := range t.symbols {
		syms = append(syms, s)
	}
	t.mu.RUnlock()

	out := make(map[string]models.PositioningLabel, len(syms))
	for _, s := range syms {
		out[s] = t.Positioning(s)
	}
	return out
}
