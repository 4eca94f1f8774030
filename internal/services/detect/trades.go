package detect

import (
	"fmt"
	"math"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
)

// TradeWindow buffers venue-tagged executions per contract for sweep
// detection. Entries older than a minute are dropped on the way in.
type TradeWindow struct {
	mu     sync.Mutex
	trades map[string][]*models.OptionTrade
	seen   map[string]time.Time // sweep ids already reported
	maxAge time.Duration
}

func NewTradeWindow() *TradeWindow {
	return &TradeWindow{
		trades: make(map[string][]*models.OptionTrade),
		seen:   make(map[string]time.Time),
		maxAge: time.Minute,
	}
}

func (w *TradeWindow) add(t *models.OptionTrade) []*models.OptionTrade {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := t.Contract.String()
	buf := append(w.trades[key], t)
	cutoff := t.Timestamp.Add(-w.maxAge)
	i := 0
	for i < len(buf) && buf[i].Timestamp.Before(cutoff) {
		i++
	}
	buf = buf[i:]
	w.trades[key] = buf
	for id, ts := range w.seen {
		if ts.Before(cutoff) {
			delete(w.seen, id)
		}
	}
	return buf
}

func (w *TradeWindow) markSweep(id string, ts time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; ok {
		return false
	}
	w.seen[id] = ts
	return true
}

// InspectTrade runs the trade-level checks (block, dark pool, sweep, and
// the institutional-flow roll-up for the event's premium) for one incoming
// execution. Returns nil when trade signals are disabled.
func (d *Detector) InspectTrade(w *TradeWindow, t *models.OptionTrade) []models.RawSignal {
	if !d.cfg.EnableTradeSignals || w == nil {
		return nil
	}
	buf := w.add(t)

	var out []models.RawSignal
	eventPremium := t.Premium()

	if t.Size >= d.cfg.BlockMinContracts {
		out = append(out, models.RawSignal{
			Type:      models.SignalBlock,
			Direction: tradeBias(t),
			Strength:  clamp(50 + float64(t.Size-d.cfg.BlockMinContracts)/float64(d.cfg.BlockMinContracts)*25),
			Metrics: map[string]float64{
				"contracts": float64(t.Size),
				"premium":   eventPremium,
			},
		})
	}

	if t.OffExchange {
		out = append(out, models.RawSignal{
			Type:      models.SignalDarkPool,
			Direction: tradeBias(t),
			Strength:  clamp(40 + eventPremium/d.cfg.MinPremium*10),
			Metrics:   map[string]float64{"premium": eventPremium},
		})
	}

	if s := d.sweep(w, t, buf); s != nil {
		out = append(out, *s)
		if p, ok := s.Metrics["premium"]; ok {
			eventPremium = p
		}
	}

	if tier := models.ClassifyPremium(eventPremium, d.cfg.MinPremium); tier != models.TierNone {
		out = append(out, models.RawSignal{
			Type:      models.SignalInstitutionalFlow,
			Direction: tradeBias(t),
			Strength:  tierStrength(tier),
			Metrics: map[string]float64{
				"premium":    eventPremium,
				"tier_boost": tier.Boost(),
			},
		})
	}

	return out
}

// sweep fires when equivalent executions hit >= SweepMinVenues venues inside
// SweepWindow with enough aggregate premium. Each sweep is reported once.
func (d *Detector) sweep(w *TradeWindow, t *models.OptionTrade, buf []*models.OptionTrade) *models.RawSignal {
	cutoff := t.Timestamp.Add(-d.cfg.SweepWindow)
	venues := make(map[string]struct{})
	var total float64
	var buyPremium, sellPremium float64
	var first time.Time
	for _, tr := range buf {
		if tr.Timestamp.Before(cutoff) || tr.Venue == "" {
			continue
		}
		if first.IsZero() || tr.Timestamp.Before(first) {
			first = tr.Timestamp
		}
		venues[tr.Venue] = struct{}{}
		total += tr.Premium()
		if tr.Side == models.SideBuy {
			buyPremium += tr.Premium()
		} else {
			sellPremium += tr.Premium()
		}
	}
	if len(venues) < d.cfg.SweepMinVenues || total < d.cfg.SweepMinPremium {
		return nil
	}

	id := fmt.Sprintf("%s_%d", t.Contract.String(), first.UnixMilli())
	if !w.markSweep(id, t.Timestamp) {
		return nil
	}

	dir := rightBias(t.Contract.Right)
	if sellPremium > buyPremium {
		dir = invert(dir)
	}

	metrics := map[string]float64{
		"premium": total,
		"venues":  float64(len(venues)),
	}
	if total >= d.cfg.GoldenSweepPremium && t.UnderlyingPrice > 0 {
		otmPct := math.Abs(t.Contract.Strike-t.UnderlyingPrice) / t.UnderlyingPrice * 100
		if otmPct <= d.cfg.GoldenSweepOTMPct {
			metrics["golden"] = 1
		}
	}

	return &models.RawSignal{
		Type:      models.SignalSweep,
		Direction: dir,
		Strength:  clamp(80 + float64(len(venues)-d.cfg.SweepMinVenues)*10),
		Metrics:   metrics,
	}
}

func tradeBias(t *models.OptionTrade) models.Direction {
	dir := rightBias(t.Contract.Right)
	if t.Side == models.SideSell {
		dir = invert(dir)
	}
	return dir
}
