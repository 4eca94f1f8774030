package levels

import (
	"math"
	"time"

	"FlowTrack/internal/domain/models"
)

// Config tunes the support/resistance heuristics.
type Config struct {
	TouchTolerancePct float64 // how close two swing points must be to count as one level
	MinTouches        int     // confirmations needed before a swing becomes a level
}

func Defaults() Config {
	return Config{
		TouchTolerancePct: 0.5,
		MinTouches:        2,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.TouchTolerancePct <= 0 {
		c.TouchTolerancePct = d.TouchTolerancePct
	}
	if c.MinTouches <= 0 {
		c.MinTouches = d.MinTouches
	}
	return c
}

// Calculator derives advisory floor/resistance levels from an underlying
// price series. Levels are context on an alert, never a detector input.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg.withDefaults()}
}

// Compute builds levels for a price series, oldest first. The floor is the
// strongest confirmed swing low below the last price, the resistance the
// strongest confirmed swing high above it. When no swing earns enough
// touches the classic pivot formula fills in, and an empty or one-point
// series yields the zero value.
func (c *Calculator) Compute(prices []models.PricePoint, now time.Time) models.TechnicalLevels {
	if len(prices) < 2 {
		return models.TechnicalLevels{}
	}

	high, low := prices[0].Price, prices[0].Price
	for _, p := range prices {
		if p.Price > high {
			high = p.Price
		}
		if p.Price < low {
			low = p.Price
		}
	}
	close := prices[len(prices)-1].Price

	pivot := (high + low + close) / 3
	out := models.TechnicalLevels{
		Pivot:       pivot,
		Support1:    2*pivot - high,
		Resistance1: 2*pivot - low,
		Lookback:    len(prices),
		ComputedAt:  now,
	}

	lows, highs := swings(prices)
	out.Floor = c.strongestLevel(lows, close, false)
	out.Resistance = c.strongestLevel(highs, close, true)

	// pivot fallback when the series had no confirmed swing levels
	if out.Floor == 0 {
		out.Floor = math.Min(out.Support1, low)
	}
	if out.Resistance == 0 {
		out.Resistance = math.Max(out.Resistance1, high)
	}
	return out
}

// swings returns local minima and maxima of the series.
func swings(prices []models.PricePoint) (lows, highs []float64) {
	for i := 1; i < len(prices)-1; i++ {
		prev, cur, next := prices[i-1].Price, prices[i].Price, prices[i+1].Price
		if cur < prev && cur < next {
			lows = append(lows, cur)
		}
		if cur > prev && cur > next {
			highs = append(highs, cur)
		}
	}
	return lows, highs
}

// strongestLevel clusters swing points within the touch tolerance and
// returns the most-touched cluster on the requested side of the last
// price. Ties go to the level closest to the last price.
func (c *Calculator) strongestLevel(points []float64, last float64, above bool) float64 {
	type cluster struct {
		level   float64
		touches int
	}
	var clusters []cluster
	for _, p := range points {
		if above && p <= last {
			continue
		}
		if !above && p >= last {
			continue
		}
		matched := false
		for i := range clusters {
			tol := clusters[i].level * c.cfg.TouchTolerancePct / 100
			if math.Abs(p-clusters[i].level) <= tol {
				n := float64(clusters[i].touches)
				clusters[i].level = (clusters[i].level*n + p) / (n + 1)
				clusters[i].touches++
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, cluster{level: p, touches: 1})
		}
	}

	var best cluster
	for _, cl := range clusters {
		if cl.touches < c.cfg.MinTouches {
			continue
		}
		if cl.touches > best.touches ||
			(cl.touches == best.touches && math.Abs(cl.level-last) < math.Abs(best.level-last)) {
			best = cl
		}
	}
	return best.level
}
