package ingest

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
	drepo "FlowTrack/internal/domain/repository"
	"FlowTrack/pkg/logger"
)

// DemoSource synthesizes an options feed so the whole pipeline runs
// without credentials. It emits mostly quiet snapshots with occasional
// bursts sized to trip the volume and premium detectors.
type DemoSource struct {
	symbols  []string
	interval time.Duration
	log      *logger.Logger

	mu        sync.Mutex
	connected bool
	rng       *rand.Rand
	prices    map[string]float64
}

func NewDemoSource(symbols []string, interval time.Duration, log *logger.Logger) drepo.SnapshotSource {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &DemoSource{
		symbols:  symbols,
		interval: interval,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		prices:   make(map[string]float64),
	}
}

func (d *DemoSource) Mode() string { return "demo" }

func (d *DemoSource) Connect(context.Context) error {
	d.mu.Lock()
	d.connected = true
	for _, s := range d.symbols {
		if _, ok := d.prices[s]; !ok {
			d.prices[s] = 50 + d.rng.Float64()*400
		}
	}
	d.mu.Unlock()
	d.log.Info("demo feed ready", logger.Strings("symbols", d.symbols))
	return nil
}

func (d *DemoSource) Subscribe(context.Context) error { return nil }

func (d *DemoSource) Reconnect(ctx context.Context) error { return d.Connect(ctx) }

func (d *DemoSource) Close() error {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	return nil
}

func (d *DemoSource) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Read emits one synthetic snapshot per symbol per tick, plus a burst of
// venue-split trades roughly once a minute per symbol.
func (d *DemoSource) Read(ctx context.Context) (<-chan *models.MarketSnapshot, <-chan *models.OptionTrade, <-chan error) {
	snaps := make(chan *models.MarketSnapshot, 256)
	trades := make(chan *models.OptionTrade, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(snaps)
		defer close(trades)
		defer close(errs)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		volume := make(map[string]int64)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, sym := range d.symbols {
					snap := d.nextSnapshot(sym, now, volume)
					select {
					case snaps <- snap:
					default:
					}
					if d.roll(0.01) {
						for _, t := range d.sweepBurst(snap, now) {
							select {
							case trades <- t:
							default:
							}
						}
					}
				}
			}
		}
	}()

	return snaps, trades, errs
}

func (d *DemoSource) nextSnapshot(sym string, now time.Time, volume map[string]int64) *models.MarketSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	// random walk on the underlying
	px := d.prices[sym] * (1 + d.rng.NormFloat64()*0.001)
	d.prices[sym] = px

	strike := math.Round(px/5) * 5
	right := models.Call
	delta := 0.45 + d.rng.Float64()*0.1
	if d.rng.Intn(2) == 0 {
		right = models.Put
		delta = -delta
	}
	key := models.ContractKey{
		Symbol:     sym,
		Strike:     strike,
		Expiration: now.AddDate(0, 0, 14-int(now.Weekday())).Format("2006-01-02"),
		Right:      right,
	}

	step := int64(d.rng.Intn(40))
	if d.rng.Float64() < 0.02 {
		// burst sized to clear the unusual-volume multiplier
		step += 2000 + int64(d.rng.Intn(3000))
	}
	volume[key.String()] += step

	last := math.Max(0.05, px*0.02*(1+d.rng.NormFloat64()*0.05))
	spread := last * (0.01 + d.rng.Float64()*0.08)
	return &models.MarketSnapshot{
		Symbol:            sym,
		Contract:          key,
		UnderlyingPrice:   px,
		Bid:               last - spread/2,
		Ask:               last + spread/2,
		Last:              last,
		Volume:            volume[key.String()],
		OpenInterest:      5000 + int64(d.rng.Intn(20000)),
		ImpliedVolatility: 30 + d.rng.Float64()*40,
		Delta:             delta,
		Timestamp:         now,
	}
}

// sweepBurst fabricates a multi-venue sweep for the snapshot's contract.
func (d *DemoSource) sweepBurst(snap *models.MarketSnapshot, now time.Time) []*models.OptionTrade {
	venues := []string{"CBOE", "ISE", "PHLX", "ARCA"}
	side := models.SideBuy
	if d.roll(0.3) {
		side = models.SideSell
	}
	n := 2 + d.rng.Intn(3)
	out := make([]*models.OptionTrade, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &models.OptionTrade{
			Contract:        snap.Contract,
			Price:           snap.Last,
			Size:            100 + int64(d.rng.Intn(400)),
			Side:            side,
			Venue:           venues[i%len(venues)],
			OffExchange:     d.roll(0.1),
			UnderlyingPrice: snap.UnderlyingPrice,
			Timestamp:       now.Add(time.Duration(i*50) * time.Millisecond),
		})
	}
	return out
}

func (d *DemoSource) roll(p float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64() < p
}
