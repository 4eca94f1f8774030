package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
	domrepo "FlowTrack/internal/domain/repository"
	mid "FlowTrack/internal/middleware"
	"FlowTrack/internal/service/cache"
	"FlowTrack/internal/services/accumulation"
	"FlowTrack/internal/services/baseline"
	"FlowTrack/internal/services/detect"
	"FlowTrack/internal/services/levels"
	"FlowTrack/internal/services/score"
	"FlowTrack/pkg/logger"
)

// Scanner drives the full pipeline: it drains the snapshot source, folds
// observations into baselines, runs detectors, classifies, scores, and
// hands fused events to the emitter. One scanner serves all symbols.
type Scanner struct {
	log     *logger.Logger
	metrics domrepo.Metrics

	source     domrepo.SnapshotSource
	baselines  *baseline.Store
	detector   *detect.Detector
	window     *detect.TradeWindow
	classifier *detect.Classifier
	scorer     *score.Scorer
	policy     *score.Policy
	tracker    *accumulation.Tracker
	levels     *levels.Calculator
	emitter    *Emitter

	symbols     []string
	pipeline    *mid.SnapshotPipeline
	levelsCache cache.BytesCache
	levelsTTL   time.Duration

	mu       sync.Mutex
	lastTick time.Time
}

type ScannerDeps struct {
	Log       *logger.Logger
	Metrics   domrepo.Metrics
	Source    domrepo.SnapshotSource
	Baselines *baseline.Store
	Detector  *detect.Detector
	Window    *detect.TradeWindow
	Classify  *detect.Classifier
	Scorer    *score.Scorer
	Policy    *score.Policy
	Tracker   *accumulation.Tracker
	Levels    *levels.Calculator
	Emitter   *Emitter
	Symbols   []string

	// LevelsCache overrides the default in-process TTL cache; DI backs it
	// with Redis when configured.
	LevelsCache cache.BytesCache
}

func NewScanner(d ScannerDeps) *Scanner {
	s := &Scanner{
		log:         d.Log,
		metrics:     d.Metrics,
		source:      d.Source,
		baselines:   d.Baselines,
		detector:    d.Detector,
		window:      d.Window,
		classifier:  d.Classify,
		scorer:      d.Scorer,
		policy:      d.Policy,
		tracker:     d.Tracker,
		levels:      d.Levels,
		emitter:     d.Emitter,
		symbols:     d.Symbols,
		levelsCache: d.LevelsCache,
		levelsTTL:   30 * time.Second,
	}
	if s.levelsCache == nil {
		s.levelsCache = cache.NewTTLCache()
	}
	s.pipeline = mid.NewSnapshotPipeline(s, d.Metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return s
}

// Run connects the source and drains it until ctx is done. Read errors
// trigger a reconnect with backoff; the scan state survives reconnects.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.source.Connect(ctx); err != nil {
		return fmt.Errorf("connect source: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SetSourceConnected(true)
	}
	if err := s.source.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info("scanner started",
		logger.Strings("symbols", s.symbols),
		logger.String("mode", s.source.Mode()))

	s.pipeline.Start(ctx)
	defer s.pipeline.Stop()

	snaps, trades, errCh := s.source.Read(ctx)
	backoff := time.Second
	for {
		// a source closes all its channels when the read session dies;
		// drain what is left, then rebuild the session instead of exiting
		if snaps == nil && trades == nil && errCh == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.SetSourceConnected(false)
			}
			if rerr := s.source.Reconnect(ctx); rerr != nil {
				s.log.Error("reconnect failed", logger.Error(rerr))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
				if backoff < 30*time.Second {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second
			if s.metrics != nil {
				s.metrics.SetSourceConnected(true)
			}
			snaps, trades, errCh = s.source.Read(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				snaps = nil
				continue
			}
			s.safely(func() { _ = s.pipeline.Process(ctx, snap) })
		case trade, ok := <-trades:
			if !ok {
				trades = nil
				continue
			}
			s.safely(func() { s.processTrade(ctx, trade) })
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			s.log.Error("source read error", logger.Error(err))
			if s.metrics != nil {
				s.metrics.RecordError("source_read")
			}
		}
	}
}

// a panicking detector must not take the scan loop down with it
func (s *Scanner) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("pipeline panic recovered", logger.Any("panic", r))
			if s.metrics != nil {
				s.metrics.RecordError("pipeline_panic")
			}
		}
	}()
	fn()
}

// ProcessSnapshot is the pipeline's downstream: one validated snapshot in,
// zero or one emitted alert out. Stale snapshots are dropped, not errors.
func (s *Scanner) ProcessSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordScanLatency("snapshot", time.Since(start).Seconds())
		}
	}()
	s.touch(snap.Timestamp)

	view, err := s.baselines.Update(snap)
	if err != nil {
		if errors.Is(err, models.ErrOutOfOrder) {
			s.log.Debug("stale snapshot dropped", logger.String("contract", snap.Contract.String()))
			if s.metrics != nil {
				s.metrics.RecordError("snapshot_out_of_order")
			}
			return nil
		}
		return fmt.Errorf("baseline update: %w", err)
	}

	signals := s.detector.Inspect(snap, view, s.baselines.PriceHistory(snap.Symbol))
	if len(signals) == 0 {
		return nil
	}
	s.fuse(ctx, snap.Symbol, snap.Contract, signals, models.FlowMetrics{
		Premium:     snap.Premium(),
		Volume:      snap.Volume,
		AvgVolume:   view.AvgVolume,
		VolumeRatio: ratio(float64(snap.Volume), view.AvgVolume),
		OIChangePct: oiChange(snap.OpenInterest, view.PrevOpenInterest),
		SpreadPct:   snap.SpreadPct(),
		IV:          snap.ImpliedVolatility,
		Delta:       snap.Delta,
	}, snap.Last, snap.UnderlyingPrice, snap.Timestamp)
	return nil
}

func (s *Scanner) processTrade(ctx context.Context, trade *models.OptionTrade) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordScanLatency("trade", time.Since(start).Seconds())
		}
	}()
	s.touch(trade.Timestamp)

	signals := s.detector.InspectTrade(s.window, trade)
	if len(signals) == 0 {
		return
	}
	// trades carry no quote, so no spread penalty applies here
	s.fuse(ctx, trade.Contract.Symbol, trade.Contract, signals, models.FlowMetrics{
		Premium:   trade.Premium(),
		Contracts: trade.Size,
	}, trade.Price, trade.UnderlyingPrice, trade.Timestamp)
}

// fuse runs classification, scoring, and the decision policy for one batch
// of signals and emits the result.
func (s *Scanner) fuse(ctx context.Context, symbol string, contract models.ContractKey,
	signals []models.RawSignal, metrics models.FlowMetrics, optionPrice, underlying float64, ts time.Time) {

	cls, ok := s.classifier.Classify(signals)
	if !ok {
		return
	}
	if cls.Premium > metrics.Premium {
		metrics.Premium = cls.Premium
	}

	breakdown := s.scorer.Score(signals, cls.Direction, cls.PremiumTier, metrics.SpreadPct)
	decision := s.policy.Decide(breakdown.FinalScore, cls.Direction, len(signals))

	sig := &models.FlowSignal{
		Symbol:          symbol,
		Contract:        contract,
		Direction:       cls.Direction,
		DominantType:    cls.DominantType,
		ConvictionScore: breakdown.FinalScore,
		ConvictionLevel: models.ConvictionLevelFor(breakdown.FinalScore),
		PremiumTier:     cls.PremiumTier,
		Positioning:     s.tracker.Positioning(symbol),
		Decision:        decision,
		UnderlyingPrice: underlying,
		Levels:          s.Levels(symbol),
		Metrics:         metrics,
		Breakdown:       breakdown,
		Signals:         signals,
		Tags:            tags(signals, cls.PremiumTier, metrics),
		Timestamp:       ts,
	}
	if decision != models.DecisionWait {
		sig.PriceTarget = score.PriceTarget(contract, optionPrice, cls.Direction)
	}
	// the ledger tracks emitted flow, not raw detections: a condition
	// re-detected every scan inside the dedup window counts once
	if s.emitter.Emit(ctx, sig) {
		s.tracker.Record(symbol, cls.Direction, breakdown.FinalScore, ts)
	}
}

// Levels returns cached technical levels for a symbol, recomputing from
// the rolling price window when the cache entry expires.
func (s *Scanner) Levels(symbol string) models.TechnicalLevels {
	key := "levels:" + symbol
	if b, ok, err := s.levelsCache.GetBytes(key); err == nil && ok {
		var lv models.TechnicalLevels
		if json.Unmarshal(b, &lv) == nil {
			return lv
		}
	}
	lv := s.levels.Compute(s.baselines.PriceHistory(symbol), time.Now())
	if b, err := json.Marshal(lv); err == nil {
		if err := s.levelsCache.SetBytes(key, b, s.levelsTTL); err != nil {
			s.log.Debug("levels cache write failed", logger.Error(err))
		}
	}
	return lv
}

// Status reports ingestion connectivity for the status endpoint.
func (s *Scanner) Status() models.SourceStatus {
	s.mu.Lock()
	last := s.lastTick
	s.mu.Unlock()
	return models.SourceStatus{
		Mode:      s.source.Mode(),
		Connected: s.source.IsConnected(),
		LastTick:  last,
	}
}

func (s *Scanner) touch(ts time.Time) {
	s.mu.Lock()
	if ts.After(s.lastTick) {
		s.lastTick = ts
	}
	s.mu.Unlock()
}

func tags(signals []models.RawSignal, tier models.PremiumTier, metrics models.FlowMetrics) []string {
	var out []string
	if tier != models.TierNone && tier != models.TierTracked {
		out = append(out, strings.ToLower(string(tier)))
	}
	for _, sig := range signals {
		switch sig.Type {
		case models.SignalSweep:
			out = append(out, "sweep")
			if g, ok := sig.Metrics["golden"]; ok && g > 0 {
				out = append(out, "golden_sweep")
			}
		case models.SignalDarkPool:
			out = append(out, "off_exchange")
		}
	}
	if metrics.VolumeRatio >= 10 {
		out = append(out, "extreme_volume")
	}
	if metrics.OIChangePct >= 50 {
		out = append(out, "high_oi_change")
	}
	return out
}

func ratio(v, avg float64) float64 {
	if avg <= 0 {
		return 0
	}
	return v / avg
}

func oiChange(cur, prev int64) float64 {
	if prev <= 0 {
		return 0
	}
	return float64(cur-prev) / float64(prev) * 100
}
