package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"FlowTrack/internal/domain/models"
	domrepo "FlowTrack/internal/domain/repository"
	"FlowTrack/pkg/logger"
)

// LogFilter narrows the alert log for API reads. Zero values match all.
type LogFilter struct {
	Symbol        string
	Direction     models.Direction
	Type          models.SignalType
	Decision      models.Decision
	MinConviction float64
	MinPremium    float64
	Since         time.Time
	Limit         int
}

// Emitter is the single exit point for scored events. It deduplicates,
// assigns IDs, appends to a bounded in-memory log, fans out to channel
// subscribers, and forwards to downstream publishers (broker, archive).
type Emitter struct {
	log     *logger.Logger
	metrics domrepo.Metrics
	sinks   []domrepo.Publisher

	dedupWindow time.Duration
	maxLog      int

	mu      sync.Mutex
	seen    map[string]time.Time
	alerts  []*models.FlowSignal
	subs    map[chan *models.FlowSignal]struct{}
	emitted int64

	pubCh     chan *models.FlowSignal
	pubDone   chan struct{}
	closeOnce sync.Once
}

func NewEmitter(log *logger.Logger, metrics domrepo.Metrics, dedupWindow time.Duration, maxLog int, sinks ...domrepo.Publisher) *Emitter {
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	if maxLog <= 0 {
		maxLog = 1000
	}
	e := &Emitter{
		log:         log,
		metrics:     metrics,
		sinks:       sinks,
		dedupWindow: dedupWindow,
		maxLog:      maxLog,
		seen:        make(map[string]time.Time),
		subs:        make(map[chan *models.FlowSignal]struct{}),
		pubCh:       make(chan *models.FlowSignal, 256),
		pubDone:     make(chan struct{}),
	}
	go e.publishLoop()
	return e
}

// publishLoop forwards emissions to the downstream sinks off the scan
// goroutine, so a slow archive or broker never stalls detection.
func (e *Emitter) publishLoop() {
	defer close(e.pubDone)
	for sig := range e.pubCh {
		for _, sink := range e.sinks {
			if err := sink.Publish(context.Background(), sig); err != nil {
				e.log.Error("downstream publish failed", logger.Error(err))
				if e.metrics != nil {
					e.metrics.RecordError("publish")
				}
			}
		}
	}
}

// Close stops accepting emissions for the sinks and waits for the
// publish queue to drain.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() { close(e.pubCh) })
	<-e.pubDone
}

// Emit records one scored event. A second event for the same contract and
// dominant type inside the dedup window is dropped and reported false.
// The first emission wins; later duplicates do not refresh the window.
func (e *Emitter) Emit(ctx context.Context, sig *models.FlowSignal) bool {
	key := dedupKey(sig, e.dedupWindow)

	e.mu.Lock()
	if _, dup := e.seen[key]; dup {
		e.mu.Unlock()
		e.log.Debug("duplicate alert suppressed",
			logger.String("contract", sig.Contract.String()),
			logger.String("type", string(sig.DominantType)))
		return false
	}
	e.seen[key] = sig.Timestamp
	e.gcLocked(sig.Timestamp)

	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	e.alerts = append(e.alerts, sig)
	if len(e.alerts) > e.maxLog {
		e.alerts = e.alerts[len(e.alerts)-e.maxLog:]
	}
	e.emitted++
	subs := make([]chan *models.FlowSignal, 0, len(e.subs))
	for ch := range e.subs {
		subs = append(subs, ch)
	}
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordSignalEmitted(sig.Symbol, sig.DominantType, sig.Decision)
		e.metrics.RecordConviction(sig.Symbol, sig.ConvictionScore)
	}
	e.log.Info("alert emitted",
		logger.String("id", sig.ID),
		logger.String("symbol", sig.Symbol),
		logger.String("contract", sig.Contract.String()),
		logger.String("type", string(sig.DominantType)),
		logger.String("direction", string(sig.Direction)),
		logger.String("decision", string(sig.Decision)),
		logger.Any("conviction", sig.ConvictionScore))

	// slow subscribers lose the event rather than stall the scan loop
	for _, ch := range subs {
		select {
		case ch <- sig:
		default:
		}
	}

	if len(e.sinks) > 0 {
		select {
		case e.pubCh <- sig:
		default:
			e.log.Error("publish queue full, alert not forwarded to sinks",
				logger.String("id", sig.ID))
			if e.metrics != nil {
				e.metrics.RecordError("publish_backlog")
			}
		}
	}
	return true
}

// Subscribe returns a buffered channel receiving future emissions. The
// caller must drain it; a full channel drops events for that subscriber.
func (e *Emitter) Subscribe(buffer int) (<-chan *models.FlowSignal, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *models.FlowSignal, buffer)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	cancel := func() {
		e.mu.Lock()
		delete(e.subs, ch)
		e.mu.Unlock()
	}
	return ch, cancel
}

// Log returns matching alerts, newest first.
func (e *Emitter) Log(f LogFilter) []*models.FlowSignal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.FlowSignal, 0, len(e.alerts))
	for i := len(e.alerts) - 1; i >= 0; i-- {
		a := e.alerts[i]
		if !matches(a, f) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Summary aggregates the current alert log.
func (e *Emitter) Summary() models.FlowSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := models.FlowSummary{
		Total:        len(e.alerts),
		EmittedTotal: e.emitted,
		ByDirection:  make(map[models.Direction]int),
		ByType:       make(map[models.SignalType]int),
		ByDecision:   make(map[models.Decision]int),
	}
	var total float64
	for _, a := range e.alerts {
		s.ByDirection[a.Direction]++
		s.ByType[a.DominantType]++
		s.ByDecision[a.Decision]++
		total += a.ConvictionScore
		if a.Decision != models.DecisionWait {
			s.ActionableCount++
		}
	}
	if s.Total > 0 {
		s.AvgConfidence = total / float64(s.Total)
	}
	return s
}

func (e *Emitter) gcLocked(now time.Time) {
	cutoff := now.Add(-2 * e.dedupWindow)
	for k, ts := range e.seen {
		if ts.Before(cutoff) {
			delete(e.seen, k)
		}
	}
}

// dedupKey buckets timestamps so repeated detections of the same flow
// inside one window collapse to a single alert.
func dedupKey(sig *models.FlowSignal, window time.Duration) string {
	bucket := sig.Timestamp.Truncate(window).Unix()
	return fmt.Sprintf("%s|%s|%d", sig.Contract.String(), sig.DominantType, bucket)
}

func matches(a *models.FlowSignal, f LogFilter) bool {
	if f.Symbol != "" && a.Symbol != f.Symbol {
		return false
	}
	if f.Direction != "" && a.Direction != f.Direction {
		return false
	}
	if f.Type != "" && a.DominantType != f.Type {
		return false
	}
	if f.Decision != "" && a.Decision != f.Decision {
		return false
	}
	if f.MinConviction > 0 && a.ConvictionScore < f.MinConviction {
		return false
	}
	if f.MinPremium > 0 && a.Metrics.Premium < f.MinPremium {
		return false
	}
	if !f.Since.IsZero() && a.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
