package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FlowTrack/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsEmitted  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	conviction      *prometheus.GaugeVec
	scanLatency     *prometheus.HistogramVec
	sourceConnected prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_signals_emitted_total",
				Help: "Total flow signals emitted",
			},
			[]string{"symbol", "type", "decision"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		conviction: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flowtrack_last_conviction_score",
				Help: "Last conviction score per symbol",
			},
			[]string{"symbol"},
		),
		scanLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowtrack_scan_duration_seconds",
				Help:    "Duration of scan pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		sourceConnected: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "flowtrack_source_connected",
				Help: "1 when the market data source is connected",
			},
		),
	}
}

// RecordSignalEmitted records one emitted flow signal.
func (r *Recorder) RecordSignalEmitted(symbol string, typ models.SignalType, decision models.Decision) {
	r.signalsEmitted.WithLabelValues(symbol, string(typ), string(decision)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordConviction records the last conviction score for a symbol.
func (r *Recorder) RecordConviction(symbol string, score float64) {
	r.conviction.WithLabelValues(symbol).Set(score)
}

// RecordScanLatency records pipeline stage latency in seconds.
func (r *Recorder) RecordScanLatency(op string, seconds float64) {
	r.scanLatency.WithLabelValues(op).Observe(seconds)
}

// SetSourceConnected flags market data source connectivity.
func (r *Recorder) SetSourceConnected(connected bool) {
	if connected {
		r.sourceConnected.Set(1)
	} else {
		r.sourceConnected.Set(0)
	}
}
