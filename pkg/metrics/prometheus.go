package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	confidence   *prometheus.HistogramVec
	skipsTotal   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_signals_total",
				Help: "Signals produced, by mode and published action",
			},
			[]string{"mode", "action"},
		),
		confidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autotrader_signal_confidence_pct",
				Help:    "Confidence of produced signals",
				Buckets: []float64{0, 50, 60, 65, 70, 75, 80, 85, 90, 100},
			},
			[]string{"mode"},
		),
		skipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_skips_total",
				Help: "Pairs skipped in a cycle, by reason",
			},
			[]string{"mode", "reason"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autotrader_last_price",
				Help: "Last recorded price for a pair",
			},
			[]string{"pair"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autotrader_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal counts a signal and observes its confidence.
func (r *Recorder) RecordSignal(mode, action string, confidence float64) {
	r.signalsTotal.WithLabelValues(mode, action).Inc()
	r.confidence.WithLabelValues(mode).Observe(confidence)
}

func (r *Recorder) RecordSkip(mode, reason string) {
	r.skipsTotal.WithLabelValues(mode, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a pair.
func (r *Recorder) RecordLastPrice(pair string, price float64) {
	r.lastPrice.WithLabelValues(pair).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSignal(string, string, float64) {}
func (Nop) RecordSkip(string, string)            {}
func (Nop) RecordError(string)                   {}
func (Nop) RecordLatency(string, float64)        {}
func (Nop) RecordLastPrice(string, float64)      {}
