package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Symbol outcomes
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
)

// Recorder records pipeline metrics on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	symbolsTotal  *prometheus.CounterVec
	inserted      *prometheus.CounterVec
	discarded     *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	lastClose     *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
	lastRun       prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		symbolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_symbols_total",
				Help: "Symbols processed, by final status",
			},
			[]string{"status"},
		),
		inserted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_records_inserted_total",
				Help: "Metric records newly inserted into the store",
			},
			[]string{"symbol"},
		),
		discarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_rows_discarded_total",
				Help: "Cleaned rows dropped for lacking a full metric window",
			},
			[]string{"symbol"},
		),
		fetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_fetch_errors_total",
				Help: "Failed fetches, by data source",
			},
			[]string{"source"},
		),
		lastClose: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_close",
				Help: "Close of the latest record computed for a symbol",
			},
			[]string{"symbol"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_run_timestamp_seconds",
				Help: "Unix time the last pipeline run finished",
			},
		),
	}
}

// RecordSymbol records the final status of one symbol.
func (r *Recorder) RecordSymbol(status string) {
	if r == nil {
		return
	}
	r.symbolsTotal.WithLabelValues(status).Inc()
}

// RecordInserted records newly inserted rows for a symbol.
func (r *Recorder) RecordInserted(symbol string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.inserted.WithLabelValues(symbol).Add(float64(n))
}

// RecordDiscarded records warm-up rows dropped for a symbol.
func (r *Recorder) RecordDiscarded(symbol string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.discarded.WithLabelValues(symbol).Add(float64(n))
}

// RecordFetchError records a failed fetch.
func (r *Recorder) RecordFetchError(source string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(source).Inc()
}

// RecordLastClose records the latest close for a symbol.
func (r *Recorder) RecordLastClose(symbol string, price float64) {
	if r == nil {
		return
	}
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordStage records stage latency in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordRunFinished stamps the end of a run.
func (r *Recorder) RecordRunFinished() {
	if r == nil {
		return
	}
	r.lastRun.SetToCurrentTime()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
