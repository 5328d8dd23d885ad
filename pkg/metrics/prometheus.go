package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	instruments *prometheus.CounterVec
	rowsDropped *prometheus.CounterVec
	partitions  *prometheus.CounterVec
	cacheAccess *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_ingestion_runs_total",
				Help: "Ingestion runs by outcome",
			},
			[]string{"status"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockpilot_ingestion_run_duration_seconds",
				Help:    "Wall time of ingestion runs",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		instruments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_instruments_total",
				Help: "Instruments processed per run by outcome",
			},
			[]string{"status"},
		),
		rowsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_rows_dropped_total",
				Help: "Rows dropped or repaired by the normalizer",
			},
			[]string{"reason"},
		),
		partitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_partitions_total",
				Help: "Parquet partitions by write outcome",
			},
			[]string{"status"},
		),
		cacheAccess: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_query_cache_total",
				Help: "Query cache lookups by accessor and result",
			},
			[]string{"accessor", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpilot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordRun(status string, seconds float64) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(seconds)
}

func (r *Recorder) RecordInstrument(status string) {
	r.instruments.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordRowsDropped(reason string, n int) {
	if n > 0 {
		r.rowsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

func (r *Recorder) RecordPartition(status string) {
	r.partitions.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordCacheAccess(accessor string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheAccess.WithLabelValues(accessor, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRun(string, float64) {}
func (Nop) RecordInstrument(string) {}
func (Nop) RecordRowsDropped(string, int) {}
func (Nop) RecordPartition(string) {}
func (Nop) RecordCacheAccess(string, bool) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
