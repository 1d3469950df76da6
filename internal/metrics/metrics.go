// Package metrics provides Prometheus metrics for the radix benchmark.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sort paths used as the "path" label.
const (
	PathSequential = "sequential"
	PathParallel   = "parallel"
)

// Metrics holds all Prometheus metrics for the radix benchmark.
type Metrics struct {
	// Sort metrics
	SortsTotal   *prometheus.CounterVec
	SortDuration *prometheus.HistogramVec

	// Worker pool metrics
	PartitionSortDuration prometheus.Histogram
	PartitionSize         prometheus.Histogram
	ActiveWorkers         prometheus.Gauge
	WorkerFailures        prometheus.Counter

	// Benchmark metrics
	Speedup           *prometheus.GaugeVec
	Efficiency        *prometheus.GaugeVec
	DatasetSize       *prometheus.GaugeVec
	VerdictMismatches *prometheus.CounterVec

	// Error metrics
	SourceErrors *prometheus.CounterVec
	ReportErrors *prometheus.CounterVec
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics registered on
// the default Prometheus registry. Call this once at startup.
func Init(namespace string) *Metrics {
	m := New(namespace, prometheus.DefaultRegisterer)
	defaultMetrics = m
	return m
}

// New creates metrics registered on reg without touching the global instance.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "radix_bench"
	}
	factory := promauto.With(reg)

	return &Metrics{
		SortsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sorts_total",
				Help:      "Total number of completed sorts",
			},
			[]string{"path"},
		),
		SortDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sort_duration_seconds",
				Help:      "Wall-clock time of a full sort",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12), // 10µs to ~40s
			},
			[]string{"path"},
		),
		PartitionSortDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "partition_sort_duration_seconds",
				Help:      "Time a worker spent sorting one partition",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
			},
		),
		PartitionSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "partition_size",
				Help:      "Number of values per partition",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 12), // 1 to ~4M
			},
		),
		ActiveWorkers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_workers",
				Help:      "Number of sort workers currently running",
			},
		),
		WorkerFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_failures_total",
				Help:      "Total number of failed partition sorts",
			},
		),
		Speedup: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "speedup",
				Help:      "Sequential time divided by parallel time for the last run",
			},
			[]string{"dataset"},
		),
		Efficiency: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "efficiency",
				Help:      "Speedup divided by worker count for the last run",
			},
			[]string{"dataset"},
		),
		DatasetSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_size",
				Help:      "Number of values in the dataset",
			},
			[]string{"dataset"},
		),
		VerdictMismatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdict_mismatches_total",
				Help:      "Runs where sequential and parallel outputs differed",
			},
			[]string{"dataset"},
		),
		SourceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Total number of dataset load errors",
			},
			[]string{"source_type"},
		),
		ReportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_errors_total",
				Help:      "Total number of reporting sink errors",
			},
			[]string{"sink"},
		),
	}
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// ObserveSort records a completed sort on the given path.
func (m *Metrics) ObserveSort(path string, seconds float64) {
	m.SortsTotal.WithLabelValues(path).Inc()
	m.SortDuration.WithLabelValues(path).Observe(seconds)
}

// ObservePartitionSortDuration records the time one worker spent sorting.
func (m *Metrics) ObservePartitionSortDuration(seconds float64) {
	m.PartitionSortDuration.Observe(seconds)
}

// ObservePartitionSize records the number of values in a partition.
func (m *Metrics) ObservePartitionSize(n float64) {
	m.PartitionSize.Observe(n)
}

// SetActiveWorkers sets the number of running workers.
func (m *Metrics) SetActiveWorkers(n float64) {
	m.ActiveWorkers.Set(n)
}

// IncWorkerFailures increments the worker failure counter.
func (m *Metrics) IncWorkerFailures() {
	m.WorkerFailures.Inc()
}

// SetSpeedup records speedup and efficiency for a dataset.
func (m *Metrics) SetSpeedup(dataset string, speedup, efficiency float64) {
	m.Speedup.WithLabelValues(dataset).Set(speedup)
	m.Efficiency.WithLabelValues(dataset).Set(efficiency)
}

// SetDatasetSize records the number of values in a dataset.
func (m *Metrics) SetDatasetSize(dataset string, n float64) {
	m.DatasetSize.WithLabelValues(dataset).Set(n)
}

// IncVerdictMismatches increments the mismatch counter for a dataset.
func (m *Metrics) IncVerdictMismatches(dataset string) {
	m.VerdictMismatches.WithLabelValues(dataset).Inc()
}

// IncSourceErrors increments the source errors counter.
func (m *Metrics) IncSourceErrors(sourceType string) {
	m.SourceErrors.WithLabelValues(sourceType).Inc()
}

// IncReportErrors increments the report errors counter.
func (m *Metrics) IncReportErrors(sink string) {
	m.ReportErrors.WithLabelValues(sink).Inc()
}
