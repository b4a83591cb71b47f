package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dawn_composer"

// Metrics holds the Prometheus counters, histograms, and gauges for the composer.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	StatesProduced   prometheus.Counter
	ComposeErrors    prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Composition metrics.
	UnavailableStates *prometheus.CounterVec   // labels: tool={gdd,progress}
	ComposeDuration   *prometheus.HistogramVec // labels: tool={gdd,progress}
	OverlaysPerState  *prometheus.HistogramVec // labels: tool={gdd,progress}
	SkippedDates      prometheus.Counter

	// Series cache metrics.
	SeriesCacheLookups *prometheus.CounterVec // labels: result={hit,miss}
	SeriesCacheEntries prometheus.Gauge
}

// NewMetrics creates and registers all composer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsConsumed,
		m.StatesProduced,
		m.ComposeErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.UnavailableStates,
		m.ComposeDuration,
		m.OverlaysPerState,
		m.SkippedDates,
		m.SeriesCacheLookups,
		m.SeriesCacheEntries,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_consumed_total",
			Help:      "Total composition requests read from the source topic.",
		}),
		StatesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_produced_total",
			Help:      "Total dataset states written to the sink topic.",
		}),
		ComposeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compose_errors_total",
			Help:      "Total requests that could not be composed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-compose-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		UnavailableStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unavailable_states_total",
			Help:      "States emitted as unavailable because upstream data was missing.",
		}, []string{"tool"}),
		ComposeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compose_duration_seconds",
			Help:      "Time to map, filter and compose one request.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"tool"}),
		OverlaysPerState: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overlays_per_state",
			Help:      "Number of overlays in each composed state.",
			Buckets:   []float64{1, 2, 4, 6, 8, 10, 12, 16, 20},
		}, []string{"tool"}),
		SkippedDates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_dates_total",
			Help:      "Upstream dates dropped because they could not be parsed.",
		}),
		SeriesCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_cache_lookups_total",
			Help:      "Calendar projection cache lookups by result.",
		}, []string{"result"}),
		SeriesCacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_cache_entries",
			Help:      "Calendar projections currently cached.",
		}),
	}
}
