package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_grid"

// Metrics holds the Prometheus counters, histograms, and gauges for the grid service.
type Metrics struct {
	// Run discovery metrics.
	RunProbes      *prometheus.CounterVec // labels: model, outcome={confirmed,rejected,error}
	RunsDiscovered *prometheus.CounterVec // labels: model
	WatcherRunning prometheus.Gauge

	// Object store metrics.
	IndexCache      *prometheus.CounterVec   // labels: result={hit,miss}
	ObjectRequests  *prometheus.CounterVec   // labels: kind={probe,index,range}, outcome={success,error}
	ObjectDurations *prometheus.HistogramVec // labels: kind

	// Render metrics.
	Renders        *prometheus.CounterVec   // labels: model, outcome={success,error}
	RendersDropped *prometheus.CounterVec   // labels: model
	RenderDuration *prometheus.HistogramVec // labels: model
}

var (
	objectBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	renderBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30}
)

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunProbes,
		m.RunsDiscovered,
		m.WatcherRunning,
		m.IndexCache,
		m.ObjectRequests,
		m.ObjectDurations,
		m.Renders,
		m.RendersDropped,
		m.RenderDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_probes_total",
			Help:      "Run availability probes by model and outcome.",
		}, []string{"model", "outcome"}),
		RunsDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_discovered_total",
			Help:      "New model runs located by the watcher.",
		}, []string{"model"}),
		WatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watcher_running",
			Help:      "1 when the run watcher is active, 0 when shut down.",
		}),
		IndexCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_cache_total",
			Help:      "Index cache lookups by result.",
		}, []string{"result"}),
		ObjectRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_requests_total",
			Help:      "Object store requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ObjectDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "object_request_duration_seconds",
			Help:      "Object store request duration in seconds.",
			Buckets:   objectBuckets,
		}, []string{"kind"}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Completed renders by model and outcome.",
		}, []string{"model", "outcome"}),
		RendersDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_dropped_total",
			Help:      "Render requests dropped because one was already in flight.",
		}, []string{"model"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete index-fetch-decode-render cycle.",
			Buckets:   renderBuckets,
		}, []string{"model"}),
	}
}
