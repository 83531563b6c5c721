package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// fetch/parse/publish path.
type Metrics struct {
	FetchRequests *prometheus.CounterVec   // labels: type={mdf,mts}, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: type={mdf,mts}
	CacheLookups  *prometheus.CounterVec   // labels: result={hit,miss}

	ParseErrors           prometheus.Counter
	ObservationsPublished prometheus.Counter
	PollerRunning         prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesonet",
			Name:      "fetch_requests_total",
			Help:      "Remote data file requests by request type and outcome.",
		}, []string{"type", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mesonet",
			Name:      "fetch_duration_seconds",
			Help:      "Remote data file request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"type"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesonet",
			Name:      "cache_lookups_total",
			Help:      "Fetch cache lookups by result.",
		}, []string{"result"}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet",
			Name:      "parse_errors_total",
			Help:      "Total data file parse failures.",
		}),
		ObservationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mesonet",
			Name:      "observations_published_total",
			Help:      "Total observations written to the sink topic.",
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mesonet",
			Name:      "poller_running",
			Help:      "1 when the poll loop is active, 0 when shut down.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.CacheLookups,
		m.ParseErrors,
		m.ObservationsPublished,
		m.PollerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "mesonet", Name: "fetch_requests_total"}, []string{"type", "outcome"}),
		FetchDuration:         prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "mesonet", Name: "fetch_duration_seconds"}, []string{"type"}),
		CacheLookups:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "mesonet", Name: "cache_lookups_total"}, []string{"result"}),
		ParseErrors:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mesonet", Name: "parse_errors_total"}),
		ObservationsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "mesonet", Name: "observations_published_total"}),
		PollerRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "mesonet", Name: "poller_running"}),
	}
}
