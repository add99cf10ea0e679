package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"projdash/catalog"
)

// Metrics collects routing and catalog metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	decisions    *prometheus.CounterVec
	scans        *prometheus.CounterVec
	scanDuration prometheus.Histogram
	categories   prometheus.Gauge
	projects     prometheus.Gauge
}

// NewMetrics registers all collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projdash",
			Name:      "route_decisions_total",
			Help:      "Routing decisions by outcome (index, rewrite, passthrough) and scheme.",
		}, []string{"decision", "scheme"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projdash",
			Name:      "catalog_scans_total",
			Help:      "Scans of the project root by result.",
		}, []string{"result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "projdash",
			Name:      "catalog_scan_duration_seconds",
			Help:      "Time taken to list and classify the project root.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		categories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "projdash",
			Name:      "catalog_categories",
			Help:      "Categories in the current snapshot.",
		}),
		projects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "projdash",
			Name:      "catalog_projects",
			Help:      "Classified projects in the current snapshot.",
		}),
	}
	m.registry.MustRegister(
		m.decisions, m.scans, m.scanDuration, m.categories, m.projects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordDecision implements DecisionRecorder.
func (m *Metrics) RecordDecision(d Decision) {
	m.decisions.WithLabelValues(d.Kind.String(), d.Scheme).Inc()
}

// ObserveScan implements catalog.ScanObserver.
func (m *Metrics) ObserveScan(elapsed time.Duration, snap *catalog.Snapshot, err error) {
	m.scanDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.scans.WithLabelValues("error").Inc()
		return
	}
	m.scans.WithLabelValues("ok").Inc()
	m.categories.Set(float64(snap.NumCategories()))
	m.projects.Set(float64(snap.NumProjects()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
