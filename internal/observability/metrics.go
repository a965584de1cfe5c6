// Package observability holds the prometheus collector and tracing bootstrap.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing, so components can run
// without metrics in tests.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Catalog metrics
	CatalogBuilds        *prometheus.CounterVec
	CatalogBuildDuration prometheus.Histogram
	CatalogRecords       prometheus.Gauge
	CatalogSkipped       *prometheus.CounterVec

	// Ledger metrics
	LedgerRequests *prometheus.CounterVec
	LedgerDuration *prometheus.HistogramVec

	// Publisher metrics
	Publishes *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a collector with its own registry, so several
// collectors (one per test, say) never clash on registration.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CatalogBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_builds_total",
				Help:      "Catalog builds by outcome (complete or truncated)",
			},
			[]string{"outcome"},
		),
		CatalogBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_build_duration_seconds",
				Help:      "Time to rebuild the catalog from ledger history",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		CatalogRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_records",
				Help:      "Records in the most recently built catalog",
			},
		),
		CatalogSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_skipped_total",
				Help:      "Signatures that did not yield a record, by reason",
			},
			[]string{"reason"},
		),
		LedgerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_requests_total",
				Help:      "Ledger RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		LedgerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_request_duration_seconds",
				Help:      "Ledger RPC call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publishes_total",
				Help:      "Record publish attempts by status",
			},
			[]string{"status"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of session cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of session cache misses",
			},
		),
	}

	// Register all metrics with the registry
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.CatalogBuilds,
		c.CatalogBuildDuration,
		c.CatalogRecords,
		c.CatalogSkipped,
		c.LedgerRequests,
		c.LedgerDuration,
		c.Publishes,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTP records one served request.
func (c *Collector) RecordHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordBuild records one finished catalog build.
func (c *Collector) RecordBuild(truncated bool, records int, d time.Duration) {
	if c == nil {
		return
	}
	outcome := "complete"
	if truncated {
		outcome = "truncated"
	}
	c.CatalogBuilds.WithLabelValues(outcome).Inc()
	c.CatalogBuildDuration.Observe(d.Seconds())
	c.CatalogRecords.Set(float64(records))
}

// RecordSkip records one signature dropped during a build.
func (c *Collector) RecordSkip(reason string) {
	if c == nil {
		return
	}
	c.CatalogSkipped.WithLabelValues(reason).Inc()
}

// RecordLedgerCall records one ledger RPC call.
func (c *Collector) RecordLedgerCall(method, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.LedgerRequests.WithLabelValues(method, status).Inc()
	c.LedgerDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordPublish records one publish attempt.
func (c *Collector) RecordPublish(status string) {
	if c == nil {
		return
	}
	c.Publishes.WithLabelValues(status).Inc()
}

// RecordCacheHit counts a session cache hit.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// RecordCacheMiss counts a session cache miss.
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}
