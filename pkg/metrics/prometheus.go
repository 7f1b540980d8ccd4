// Package metrics provides Prometheus metrics for the rentradar service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion
	sourceFetches      *prometheus.CounterVec
	sourceFetchErrors  *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	scrapeStrategyHits *prometheus.CounterVec
	listingsIngested   *prometheus.CounterVec

	// Budget
	budgetSpent     prometheus.Counter
	budgetRejected  prometheus.Counter
	budgetRemaining prometheus.Gauge

	// Cache
	cacheHits        prometheus.Counter
	cacheStaleServes prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheScopes      prometheus.Gauge

	// Enrichment
	enrichmentCalls    prometheus.Counter
	enrichmentFailures prometheus.Counter
	enrichmentCacheHit prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rentradar",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sourceFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "source_fetches_total",
		Help:      "Total adapter fetches by source",
	}, []string{"source"})

	m.sourceFetchErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "source_fetch_errors_total",
		Help:      "Total adapter fetch failures by source (recovered locally)",
	}, []string{"source"})

	m.fetchDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "fetch_duration_milliseconds",
		Help:      "Adapter fetch duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"source"})

	m.scrapeStrategyHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scrape_strategy_hits_total",
		Help:      "Which scrape parse strategy produced output",
	}, []string{"strategy"})

	m.listingsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "listings_ingested_total",
		Help:      "Listings produced per adapter fetch by source",
	}, []string{"source"})

	m.budgetSpent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "budget_calls_spent_total",
		Help:      "Paid API calls recorded against the monthly budget",
	})

	m.budgetRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "budget_calls_rejected_total",
		Help:      "Paid API call attempts rejected because the budget was exhausted",
	})

	m.budgetRemaining = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "budget_calls_remaining",
		Help:      "Remaining paid API calls for the current period",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cache_hits_total",
		Help:      "Reads served from a fresh cache entry",
	})

	m.cacheStaleServes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cache_stale_serves_total",
		Help:      "Reads served from a stale generation due to budget exhaustion",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cache_misses_total",
		Help:      "Reads that drove a full refresh cycle",
	})

	m.cacheScopes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "cache_scopes",
		Help:      "Number of cache scopes currently held in memory",
	})

	m.enrichmentCalls = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "enrichment_calls_total",
		Help:      "External analysis calls issued",
	})

	m.enrichmentFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "enrichment_failures_total",
		Help:      "External analysis calls that degraded to the local placeholder",
	})

	m.enrichmentCacheHit = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "enrichment_cache_hits_total",
		Help:      "Listings whose analysis was served from the analysis cache",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemory = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// RecordSourceFetch increments the fetch counter for a source.
func RecordSourceFetch(source string) {
	globalManager.sourceFetches.WithLabelValues(source).Inc()
}

// RecordSourceFetchError increments the fetch error counter for a source.
func RecordSourceFetchError(source string) {
	globalManager.sourceFetchErrors.WithLabelValues(source).Inc()
}

// RecordFetchDuration records an adapter fetch duration in milliseconds.
func RecordFetchDuration(source string, durationMs float64) {
	globalManager.fetchDuration.WithLabelValues(source).Observe(durationMs)
}

// RecordScrapeStrategy records which parse strategy produced output.
func RecordScrapeStrategy(strategy string) {
	globalManager.scrapeStrategyHits.WithLabelValues(strategy).Inc()
}

// RecordListingsIngested adds to the per-source ingestion counter.
func RecordListingsIngested(source string, n int) {
	globalManager.listingsIngested.WithLabelValues(source).Add(float64(n))
}

// RecordBudgetSpend increments the spent-call counter.
func RecordBudgetSpend() {
	globalManager.budgetSpent.Inc()
}

// RecordBudgetRejection increments the rejected-call counter.
func RecordBudgetRejection() {
	globalManager.budgetRejected.Inc()
}

// UpdateBudgetRemaining sets the remaining-calls gauge.
func UpdateBudgetRemaining(remaining int) {
	globalManager.budgetRemaining.Set(float64(remaining))
}

// RecordCacheHit increments the fresh-hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheStaleServe increments the stale-serve counter.
func RecordCacheStaleServe() {
	globalManager.cacheStaleServes.Inc()
}

// RecordCacheMiss increments the miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// UpdateCacheScopes sets the in-memory scope count gauge.
func UpdateCacheScopes(n int) {
	globalManager.cacheScopes.Set(float64(n))
}

// RecordEnrichmentCall increments the external analysis call counter.
func RecordEnrichmentCall() {
	globalManager.enrichmentCalls.Inc()
}

// RecordEnrichmentFailure increments the degraded-call counter.
func RecordEnrichmentFailure() {
	globalManager.enrichmentFailures.Inc()
}

// RecordEnrichmentCacheHit increments the analysis cache hit counter.
func RecordEnrichmentCacheHit() {
	globalManager.enrichmentCacheHit.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutines.Set(float64(n))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
