// Package metrics exposes Prometheus counters, histograms, and gauges for
// the mirror's request, cache, and stream paths.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the registry and every metric the mirror records.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	upstreamDuration prometheus.Histogram

	ssrfBlockedTotal prometheus.Counter
	upstreamErrors   *prometheus.CounterVec
	decodeFailures   prometheus.Counter
	rewriteErrors    prometheus.Counter

	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheEvicted prometheus.Counter
	cacheSize    prometheus.Gauge

	streamTimeoutsProducer prometheus.Counter
	streamTimeoutsConsumer prometheus.Counter
	streamAbandoned        prometheus.Counter

	activeRequests prometheus.Gauge
	configReloads  *prometheus.CounterVec

	registry *prometheus.Registry
	server   *http.Server
	mutex    sync.RWMutex
}

// NewCollector builds a Collector with a fresh, private registry.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.initMetrics()
	c.registerMetrics()
	return c
}

func (c *Collector) initMetrics() {
	c.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zmirror_requests_total",
		Help: "Total number of mirrored requests, labeled by status class",
	}, []string{"status"})

	c.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zmirror_request_duration_seconds",
		Help:    "End-to-end mirrored request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	c.upstreamDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zmirror_upstream_duration_seconds",
		Help:    "Upstream fetch duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	c.ssrfBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_ssrf_blocked_total",
		Help: "Total number of requests blocked by the SSRF gate",
	})

	c.upstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zmirror_upstream_errors_total",
		Help: "Total number of upstream fetch errors, labeled by domain",
	}, []string{"domain"})

	c.decodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_decode_failures_total",
		Help: "Total number of mirror URL decode failures",
	})

	c.rewriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_rewrite_errors_total",
		Help: "Total number of response rewrite errors",
	})

	c.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_cache_hits_total",
		Help: "Total number of cache hits",
	})

	c.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_cache_misses_total",
		Help: "Total number of cache misses",
	})

	c.cacheEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_cache_evicted_total",
		Help: "Total number of cache entries evicted for capacity",
	})

	c.cacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zmirror_cache_size",
		Help: "Current number of entries held in the cache",
	})

	c.streamTimeoutsProducer = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_stream_producer_timeouts_total",
		Help: "Total number of producer put timeouts in the streaming coordinator",
	})

	c.streamTimeoutsConsumer = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_stream_consumer_timeouts_total",
		Help: "Total number of consumer get timeouts in the streaming coordinator",
	})

	c.streamAbandoned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zmirror_stream_cache_abandoned_total",
		Help: "Total number of streamed responses that abandoned concurrent cache population",
	})

	c.activeRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zmirror_active_requests",
		Help: "Number of mirrored requests currently in flight",
	})

	c.configReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zmirror_config_reloads_total",
		Help: "Total number of config reload attempts, labeled by outcome",
	}, []string{"outcome"})
}

func (c *Collector) registerMetrics() {
	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.upstreamDuration,
		c.ssrfBlockedTotal,
		c.upstreamErrors,
		c.decodeFailures,
		c.rewriteErrors,
		c.cacheHits,
		c.cacheMisses,
		c.cacheEvicted,
		c.cacheSize,
		c.streamTimeoutsProducer,
		c.streamTimeoutsConsumer,
		c.streamAbandoned,
		c.activeRequests,
		c.configReloads,
	)
}

// StartServer starts the metrics HTTP server on addr, exposing /metrics and
// /health.
func (c *Collector) StartServer(addr string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.server != nil {
		return fmt.Errorf("metrics server already running")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		server := c.server
		if server != nil {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				// no caller left to report to once the listener has already started
			}
		}
	}()

	return nil
}

// StopServer gracefully stops the metrics HTTP server, if running.
func (c *Collector) StopServer() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.server.Shutdown(ctx)
	c.server = nil
	return err
}

// RecordRequest records a completed mirrored request's status class and
// total duration.
func (c *Collector) RecordRequest(statusClass string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(statusClass).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

// RecordUpstreamFetch records the duration of a single upstream fetch.
func (c *Collector) RecordUpstreamFetch(duration time.Duration) {
	c.upstreamDuration.Observe(duration.Seconds())
}

// RecordSSRFBlocked records a request rejected by the SSRF gate.
func (c *Collector) RecordSSRFBlocked() {
	c.ssrfBlockedTotal.Inc()
}

// RecordUpstreamError records an upstream fetch failure for domain.
func (c *Collector) RecordUpstreamError(domain string) {
	c.upstreamErrors.WithLabelValues(domain).Inc()
}

// RecordDecodeFailure records a mirror URL decode failure.
func (c *Collector) RecordDecodeFailure() {
	c.decodeFailures.Inc()
}

// RecordRewriteError records a response rewrite failure.
func (c *Collector) RecordRewriteError() {
	c.rewriteErrors.Inc()
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordCacheEviction records an entry evicted for capacity.
func (c *Collector) RecordCacheEviction() {
	c.cacheEvicted.Inc()
}

// SetCacheSize updates the current cache entry count gauge.
func (c *Collector) SetCacheSize(n int) {
	c.cacheSize.Set(float64(n))
}

// RecordStreamProducerTimeout records a producer put timeout.
func (c *Collector) RecordStreamProducerTimeout() {
	c.streamTimeoutsProducer.Inc()
}

// RecordStreamConsumerTimeout records a consumer get timeout.
func (c *Collector) RecordStreamConsumerTimeout() {
	c.streamTimeoutsConsumer.Inc()
}

// RecordStreamCacheAbandoned records a streamed response that abandoned
// concurrent cache population past the size threshold.
func (c *Collector) RecordStreamCacheAbandoned() {
	c.streamAbandoned.Inc()
}

// SetActiveRequests updates the in-flight request gauge.
func (c *Collector) SetActiveRequests(n int) {
	c.activeRequests.Set(float64(n))
}

// RecordConfigReload records a config reload attempt's outcome ("ok" or
// "error").
func (c *Collector) RecordConfigReload(outcome string) {
	c.configReloads.WithLabelValues(outcome).Inc()
}

// GetRegistry returns the Prometheus registry for external use.
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetMetricsHandler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) GetMetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
