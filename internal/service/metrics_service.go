package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fan-out lookup outcomes.
const (
	FanoutLookupHit       = "hit"
	FanoutLookupMiss      = "miss"
	FanoutLookupCoalesced = "coalesced"
	FanoutLookupShared    = "shared"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are safe on a nil receiver.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	fanoutLookups    *prometheus.CounterVec
	fanoutDuration   prometheus.Histogram
	degradedSources  *prometheus.CounterVec
	warningLevels    *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the service collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_fetch_duration_seconds",
		Help:    "Duration of upstream REST calls by source and outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"source", "outcome"})

	fanoutLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_cache_lookups_total",
		Help: "Upcoming assignment lookups by result",
	}, []string{"result"})

	fanoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_compute_duration_seconds",
		Help:    "Duration of a full upcoming assignment fan-out",
		Buckets: prometheus.DefBuckets,
	})

	degradedSources := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_degraded_sources_total",
		Help: "Source fetches replaced by an empty default during session resolution",
	}, []string{"source"})

	warningLevels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_warning_levels_total",
		Help: "Computed progress warning levels",
	}, []string{"level"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for shared cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for shared cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of shared cache hits to total lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, fanoutLookups, fanoutDuration,
		degradedSources, warningLevels, cacheLatency, cacheWrite, cacheHitRatio, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		upstreamDuration: upstreamDuration,
		fanoutLookups:    fanoutLookups,
		fanoutDuration:   fanoutDuration,
		degradedSources:  degradedSources,
		warningLevels:    warningLevels,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstream records the duration of an upstream call.
func (m *MetricsService) ObserveUpstream(source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(source, outcome).Observe(duration.Seconds())
}

// RecordFanoutLookup counts an upcoming assignment lookup by result.
func (m *MetricsService) RecordFanoutLookup(result string) {
	if m == nil {
		return
	}
	m.fanoutLookups.WithLabelValues(result).Inc()
}

// ObserveFanout records the duration of a complete fan-out.
func (m *MetricsService) ObserveFanout(duration time.Duration) {
	if m == nil {
		return
	}
	m.fanoutDuration.Observe(duration.Seconds())
}

// RecordDegradedSource counts a source replaced by its empty default.
func (m *MetricsService) RecordDegradedSource(source string) {
	if m == nil {
		return
	}
	m.degradedSources.WithLabelValues(source).Inc()
}

// RecordWarningLevel counts computed warning levels; "none" when no warning applies.
func (m *MetricsService) RecordWarningLevel(level string) {
	if m == nil {
		return
	}
	m.warningLevels.WithLabelValues(level).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
