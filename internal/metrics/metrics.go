package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the service
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )
    // HTTPRateLimited counts requests rejected by the limiter
    HTTPRateLimited = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
    )

    // OptimizeDuration tracks rule-based optimizer runtime
    OptimizeDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "optimizer_run_duration_seconds", Help: "Rule-based optimizer run time in seconds.", Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3}},
    )
    // CacheLookups counts cache lookups by outcome: exact, fuzzy, quick, miss
    CacheLookups = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "optimization_cache_lookups_total", Help: "Optimization cache lookups by outcome."},
        []string{"outcome"},
    )
    // CacheEntries reports cached scenarios by origin: pregenerated, quick, user
    CacheEntries = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{Name: "optimization_cache_entries", Help: "Cached scenarios by origin."},
        []string{"origin"},
    )
    // CachePruned counts user-generated entries evicted by pruning
    CachePruned = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "optimization_cache_pruned_total", Help: "User-generated cache entries removed by pruning."},
    )
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(HTTPRateLimited)
        Registry.MustRegister(OptimizeDuration)
        Registry.MustRegister(CacheLookups)
        Registry.MustRegister(CacheEntries)
        Registry.MustRegister(CachePruned)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
