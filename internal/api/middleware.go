package api

import (
    "bufio"
    "errors"
    "net"
    "net/http"
    "strconv"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "ctrltune/internal/config"
    "ctrltune/internal/metrics"
)

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := r.ResponseWriter.(http.Hijacker)
    if !ok { return nil, nil, errors.New("hijack not supported") }
    r.status = http.StatusSwitchingProtocols
    return h.Hijack()
}

func recorder(w http.ResponseWriter) *statusRecorder {
    if rec, ok := w.(*statusRecorder); ok { return rec }
    return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// instrument records request counts and durations labelled by route pattern.
func instrument(pattern string, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := recorder(w)
        next.ServeHTTP(rec, r)
        code := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, pattern, code).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, pattern, code).Observe(time.Since(start).Seconds())
    })
}

func (s *Server) logRequests(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := recorder(w)
        next.ServeHTTP(rec, r)
        s.Log.WithFields(logrus.Fields{
            "remote":   r.RemoteAddr,
            "method":   r.Method,
            "path":     r.URL.Path,
            "status":   rec.status,
            "duration": time.Since(start).String(),
        }).Debug("request")
    })
}

func newLimiter(cfg config.ServerConfig) *rate.Limiter {
    if cfg.RateRPS <= 0 { return nil }
    return rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst)
}

// rateLimit rejects API requests above the configured rate. Probes and
// metrics scrapes are exempt.
func (s *Server) rateLimit(next http.Handler) http.Handler {
    if s.limiter == nil { return next }
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/healthz", "/readyz", "/metrics":
            next.ServeHTTP(w, r)
            return
        }
        if !s.limiter.Allow() {
            metrics.HTTPRateLimited.Inc()
            w.Header().Set("Retry-After", "1")
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
            return
        }
        next.ServeHTTP(w, r)
    })
}

func metricsHandler() http.Handler {
    metrics.RegisterDefault()
    return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
