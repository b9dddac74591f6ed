package api

import (
    "context"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "ctrltune/internal/cache"
    "ctrltune/internal/config"
    "ctrltune/internal/opt"
    "ctrltune/internal/store"
)

type Server struct {
    Optimizer *opt.Optimizer
    Cache     *cache.Cache
    Store     store.Store
    Broker    EventBroker
    Presets   map[string]config.Preset
    Log       logrus.FieldLogger

    cfg     config.Config
    limiter *rate.Limiter
    started time.Time
}

// NewServer wires the optimizer, cache, run store and event broker from cfg.
// Storage falls back from Postgres to SQLite to memory; the broker falls
// back from Redis to in-process.
func NewServer(cfg config.Config, log logrus.FieldLogger) (*Server, error) {
    st, err := openStore(cfg.Storage, log)
    if err != nil { return nil, err }
    var broker EventBroker = NewBroker()
    if cfg.Server.RedisURL != "" {
        if rb, err := NewRedisBroker(cfg.Server.RedisURL, log); err == nil {
            broker = rb
        } else {
            log.WithError(err).Warn("redis unavailable; using in-process broker")
        }
    }
    o := opt.New().WithLogger(log)
    return &Server{
        Optimizer: o,
        Cache:     cache.New(o, CacheOptions(cfg.Cache, log)...),
        Store:     st,
        Broker:    broker,
        Presets:   cfg.Presets,
        Log:       log,
        cfg:       cfg,
        limiter:   newLimiter(cfg.Server),
        started:   time.Now(),
    }, nil
}

func openStore(cfg config.StorageConfig, log logrus.FieldLogger) (store.Store, error) {
    switch {
    case strings.TrimSpace(cfg.DatabaseURL) != "":
        pg, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil { return nil, err }
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := pg.Migrate(ctx); err != nil {
            _ = pg.Close()
            return nil, err
        }
        log.Info("run history: postgres")
        return pg, nil
    case cfg.SQLitePath != "":
        sq, err := store.NewSQLite(cfg.SQLitePath)
        if err != nil { return nil, err }
        log.WithField("path", cfg.SQLitePath).Info("run history: sqlite")
        return sq, nil
    default:
        log.Info("run history: memory")
        return store.NewMemory(), nil
    }
}

// CacheOptions maps the cache config section onto cache options.
func CacheOptions(cfg config.CacheConfig, log logrus.FieldLogger) []cache.Option {
    opts := []cache.Option{
        cache.WithLogger(log),
        cache.WithUserTTL(cfg.UserTTL.Std()),
        cache.WithFuzzyThreshold(cfg.FuzzyThreshold),
    }
    if len(cfg.Vehicles) > 0 { opts = append(opts, cache.WithVehicles(cfg.Vehicles...)) }
    if cfg.Pregenerate != nil && !*cfg.Pregenerate { opts = append(opts, cache.WithoutPregeneration()) }
    return opts
}

// NewPruner returns a cache pruner that announces evictions on the broker.
func (s *Server) NewPruner() *cache.Pruner {
    p := cache.NewPruner(s.Cache, s.cfg.Cache.PruneInterval.Std())
    p.OnPrune = func(n int) { s.publish(EventCachePruned, map[string]any{"removed": n, "trigger": "schedule"}) }
    return p
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
    mux := http.NewServeMux()
    handle := func(pattern string, h http.HandlerFunc) { mux.Handle(pattern, instrument(pattern, h)) }

    // Optimization and cache
    handle("/v1/optimize", s.OptimizeHandler)
    handle("/v1/cache/lookup", s.CacheLookupHandler)
    handle("/v1/cache/stats", s.CacheStatsHandler)
    handle("/v1/cache/entries", s.CacheEntriesHandler)
    handle("/v1/admin/cache/prune", s.CachePruneHandler)

    // Run history
    handle("/v1/runs", s.RunsHandler)
    handle("/v1/runs/", s.RunByIDHandler)

    // Reference data
    handle("/v1/presets", s.PresetsHandler)
    handle("/v1/functions", s.FunctionsHandler)

    // Events
    handle("/v1/events/stream", s.EventsStreamHandler)
    handle("/v1/events/ws", s.EventsWSHandler)

    // Health, docs, debug
    handle("/healthz", s.HealthHandler)
    handle("/readyz", s.ReadyHandler)
    handle("/openapi.yaml", s.OpenAPIHandler)
    handle("/openapi.json", s.OpenAPIJSONHandler)
    handle("/docs", s.DocsHandler)
    handle("/debug/info", s.DebugJSON)
    mux.Handle("/metrics", metricsHandler())

    return s.logRequests(s.rateLimit(mux))
}

// Close releases the store and broker.
func (s *Server) Close() error {
    berr := s.Broker.Close()
    if err := s.Store.Close(); err != nil { return fmt.Errorf("close store: %w", err) }
    return berr
}

func (s *Server) publish(typ string, data map[string]any) {
    s.Broker.Publish(eventsTopic, SSEEvent{Type: typ, TS: time.Now().UTC(), Data: data})
}
