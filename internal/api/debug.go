package api

import (
    "net/http"
    "time"

    "ctrltune/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build":  buildinfo.Info(),
        "time":   time.Now().UTC().Format(time.RFC3339),
        "uptime": time.Since(s.started).Round(time.Second).String(),
        "stages": s.Optimizer.Stages(),
        "cache":  s.Cache.Stats(),
        "config": map[string]any{
            "PORT":                 s.cfg.Server.Port,
            "RATE_RPS":             s.cfg.Server.RateRPS,
            "RATE_BURST":           s.cfg.Server.RateBurst,
            "CACHE_USER_TTL":       s.cfg.Cache.UserTTL.Std().String(),
            "CACHE_PRUNE_INTERVAL": s.cfg.Cache.PruneInterval.Std().String(),
            "HAS_DATABASE_URL":     s.cfg.Storage.DatabaseURL != "",
            "HAS_SQLITE_PATH":      s.cfg.Storage.SQLitePath != "",
            "HAS_REDIS_URL":        s.cfg.Server.RedisURL != "",
        },
    }
    writeJSON(w, http.StatusOK, info)
}
