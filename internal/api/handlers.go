package api

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "ctrltune/internal/cache"
    "ctrltune/internal/controller"
    "ctrltune/internal/model"
    "ctrltune/internal/store"
)

type runResponse struct {
    RunID string `json:"runId,omitempty"`
    model.OptimizationResult
}

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.OptimizeRequest
    raw, err := readJSON(r, &req)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateOptimizeRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
        return
    }
    res := s.Optimizer.Optimize(req)
    run, err := s.Store.SaveRun(r.Context(), store.Run{
        Vehicle: res.Analysis.VehicleModel,
        Source:  store.SourceOptimize,
        Request: raw,
        Result:  res,
    })
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Record run failed", err.Error(), r.URL.Path)
        return
    }
    s.publish(EventOptimizationCompleted, map[string]any{
        "runId":   run.ID,
        "vehicle": res.Analysis.VehicleModel,
        "changes": len(res.OptimizedSettings.Diff(res.FactorySettings)),
    })
    writeJSON(w, http.StatusOK, runResponse{RunID: run.ID, OptimizationResult: res})
}

// CacheLookupHandler handles POST /v1/cache/lookup. A miss is 404 unless the
// request sets resolve, in which case the optimizer runs and the result is
// cached.
func (s *Server) CacheLookupHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.LookupRequest
    raw, err := readJSON(r, &req)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateLookupRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid lookup request", err.Error(), r.URL.Path)
        return
    }

    var res model.OptimizationResult
    outcome := cache.OutcomeOptimized
    if req.Resolve {
        res, outcome, err = s.Cache.Resolve(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusServiceUnavailable, "Lookup cancelled", err.Error(), r.URL.Path)
            return
        }
    } else {
        var ok bool
        res, ok = s.Cache.Get(req.Vehicle, req.Priorities, req.Conditions)
        if !ok {
            s.publish(EventCacheMiss, map[string]any{"vehicle": req.Vehicle})
            writeProblem(w, http.StatusNotFound, "Cache miss", "no cached, similar or quick scenario for "+string(req.Vehicle), r.URL.Path)
            return
        }
        outcome = cache.Outcome(res.CacheHit)
    }

    run, err := s.Store.SaveRun(r.Context(), store.Run{
        Vehicle:  req.Vehicle,
        Source:   store.SourceLookup,
        CacheKey: res.CacheKey,
        CacheHit: string(outcome),
        Request:  raw,
        Result:   res,
    })
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Record run failed", err.Error(), r.URL.Path)
        return
    }
    evt := EventCacheHit
    if outcome == cache.OutcomeOptimized { evt = EventCacheInserted }
    s.publish(evt, map[string]any{"runId": run.ID, "vehicle": req.Vehicle, "key": res.CacheKey, "outcome": outcome})
    writeJSON(w, http.StatusOK, runResponse{RunID: run.ID, OptimizationResult: res})
}

// CacheStatsHandler handles GET /v1/cache/stats
func (s *Server) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    writeJSON(w, http.StatusOK, s.Cache.Stats())
}

// CacheEntriesHandler handles GET /v1/cache/entries?vehicle=
func (s *Server) CacheEntriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    vehicle := r.URL.Query().Get("vehicle")
    items := []cache.Entry{}
    for _, e := range s.Cache.Entries() {
        if vehicle == "" || string(e.Meta.Vehicle) == vehicle { items = append(items, e) }
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// CachePruneHandler handles POST /v1/admin/cache/prune
func (s *Server) CachePruneHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    n := s.Cache.Prune()
    if n > 0 { s.publish(EventCachePruned, map[string]any{"removed": n, "trigger": "admin"}) }
    writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// RunsHandler handles GET /v1/runs?vehicle=&cursor=&limit=
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/runs" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    q := r.URL.Query()
    items, next, err := s.Store.ListRuns(r.Context(), q.Get("vehicle"), q.Get("cursor"), queryInt(r, "limit", 100))
    if err != nil { writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path); return }
    writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
    if id == "" || strings.Contains(id, "/") { writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    run, err := s.Store.GetRun(r.Context(), id)
    if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Run not found", id, r.URL.Path); return }
    if err != nil { writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path); return }
    writeJSON(w, http.StatusOK, run)
}

// PresetsHandler handles GET /v1/presets
func (s *Server) PresetsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    writeJSON(w, http.StatusOK, map[string]any{"presets": s.Presets})
}

type functionInfo struct {
    Function string `json:"function"`
    Name     string `json:"name"`
    Unit     string `json:"unit,omitempty"`
    Factory  int    `json:"factory"`
    Min      int    `json:"min"`
    Max      int    `json:"max"`
}

// FunctionsHandler handles GET /v1/functions: the safety constraint table.
func (s *Server) FunctionsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    defs := controller.Definitions()
    out := make([]functionInfo, 0, len(defs))
    for _, d := range defs {
        out = append(out, functionInfo{Function: d.Function.String(), Name: d.Name, Unit: d.Unit, Factory: d.Factory, Min: d.Bounds.Min, Max: d.Bounds.Max})
    }
    writeJSON(w, http.StatusOK, map[string]any{"functions": out})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"status": "ready", "cacheEntries": s.Cache.Stats().Entries})
}
