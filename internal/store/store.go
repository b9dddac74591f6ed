package store

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"

    "ctrltune/internal/model"
)

// Run sources.
const (
    SourceOptimize = "optimize"
    SourceLookup   = "lookup"
)

// Run is one recorded optimization or cache lookup.
type Run struct {
    ID        string                   `json:"id"`
    Vehicle   model.VehicleModel       `json:"vehicle"`
    Source    string                   `json:"source"`
    CacheKey  string                   `json:"cacheKey,omitempty"`
    CacheHit  string                   `json:"cacheHit,omitempty"`
    Request   json.RawMessage          `json:"request,omitempty"`
    Result    model.OptimizationResult `json:"result"`
    CreatedAt time.Time                `json:"createdAt"`
}

// Store is the persistence interface used by the API server.
type Store interface {
    // SaveRun assigns ID and CreatedAt when empty and persists the run.
    SaveRun(ctx context.Context, run Run) (Run, error)
    GetRun(ctx context.Context, id string) (Run, error)
    // ListRuns pages runs in ID order, optionally filtered by vehicle.
    ListRuns(ctx context.Context, vehicle, cursor string, limit int) ([]Run, string, error)
    Ping(ctx context.Context) error
    Close() error
}

var ErrNotFound = errors.New("not found")

const (
    defaultListLimit = 100
    maxListLimit     = 500
)

func clampLimit(limit int) int {
    if limit <= 0 || limit > maxListLimit { return defaultListLimit }
    return limit
}

// newRunID returns a time-ordered id so that lexical order is insertion order.
func newRunID() string {
    id, err := uuid.NewV7()
    if err != nil { return uuid.New().String() }
    return id.String()
}

func prepare(run Run) Run {
    if run.ID == "" { run.ID = newRunID() }
    if run.CreatedAt.IsZero() { run.CreatedAt = time.Now().UTC() }
    if run.Vehicle == "" { run.Vehicle = run.Result.Analysis.VehicleModel }
    return run
}
