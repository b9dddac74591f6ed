package store

import (
    "context"
    "sync"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
    mu   sync.Mutex
    runs map[string]Run // id -> run
    ids  []string       // insertion order
}

func NewMemory() *Memory {
    return &Memory{runs: map[string]Run{}}
}

func (m *Memory) SaveRun(ctx context.Context, run Run) (Run, error) {
    run = prepare(run)
    run.Result = run.Result.Clone()
    m.mu.Lock(); defer m.mu.Unlock()
    if _, ok := m.runs[run.ID]; !ok { m.ids = append(m.ids, run.ID) }
    m.runs[run.ID] = run
    return run, nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.runs[id]
    if !ok { return Run{}, ErrNotFound }
    r.Result = r.Result.Clone()
    return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, vehicle, cursor string, limit int) ([]Run, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    limit = clampLimit(limit)
    start := 0
    if cursor != "" {
        for i, id := range m.ids {
            if id == cursor { start = i + 1; break }
        }
    }
    out := []Run{}
    var last string
    for i := start; i < len(m.ids) && len(out) < limit; i++ {
        r := m.runs[m.ids[i]]
        if vehicle != "" && string(r.Vehicle) != vehicle { continue }
        r.Result = r.Result.Clone()
        out = append(out, r)
        last = r.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
