package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "ctrltune/internal/model"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
    insert string
    get    string
    list   string // args: vehicle, cursor, limit

    // timeArg converts created_at for binding; nil binds time.Time as is.
    timeArg func(time.Time) any
}

// sqlRuns implements the run methods shared by Postgres and SQLite.
type sqlRuns struct {
    db *sql.DB
    d  dialect
}

func (s sqlRuns) SaveRun(ctx context.Context, run Run) (Run, error) {
    run = prepare(run)
    result, err := json.Marshal(run.Result)
    if err != nil { return Run{}, fmt.Errorf("encode result: %w", err) }
    req := run.Request
    if len(req) == 0 { req = json.RawMessage("null") }
    var created any = run.CreatedAt
    if s.d.timeArg != nil { created = s.d.timeArg(run.CreatedAt) }
    if _, err := s.db.ExecContext(ctx, s.d.insert, run.ID, string(run.Vehicle), run.Source,
        nullIfEmpty(run.CacheKey), nullIfEmpty(run.CacheHit), string(req), string(result), created); err != nil {
        return Run{}, fmt.Errorf("insert run: %w", err)
    }
    return run, nil
}

func (s sqlRuns) GetRun(ctx context.Context, id string) (Run, error) {
    r, err := s.scan(s.db.QueryRowContext(ctx, s.d.get, id))
    if errors.Is(err, sql.ErrNoRows) { return Run{}, ErrNotFound }
    return r, err
}

func (s sqlRuns) ListRuns(ctx context.Context, vehicle, cursor string, limit int) ([]Run, string, error) {
    limit = clampLimit(limit)
    rows, err := s.db.QueryContext(ctx, s.d.list, vehicle, cursor, limit)
    if err != nil { return nil, "", fmt.Errorf("list runs: %w", err) }
    defer rows.Close()
    out := []Run{}
    var last string
    for rows.Next() {
        r, err := s.scan(rows)
        if err != nil { return nil, "", err }
        out = append(out, r)
        last = r.ID
    }
    if err := rows.Err(); err != nil { return nil, "", err }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (s sqlRuns) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s sqlRuns) Close() error { return s.db.Close() }

type scanner interface{ Scan(dest ...any) error }

func (s sqlRuns) scan(row scanner) (Run, error) {
    var r Run
    var vehicle string
    var key, hit sql.NullString
    var req, result []byte
    var created any
    if err := row.Scan(&r.ID, &vehicle, &r.Source, &key, &hit, &req, &result, &created); err != nil {
        return Run{}, err
    }
    ts, err := parseTime(created)
    if err != nil { return Run{}, fmt.Errorf("run %s created_at: %w", r.ID, err) }
    r.CreatedAt = ts
    r.Vehicle = model.VehicleModel(vehicle)
    r.CacheKey, r.CacheHit = key.String, hit.String
    if len(req) > 0 && string(req) != "null" { r.Request = json.RawMessage(req) }
    if err := json.Unmarshal(result, &r.Result); err != nil {
        return Run{}, fmt.Errorf("decode run %s: %w", r.ID, err)
    }
    return r, nil
}

// parseTime accepts the native driver value or SQLite's text rendering.
func parseTime(v any) (time.Time, error) {
    var s string
    switch t := v.(type) {
    case time.Time:
        return t.UTC(), nil
    case string:
        s = t
    case []byte:
        s = string(t)
    default:
        return time.Time{}, fmt.Errorf("unsupported type %T", v)
    }
    for _, layout := range timeLayouts {
        if ts, err := time.Parse(layout, s); err == nil { return ts.UTC(), nil }
    }
    return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

var timeLayouts = []string{
    time.RFC3339Nano,
    "2006-01-02 15:04:05.999999999-07:00",
    "2006-01-02 15:04:05.999999999 -0700 MST", // time.Time.String
    "2006-01-02 15:04:05.999999999",
}

// rfc3339 stores timestamps as sortable RFC3339 text.
func rfc3339(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) }

func nullIfEmpty(s string) any { if s == "" { return nil }; return s }
