package store

import (
    "database/sql"
    "fmt"

    _ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS optimization_runs (
    id         TEXT PRIMARY KEY,
    vehicle    TEXT NOT NULL,
    source     TEXT NOT NULL,
    cache_key  TEXT,
    cache_hit  TEXT,
    request    TEXT,
    result     TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS optimization_runs_vehicle_idx ON optimization_runs (vehicle, id);
`

var sqliteDialect = dialect{
    insert:  `INSERT INTO optimization_runs (id, vehicle, source, cache_key, cache_hit, request, result, created_at) VALUES (?1,?2,?3,?4,?5,?6,?7,?8)`,
    get:     `SELECT id, vehicle, source, cache_key, cache_hit, request, result, created_at FROM optimization_runs WHERE id=?1`,
    list:    `SELECT id, vehicle, source, cache_key, cache_hit, request, result, created_at FROM optimization_runs WHERE (?1 = '' OR vehicle = ?1) AND (?2 = '' OR id > ?2) ORDER BY id LIMIT ?3`,
    timeArg: rfc3339,
}

// SQLite keeps run history in a local SQLite file for single-node deployments.
type SQLite struct {
    sqlRuns
}

// NewSQLite opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an ephemeral database.
func NewSQLite(path string) (*SQLite, error) {
    db, err := sql.Open("sqlite", path)
    if err != nil {
        return nil, fmt.Errorf("open db: %w", err)
    }
    // one connection keeps ":memory:" databases shared and serialises writers
    db.SetMaxOpenConns(1)
    if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("pragma: %w", err)
    }
    if _, err := db.Exec(sqliteSchema); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("migrate: %w", err)
    }
    return &SQLite{sqlRuns{db: db, d: sqliteDialect}}, nil
}
