package store

import (
    "context"
    "database/sql"
    "fmt"

    _ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS optimization_runs (
    id         TEXT PRIMARY KEY,
    vehicle    TEXT NOT NULL,
    source     TEXT NOT NULL,
    cache_key  TEXT,
    cache_hit  TEXT,
    request    JSONB,
    result     JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS optimization_runs_vehicle_idx ON optimization_runs (vehicle, id);
`

var postgresDialect = dialect{
    insert: `INSERT INTO optimization_runs (id, vehicle, source, cache_key, cache_hit, request, result, created_at) VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8)`,
    get:    `SELECT id, vehicle, source, cache_key, cache_hit, request::text, result::text, created_at FROM optimization_runs WHERE id=$1`,
    list:   `SELECT id, vehicle, source, cache_key, cache_hit, request::text, result::text, created_at FROM optimization_runs WHERE ($1 = '' OR vehicle = $1) AND ($2 = '' OR id > $2) ORDER BY id LIMIT $3`,
}

// Postgres keeps run history in a Postgres table via the pgx stdlib driver.
type Postgres struct {
    sqlRuns
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, fmt.Errorf("open postgres: %w", err)
    }
    if err := db.Ping(); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("ping postgres: %w", err)
    }
    return &Postgres{sqlRuns{db: db, d: postgresDialect}}, nil
}

// Migrate creates the run table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
    if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
        return fmt.Errorf("migrate: %w", err)
    }
    return nil
}
