package runlog

// Schema is the DDL for the collection run log.
const Schema = `
CREATE TABLE IF NOT EXISTS collection_runs (
    run_id       TEXT PRIMARY KEY,
    origin       TEXT NOT NULL DEFAULT '',
    started_at   INTEGER NOT NULL,
    finished_at  INTEGER,
    state        TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'running',
    error_kind   TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    period       TEXT NOT NULL DEFAULT '',
    total_orders INTEGER NOT NULL DEFAULT 0,
    total_value  REAL NOT NULL DEFAULT 0,
    snapshot     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON collection_runs(started_at DESC);
`
