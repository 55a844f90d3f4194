// CLAUDE:SUMMARY SQLite audit trail of collection runs (start, outcome, failing state, snapshot).
// Package runlog records every collection attempt, successful or not, in
// the collection_runs table.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/vendas/dbopen"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "sucesso"
	StatusFailure = "falha"
)

// DefaultLimit is the number of runs returned by Recent when limit <= 0.
const DefaultLimit = 20

// Run is one row of collection_runs.
type Run struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"origem"`
	StartedAt   time.Time  `json:"inicio"`
	FinishedAt  *time.Time `json:"fim,omitempty"`
	State       string     `json:"etapa,omitempty"`
	Status      string     `json:"status"`
	ErrorKind   string     `json:"tipo,omitempty"`
	Error       string     `json:"erro,omitempty"`
	Period      string     `json:"periodo,omitempty"`
	TotalOrders int        `json:"totalPedidos"`
	TotalValue  float64    `json:"totalValor"`
	Snapshot    string     `json:"snapshot,omitempty"`
}

// Outcome is what Finish records.
type Outcome struct {
	Status      string
	State       string
	ErrorKind   string
	Error       string
	Period      string
	TotalOrders int
	TotalValue  float64
	Snapshot    string
}

// Store wraps the database holding collection_runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a Store on db. The schema must already be applied
// (dbopen.WithSchema(Schema)).
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides time.Now.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Begin inserts a running row.
func (s *Store) Begin(ctx context.Context, id, trigger string) error {
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO collection_runs (run_id, origin, started_at, status) VALUES (?, ?, ?, ?)`,
		id, trigger, s.now().UnixMilli(), StatusRunning)
	if err != nil {
		return fmt.Errorf("runlog: begin %s: %w", id, err)
	}
	return nil
}

// Finish stamps the run with its outcome.
func (s *Store) Finish(ctx context.Context, id string, o Outcome) error {
	res, err := dbopen.Exec(ctx, s.db,
		`UPDATE collection_runs
		 SET finished_at = ?, status = ?, state = ?, error_kind = ?, error = ?,
		     period = ?, total_orders = ?, total_value = ?, snapshot = ?
		 WHERE run_id = ?`,
		s.now().UnixMilli(), o.Status, o.State, o.ErrorKind, o.Error,
		o.Period, o.TotalOrders, o.TotalValue, o.Snapshot, id)
	if err != nil {
		return fmt.Errorf("runlog: finish %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("runlog: finish %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, origin, started_at, finished_at, state, status, error_kind, error,
		        period, total_orders, total_value, snapshot
		 FROM collection_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: query: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Trigger, &started, &finished, &r.State, &r.Status,
			&r.ErrorKind, &r.Error, &r.Period, &r.TotalOrders, &r.TotalValue, &r.Snapshot); err != nil {
			return nil, fmt.Errorf("runlog: scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		if finished.Valid {
			f := time.UnixMilli(finished.Int64).UTC()
			r.FinishedAt = &f
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
