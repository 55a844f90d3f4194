// CLAUDE:SUMMARY Collection orchestrator: drives one dashboard page through the run states, records history, snapshots and the run log.
// Package collector scrapes yesterday's "sales by store" report from the
// UpSeller dashboard and keeps a rolling history of the results.
//
// A run walks a fixed sequence of states (see State). Any failure stops
// the run, captures a best-effort "erro" screenshot and returns a
// *RunError carrying the state reached and the failure Kind. Runs are
// serialized: HTTP, MCP and the daily schedule share one Collector.
package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hazyhaar/vendas/collector/internal/extract"
	"github.com/hazyhaar/vendas/collector/internal/history"
	"github.com/hazyhaar/vendas/collector/internal/period"
	"github.com/hazyhaar/vendas/collector/internal/runlog"
	"github.com/hazyhaar/vendas/collector/internal/session"
	"github.com/hazyhaar/vendas/collector/sales"
	"github.com/hazyhaar/vendas/idgen"
)

// State is a step of a collection run.
type State string

const (
	StateStart          State = "start"
	StateSessionLoaded  State = "session_loaded"
	StateNavigated      State = "navigated"
	StateAuthVerified   State = "auth_verified"
	StateCalendarReady  State = "calendar_ready"
	StatePeriodSelected State = "period_selected"
	StateGroupedByStore State = "grouped_by_store"
	StateDataRendered   State = "data_rendered"
	StateExtracted      State = "extracted"
	StateRecorded       State = "recorded"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// Snapshot statuses, also the screenshot file name prefixes.
const (
	StatusSuccess = "sucesso"
	StatusFailure = "erro"
)

// HistorySummary is the answer of a windowed history query.
type HistorySummary = history.Summary

// RunRecord is one row of the run log.
type RunRecord = runlog.Run

// Collector runs collections against the dashboard.
type Collector struct {
	cfg       Config
	loc       *time.Location
	browser   Browser
	ownBrowser bool
	sessions  *session.Store
	history   *history.Store
	runs      *runlog.Store
	runDB     *sql.DB
	selector  *period.Selector
	extractor *extract.Extractor
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	newID     idgen.Generator
	log       *slog.Logger

	mu sync.Mutex
}

// Option configures a Collector.
type Option func(*Collector)

// WithBrowser replaces the Rod browser manager.
func WithBrowser(b Browser) Option {
	return func(c *Collector) { c.browser = b }
}

// WithRunLog records every run in db (collection_runs table, created if
// missing).
func WithRunLog(db *sql.DB) Option {
	return func(c *Collector) { c.runDB = db }
}

// WithClock overrides time.Now for the reporting period, history
// timestamps and snapshot names.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithSleep overrides the settle-delay sleeper.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) { c.sleep = fn }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// WithIDGenerator overrides the run id generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(c *Collector) { c.newID = g }
}

// New builds a Collector from cfg, creates the data, output and snapshot
// directories and initializes the history file.
func New(cfg *Config, opts ...Option) (*Collector, error) {
	c := &Collector{
		cfg:   *cfg,
		now:   time.Now,
		sleep: sleepCtx,
		newID: idgen.Prefixed("run_", idgen.Default),
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.cfg.applyDefaults()

	loc, err := time.LoadLocation(c.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("collector: timezone %q: %w", c.cfg.Timezone, err)
	}
	c.loc = loc

	for _, dir := range []string{c.cfg.DataDir, c.cfg.Path(c.cfg.OutputDir), c.cfg.Path(c.cfg.SnapshotDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("collector: mkdir %s: %w", dir, err)
		}
	}

	c.sessions = session.NewStore(c.cfg.Path(c.cfg.SessionFile))
	c.history = history.NewStore(c.cfg.Path(c.cfg.HistoryFile),
		history.WithLimit(c.cfg.HistoryLimit), history.WithClock(c.now))
	if err := c.history.Init(); err != nil {
		return nil, err
	}

	if c.runDB != nil {
		if _, err := c.runDB.Exec(runlog.Schema); err != nil {
			return nil, fmt.Errorf("collector: run log schema: %w", err)
		}
		c.runs = runlog.New(c.runDB).WithClock(c.now)
	}

	sel := c.cfg.Selectors
	c.selector = period.New(period.Config{
		ThisMonthLabel: sel.ThisMonth,
		Last30Label:    sel.Last30Days,
		Picker:         sel.Picker,
		Popup:          sel.Popup,
		LeftPanel:      sel.LeftPanel,
		DayCell:        sel.DayCell,
		LastMonthClass: sel.LastMonthClass,
		NextMonthClass: sel.NextMonthClass,
		PopupTimeout:   c.cfg.Timeouts.Popup,
		AfterPreset:    c.cfg.Delays.AfterPreset,
		BeforeScan:     c.cfg.Delays.BeforeScan,
		BetweenClicks:  c.cfg.Delays.BetweenClicks,
		Sleep:          c.sleep,
		Logger:         c.log,
	})
	c.extractor = extract.New(extract.Config{
		PeriodInputs: sel.PeriodInputs,
		Table:        sel.Table,
		Logger:       c.log,
	})

	if c.browser == nil {
		c.browser = newRodBrowser(&c.cfg, !c.cfg.Browser.Headful, c.log)
		c.ownBrowser = true
	}
	return c, nil
}

// Close releases the browser when the Collector created it.
func (c *Collector) Close() error {
	if c.ownBrowser {
		return c.browser.Close()
	}
	return nil
}

// run is the bookkeeping of one Run call.
type run struct {
	id       string
	trigger  string
	state    State
	snapshot string
	log      *slog.Logger
}

func (r *run) advance(s State) {
	r.state = s
	r.log.Debug("collector: state", "state", s)
}

// Run performs one collection. trigger names the caller ("api", "mcp",
// "schedule", "cli") in logs and the run log. Failures are *RunError.
func (c *Collector) Run(ctx context.Context, trigger string) (*sales.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := &run{id: c.newID(), trigger: trigger, state: StateStart}
	r.log = c.log.With("run_id", r.id, "trigger", trigger)
	r.log.Info("collector: run started")
	c.recordBegin(ctx, r)

	start := time.Now()
	res, err := c.execute(ctx, r)
	if err != nil {
		failedAt := r.state
		r.advance(StateFailed)
		rerr := &RunError{RunID: r.id, State: failedAt, Kind: kindOf(err), Err: err}
		r.log.Error("collector: run failed",
			"state", failedAt, "kind", rerr.Kind, "error", err, "snapshot", r.snapshot)
		c.recordFinish(ctx, r, runlog.Outcome{
			Status:    runlog.StatusFailure,
			State:     string(failedAt),
			ErrorKind: string(rerr.Kind),
			Error:     err.Error(),
			Snapshot:  r.snapshot,
		})
		return nil, rerr
	}

	r.log.Info("collector: run succeeded",
		"period", res.Period, "rows", len(res.Rows),
		"valid_orders", res.TotalValidOrders, "valid_value", res.TotalValidSalesValue,
		"duration", time.Since(start))
	c.recordFinish(ctx, r, runlog.Outcome{
		Status:      runlog.StatusSuccess,
		State:       string(r.state),
		Period:      res.Period,
		TotalOrders: res.TotalValidOrders,
		TotalValue:  res.TotalValidSalesValue,
		Snapshot:    r.snapshot,
	})
	return res, nil
}

func (c *Collector) execute(ctx context.Context, r *run) (res *sales.Result, err error) {
	sel := c.cfg.Selectors

	sess, err := c.sessions.Load()
	if err != nil {
		return nil, err
	}
	r.advance(StateSessionLoaded)

	page, err := c.browser.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("collector: open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			r.log.Warn("collector: close page", "error", cerr)
		}
	}()
	defer func() {
		if err != nil {
			r.snapshot = c.snapshot(ctx, page, StatusFailure, r.log)
		}
	}()

	if err := page.SetCookies(ctx, sess.Cookies); err != nil {
		return nil, fmt.Errorf("collector: install session: %w", err)
	}

	status, landing, err := c.navigate(ctx, page)
	if err != nil {
		return nil, err
	}
	r.advance(StateNavigated)
	if status == AuthLoginRequired {
		return nil, fmt.Errorf("%w (landed on %s)", ErrExpiredSession, landing)
	}
	r.advance(StateAuthVerified)

	if err := page.WaitVisible(ctx, sel.Picker, c.cfg.Timeouts.Picker); err != nil {
		return nil, fmt.Errorf("collector: wait for date picker: %w", uiTimeout(err))
	}
	r.advance(StateCalendarReady)

	plan, err := c.selector.Select(ctx, page, c.now().In(c.loc))
	if err != nil {
		return nil, fmt.Errorf("collector: select period: %w", uiTimeout(err))
	}
	r.log.Info("collector: period selected",
		"yesterday", plan.Yesterday.Format("2006-01-02"), "preset", plan.Preset)
	if err := c.sleep(ctx, c.cfg.Delays.AfterPeriod); err != nil {
		return nil, err
	}
	r.advance(StatePeriodSelected)

	if err := page.ClickText(ctx, sel.GroupByStore); err != nil {
		return nil, fmt.Errorf("collector: group by store: %w", uiTimeout(err))
	}
	if err := c.sleep(ctx, c.cfg.Delays.AfterGroup); err != nil {
		return nil, err
	}
	r.advance(StateGroupedByStore)

	if err := page.WaitHidden(ctx, sel.Spinner, c.cfg.Timeouts.Spinner); err != nil {
		r.log.Debug("collector: spinner still visible, continuing", "error", err)
	}
	if err := c.sleep(ctx, c.cfg.Delays.Settle); err != nil {
		return nil, err
	}
	r.advance(StateDataRendered)

	res, err = c.extractor.Extract(ctx, page)
	if err != nil {
		return nil, err
	}
	r.advance(StateExtracted)

	if _, err := c.history.Append(ctx, res); err != nil {
		return nil, err
	}
	r.advance(StateRecorded)

	r.snapshot = c.snapshot(ctx, page, StatusSuccess, r.log)
	r.advance(StateSucceeded)
	return res, nil
}

// navigate loads the report page, lets client-side redirects settle and
// classifies where the page landed.
func (c *Collector) navigate(ctx context.Context, page Page) (AuthStatus, string, error) {
	if err := page.Navigate(ctx, c.cfg.URL, c.cfg.Timeouts.Navigation); err != nil {
		return AuthOK, "", fmt.Errorf("collector: navigate: %w", uiTimeout(err))
	}
	if err := c.sleep(ctx, c.cfg.Delays.AfterNavigate); err != nil {
		return AuthOK, "", err
	}
	landing, err := page.URL(ctx)
	if err != nil {
		return AuthOK, "", fmt.Errorf("collector: landing url: %w", err)
	}
	return authStatus(landing, c.cfg.Selectors.LoginMarker), landing, nil
}

// Latest returns the most recent history entry or ErrNoData.
func (c *Collector) Latest() (sales.Entry, error) {
	return c.history.Latest()
}

// History returns the entries of the last days days with their average.
func (c *Collector) History(days int) (HistorySummary, error) {
	return c.history.Query(days)
}

// Runs lists recent runs, newest first. Without a run log it is empty.
func (c *Collector) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if c.runs == nil {
		return []RunRecord{}, nil
	}
	return c.runs.Recent(ctx, limit)
}

func (c *Collector) recordBegin(ctx context.Context, r *run) {
	if c.runs == nil {
		return
	}
	if err := c.runs.Begin(ctx, r.id, r.trigger); err != nil {
		r.log.Warn("collector: run log begin", "error", err)
	}
}

func (c *Collector) recordFinish(ctx context.Context, r *run, o runlog.Outcome) {
	if c.runs == nil {
		return
	}
	if err := c.runs.Finish(ctx, r.id, o); err != nil {
		r.log.Warn("collector: run log finish", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SnapshotName is the screenshot file name for status at t:
// <status>_<UTC time as 2006-01-02T15-04-05>.png.
func SnapshotName(status string, t time.Time) string {
	return status + "_" + t.UTC().Format("2006-01-02T15-04-05") + ".png"
}

// snapshot saves a full-page screenshot and returns its path. Failures are
// logged and yield "".
func (c *Collector) snapshot(ctx context.Context, page Page, status string, log *slog.Logger) string {
	img, err := page.Screenshot(ctx)
	if err != nil {
		log.Warn("collector: snapshot failed", "status", status, "error", err)
		return ""
	}
	path := filepath.Join(c.cfg.Path(c.cfg.SnapshotDir), SnapshotName(status, c.now()))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		log.Warn("collector: snapshot write failed", "path", path, "error", err)
		return ""
	}
	log.Info("collector: snapshot saved", "status", status, "path", path)
	return path
}
