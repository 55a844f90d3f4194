// Package period drives the dashboard's range picker so that the report
// covers exactly "yesterday".
//
// The picker only shows one month in its left panel. A coarse preset is
// clicked first so that yesterday's month is the one on display: "this
// month" when yesterday is in the current month, "last 30 days" when today
// is the first of the month. Yesterday's cell is then clicked twice, which
// collapses the range to a single day.
package period

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when no current-month cell of the left panel
// shows yesterday's day number.
var ErrNotFound = errors.New("period: day cell not found in calendar panel")

// Page is the part of a browser page the selector drives.
type Page interface {
	ClickText(ctx context.Context, text string) error
	Click(ctx context.Context, selector string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Cells(ctx context.Context, panelSelector, cellSelector string) ([]Cell, error)
}

// Cell is one day cell of a calendar panel.
type Cell interface {
	Text(ctx context.Context) (string, error)
	Class(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// Config holds the picker's selectors, labels and pauses.
type Config struct {
	ThisMonthLabel string // preset used when yesterday is in the current month
	Last30Label    string // preset used across a month boundary
	Picker         string // element opening the range popup
	Popup          string // range popup
	LeftPanel      string
	DayCell        string
	LastMonthClass string // padding cell from the previous month
	NextMonthClass string // padding cell from the next month

	PopupTimeout  time.Duration
	AfterPreset   time.Duration
	BeforeScan    time.Duration
	BetweenClicks time.Duration

	// Sleep waits for d. Nil uses a timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ThisMonthLabel == "" {
		c.ThisMonthLabel = "Este mês"
	}
	if c.Last30Label == "" {
		c.Last30Label = "Últimos 30 dias"
	}
	if c.Picker == "" {
		c.Picker = ".ant-calendar-picker"
	}
	if c.Popup == "" {
		c.Popup = ".ant-calendar-range"
	}
	if c.LeftPanel == "" {
		c.LeftPanel = ".ant-calendar-range-left"
	}
	if c.DayCell == "" {
		c.DayCell = "td.ant-calendar-cell"
	}
	if c.LastMonthClass == "" {
		c.LastMonthClass = "ant-calendar-last-month-cell"
	}
	if c.NextMonthClass == "" {
		c.NextMonthClass = "ant-calendar-next-month-cell"
	}
	if c.PopupTimeout <= 0 {
		c.PopupTimeout = 5 * time.Second
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Plan is the resolved reporting window of one run.
type Plan struct {
	Today     time.Time
	Yesterday time.Time
	SameMonth bool
	Preset    string
}

// Selector selects yesterday on the range picker.
type Selector struct {
	cfg Config
}

// New returns a Selector. Zero-valued fields of cfg get defaults.
func New(cfg Config) *Selector {
	cfg.defaults()
	return &Selector{cfg: cfg}
}

// Plan computes yesterday relative to today (in today's location) and the
// preset that brings its month into the left panel.
func (s *Selector) Plan(today time.Time) Plan {
	yesterday := today.AddDate(0, 0, -1)
	same := today.Month() == yesterday.Month() && today.Year() == yesterday.Year()
	preset := s.cfg.Last30Label
	if same {
		preset = s.cfg.ThisMonthLabel
	}
	return Plan{Today: today, Yesterday: yesterday, SameMonth: same, Preset: preset}
}

// Select runs the picker interaction for the plan derived from today.
func (s *Selector) Select(ctx context.Context, page Page, today time.Time) (Plan, error) {
	cfg := &s.cfg
	plan := s.Plan(today)
	log := cfg.Logger.With("yesterday", plan.Yesterday.Format("2006-01-02"), "preset", plan.Preset)

	if err := page.ClickText(ctx, plan.Preset); err != nil {
		return plan, fmt.Errorf("period: click preset %q: %w", plan.Preset, err)
	}
	if err := cfg.Sleep(ctx, cfg.AfterPreset); err != nil {
		return plan, err
	}

	if err := page.Click(ctx, cfg.Picker); err != nil {
		return plan, fmt.Errorf("period: open picker: %w", err)
	}
	if err := page.WaitVisible(ctx, cfg.Popup, cfg.PopupTimeout); err != nil {
		return plan, fmt.Errorf("period: wait popup: %w", err)
	}
	if err := cfg.Sleep(ctx, cfg.BeforeScan); err != nil {
		return plan, err
	}

	cells, err := page.Cells(ctx, cfg.LeftPanel, cfg.DayCell)
	if err != nil {
		return plan, fmt.Errorf("period: list cells: %w", err)
	}
	cell, err := s.match(ctx, cells, plan.Yesterday.Day())
	if err != nil {
		log.Warn("period: yesterday not in left panel", "cells", len(cells))
		return plan, err
	}

	if err := cell.Click(ctx); err != nil {
		return plan, fmt.Errorf("period: first click: %w", err)
	}
	if err := cfg.Sleep(ctx, cfg.BetweenClicks); err != nil {
		return plan, err
	}
	if err := cell.Click(ctx); err != nil {
		return plan, fmt.Errorf("period: second click: %w", err)
	}

	log.Debug("period: selected")
	return plan, nil
}

// match returns the first cell showing day that belongs to the displayed
// month. Padding cells of the adjacent months repeat day numbers.
func (s *Selector) match(ctx context.Context, cells []Cell, day int) (Cell, error) {
	want := strconv.Itoa(day)
	for _, c := range cells {
		text, err := c.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("period: cell text: %w", err)
		}
		if strings.TrimSpace(text) != want {
			continue
		}
		class, err := c.Class(ctx)
		if err != nil {
			return nil, fmt.Errorf("period: cell class: %w", err)
		}
		if hasClass(class, s.cfg.LastMonthClass) || hasClass(class, s.cfg.NextMonthClass) {
			continue
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w (day %d)", ErrNotFound, day)
}

func hasClass(classAttr, name string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == name {
			return true
		}
	}
	return false
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
