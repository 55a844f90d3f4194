package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/vendas/collector/internal/history"
	"github.com/hazyhaar/vendas/collector/internal/period"
	"github.com/hazyhaar/vendas/collector/internal/session"
)

// Sentinel errors. Compare with errors.Is.
var (
	// ErrMissingSession means no session file exists: run vendas-sessao.
	ErrMissingSession = session.ErrMissing
	// ErrExpiredSession means the dashboard redirected to its login page.
	ErrExpiredSession = errors.New("collector: session expired, run vendas-sessao again")
	// ErrUITimeout means an expected dashboard element never appeared.
	ErrUITimeout = errors.New("collector: timed out waiting for the dashboard")
	// ErrPeriodNotFound means yesterday's cell was not in the calendar panel.
	ErrPeriodNotFound = period.ErrNotFound
	// ErrNoData means the history log is empty.
	ErrNoData = history.ErrNoData
)

// Kind classifies a run failure for API clients and the run log.
type Kind string

const (
	KindMissingSession Kind = "missing_session"
	KindExpiredSession Kind = "expired_session"
	KindUITimeout      Kind = "ui_timeout"
	KindPeriodNotFound Kind = "period_not_found"
	KindInternal       Kind = "internal"
)

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrMissingSession):
		return KindMissingSession
	case errors.Is(err, ErrExpiredSession):
		return KindExpiredSession
	case errors.Is(err, ErrUITimeout):
		return KindUITimeout
	case errors.Is(err, ErrPeriodNotFound):
		return KindPeriodNotFound
	}
	return KindInternal
}

// RunError is the failure of one collection run. State is the last state
// the run reached before failing.
type RunError struct {
	RunID string
	State State
	Kind  Kind
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("collector: run failed after %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// uiTimeout marks deadline errors of a bounded wait as ErrUITimeout.
func uiTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUITimeout, err)
	}
	return err
}

// ErrLoginIncomplete is returned by Login when the browser is still on the
// login page after the operator confirmed.
var ErrLoginIncomplete = errors.New("collector: login not completed, page is still on the login URL")
