package collector

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/vendas/collector/internal/browser"
	"github.com/hazyhaar/vendas/collector/internal/period"
	"github.com/hazyhaar/vendas/collector/internal/session"
)

// Page is the browser page a run drives. *browser.Tab backs it in
// production; tests use a scripted fake.
type Page interface {
	SetCookies(ctx context.Context, cookies []session.Cookie) error
	Cookies(ctx context.Context) ([]session.Cookie, error)
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	URL(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	ClickText(ctx context.Context, text string) error
	Click(ctx context.Context, selector string) error
	Cells(ctx context.Context, panelSelector, cellSelector string) ([]period.Cell, error)
	HTML(ctx context.Context) (string, error)
	InputValues(ctx context.Context, selector string) ([]string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Browser hands out one isolated page per run.
type Browser interface {
	Acquire(ctx context.Context) (Page, error)
	Close() error
}

// AuthStatus is the authentication outcome of the navigation step.
type AuthStatus int

const (
	AuthOK AuthStatus = iota
	AuthLoginRequired
)

func (s AuthStatus) String() string {
	if s == AuthLoginRequired {
		return "login_required"
	}
	return "ok"
}

// authStatus classifies the landing URL: any URL containing marker is the
// login page.
func authStatus(landing, marker string) AuthStatus {
	if strings.Contains(landing, marker) {
		return AuthLoginRequired
	}
	return AuthOK
}

// rodBrowser adapts browser.Manager to Browser.
type rodBrowser struct {
	m *browser.Manager
}

func (b rodBrowser) Acquire(ctx context.Context) (Page, error) {
	tab, err := b.m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return tabPage{tab}, nil
}

func (b rodBrowser) Close() error { return b.m.Close() }

type tabPage struct {
	*browser.Tab
}

func (p tabPage) Cells(ctx context.Context, panelSelector, cellSelector string) ([]period.Cell, error) {
	cells, err := p.Tab.Cells(ctx, panelSelector, cellSelector)
	if err != nil {
		return nil, err
	}
	out := make([]period.Cell, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out, nil
}

func newRodBrowser(cfg *Config, headless bool, log *slog.Logger) rodBrowser {
	return rodBrowser{m: browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headless:         headless,
		Stealth:          !cfg.Browser.DisableStealth,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		ActionTimeout:    cfg.Timeouts.Action,
		ViewportWidth:    cfg.Browser.ViewportWidth,
		ViewportHeight:   cfg.Browser.ViewportHeight,
		Locale:           cfg.Browser.Locale,
		TimezoneID:       cfg.Timezone,
		Logger:           log,
	})}
}
