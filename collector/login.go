package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/vendas/collector/internal/session"
)

// Login opens the report page in a visible browser, waits for confirm
// (the operator finished logging in) and saves the browser's cookies to
// the session file. b nil uses a headful Rod browser. It returns the
// number of cookies saved.
func Login(ctx context.Context, cfg *Config, b Browser, confirm func(context.Context) error, log *slog.Logger) (int, error) {
	c := *cfg
	c.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	if b == nil {
		rb := newRodBrowser(&c, false, log)
		defer rb.Close()
		b = rb
	}

	page, err := b.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("collector: open page: %w", err)
	}
	defer page.Close()

	log.Info("login: opening", "url", c.URL)
	if err := page.Navigate(ctx, c.URL, c.Timeouts.Navigation); err != nil {
		return 0, fmt.Errorf("collector: navigate: %w", err)
	}

	if err := confirm(ctx); err != nil {
		return 0, err
	}

	landing, err := page.URL(ctx)
	if err != nil {
		return 0, fmt.Errorf("collector: landing url: %w", err)
	}
	if authStatus(landing, c.Selectors.LoginMarker) == AuthLoginRequired {
		return 0, fmt.Errorf("%w (%s)", ErrLoginIncomplete, landing)
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return 0, fmt.Errorf("collector: mkdir %s: %w", c.DataDir, err)
	}
	store := session.NewStore(c.Path(c.SessionFile))
	if err := store.Save(session.Session{Cookies: cookies}); err != nil {
		return 0, err
	}
	log.Info("login: session saved", "path", store.Path(), "cookies", len(cookies))
	return len(cookies), nil
}
