// CLAUDE:SUMMARY Chrome lifecycle for collection runs: lazy launch or remote connect, uptime recycling, one incognito context per run.
// Package browser drives Chrome through Rod for the collector. A Manager
// owns one Chrome process (local or remote) and hands out Tabs, each in
// its own incognito context so cookies never leak between runs.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless runs the local Chrome without a window. The interactive
	// login turns it off.
	Headless bool

	// Stealth creates pages through go-rod/stealth.
	Stealth bool

	// RecycleInterval is the maximum lifetime of a Chrome process, checked
	// when a tab is acquired. Default: 4h.
	RecycleInterval time.Duration

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// ActionTimeout bounds element lookups and clicks. Default: 30s.
	ActionTimeout time.Duration

	ViewportWidth  int    // default 1920
	ViewportHeight int    // default 1080
	Locale         string // default pt-BR
	TimezoneID     string // default America/Sao_Paulo

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 30 * time.Second
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1920
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1080
	}
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.TimezoneID == "" {
		c.TimezoneID = "America/Sao_Paulo"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages Chrome lifecycle.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
	active  int
}

// NewManager creates a browser Manager. Chrome starts on the first Acquire.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Acquire returns a fresh tab in a new incognito context, launching or
// recycling Chrome first when needed. The caller must Close the tab.
func (m *Manager) Acquire(ctx context.Context) (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil && m.active == 0 && time.Since(m.startAt) > m.cfg.RecycleInterval {
		m.cfg.Logger.Info("browser: recycle interval reached", "uptime", time.Since(m.startAt))
		m.cleanup()
	}
	if m.browser == nil {
		b, err := m.launch()
		if err != nil {
			return nil, err
		}
		m.browser = b
		m.startAt = time.Now()
	}

	tab, err := m.open(ctx, m.browser)
	if err != nil {
		// A dead Chrome surfaces here; drop it so the next Acquire relaunches.
		if m.active == 0 {
			m.cleanup()
		}
		return nil, err
	}
	m.active++
	return tab, nil
}

func (m *Manager) release() {
	m.mu.Lock()
	if m.active > 0 {
		m.active--
	}
	m.mu.Unlock()
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(m.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if m.lnch != nil {
			m.lnch.Cleanup()
			m.lnch = nil
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) open(ctx context.Context, b *rod.Browser) (*Tab, error) {
	inc, err := b.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("browser: incognito context: %w", err)
	}

	var page *rod.Page
	if m.cfg.Stealth {
		page, err = stealth.Page(inc)
	} else {
		page, err = inc.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		inc.Close()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if err := m.emulate(page); err != nil {
		page.Close()
		inc.Close()
		return nil, err
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	return &Tab{
		page:    page,
		ctx:     inc,
		release: m.release,
		timeout: m.cfg.ActionTimeout,
		log:     m.cfg.Logger,
	}, nil
}

// emulate applies viewport, locale and time zone to the page.
func (m *Manager) emulate(page *rod.Page) error {
	err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("browser: viewport: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: m.cfg.Locale}).Call(page); err != nil {
		return fmt.Errorf("browser: locale %s: %w", m.cfg.Locale, err)
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: m.cfg.TimezoneID}).Call(page); err != nil {
		return fmt.Errorf("browser: timezone %s: %w", m.cfg.TimezoneID, err)
	}
	return nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}
