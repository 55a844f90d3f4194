package collector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/vendas/collector/internal/period"
	"github.com/hazyhaar/vendas/collector/internal/session"
)

const reportHTML = `<html><body>
<table>
  <thead><tr><th>Loja</th></tr></thead>
  <tbody>
    <tr><td>Loja Centro</td><td>Shopee</td><td>6</td><td>R$ 150,00</td><td>5</td><td>R$ 120,50</td><td>1</td><td>R$ 29,50</td><td>4</td><td>R$ 30,12</td></tr>
    <tr><td>Loja Norte</td><td>Mercado Livre</td><td>3</td><td>R$ 80,00</td><td>3</td><td>R$ 80,00</td><td>0</td><td>R$ 0,00</td><td>3</td><td>R$ 26,67</td></tr>
  </tbody>
</table>
</body></html>`

type fakeCell struct {
	text   string
	class  string
	clicks int
}

func (c *fakeCell) Text(context.Context) (string, error)  { return c.text, nil }
func (c *fakeCell) Class(context.Context) (string, error) { return c.class, nil }
func (c *fakeCell) Click(context.Context) error           { c.clicks++; return nil }

// marchGrid is the left panel for March 2025: February padding (23..28),
// March 1..31, April padding (1..5).
func marchGrid() []*fakeCell {
	var cells []*fakeCell
	for d := 23; d <= 28; d++ {
		cells = append(cells, &fakeCell{text: fmt.Sprint(d), class: "ant-calendar-cell ant-calendar-last-month-cell"})
	}
	for d := 1; d <= 31; d++ {
		cells = append(cells, &fakeCell{text: fmt.Sprint(d), class: "ant-calendar-cell"})
	}
	for d := 1; d <= 5; d++ {
		cells = append(cells, &fakeCell{text: fmt.Sprint(d), class: "ant-calendar-cell ant-calendar-next-month-cell"})
	}
	return cells
}

// fakePage scripts a dashboard that behaves unless told otherwise.
type fakePage struct {
	mu sync.Mutex

	landing       string
	cells         []*fakeCell
	inputs        []string
	html          string
	cookies       []session.Cookie
	waitErr       map[string]error // selector -> WaitVisible error
	hiddenErr     error
	screenshotErr error

	calls     []string
	setCookie []session.Cookie
	closed    bool
}

func newFakePage() *fakePage {
	return &fakePage{
		landing: DefaultURL,
		cells:   marchGrid(),
		inputs:  []string{"14/03/2025", "14/03/2025"},
		html:    reportHTML,
		waitErr: map[string]error{},
	}
}

func (p *fakePage) record(format string, args ...any) {
	p.mu.Lock()
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
	p.mu.Unlock()
}

func (p *fakePage) called(prefix string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (p *fakePage) SetCookies(_ context.Context, cs []session.Cookie) error {
	p.record("SetCookies %d", len(cs))
	p.setCookie = cs
	return nil
}

func (p *fakePage) Cookies(context.Context) ([]session.Cookie, error) {
	p.record("Cookies")
	return p.cookies, nil
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.record("Navigate %s", url)
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) { return p.landing, nil }

func (p *fakePage) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	p.record("WaitVisible %s", sel)
	return p.waitErr[sel]
}

func (p *fakePage) WaitHidden(_ context.Context, sel string, _ time.Duration) error {
	p.record("WaitHidden %s", sel)
	return p.hiddenErr
}

func (p *fakePage) ClickText(_ context.Context, text string) error {
	p.record("ClickText %s", text)
	return nil
}

func (p *fakePage) Click(_ context.Context, sel string) error {
	p.record("Click %s", sel)
	return nil
}

func (p *fakePage) Cells(_ context.Context, panel, cell string) ([]period.Cell, error) {
	p.record("Cells %s %s", panel, cell)
	out := make([]period.Cell, len(p.cells))
	for i, c := range p.cells {
		out[i] = c
	}
	return out, nil
}

func (p *fakePage) HTML(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) InputValues(context.Context, string) ([]string, error) { return p.inputs, nil }

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	p.record("Screenshot")
	if p.screenshotErr != nil {
		return nil, p.screenshotErr
	}
	return []byte("\x89PNG fake"), nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// fakeBrowser hands out the same scripted page and tracks overlap.
type fakeBrowser struct {
	mu         sync.Mutex
	page       *fakePage
	acquired   int
	active     int
	maxActive  int
	acquireErr error
	hold       time.Duration
}

func (b *fakeBrowser) Acquire(context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.acquireErr != nil {
		return nil, b.acquireErr
	}
	b.acquired++
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	return &trackedPage{fakePage: b.page, b: b}, nil
}

func (b *fakeBrowser) Close() error { return nil }

type trackedPage struct {
	*fakePage
	b *fakeBrowser
}

func (p *trackedPage) Close() error {
	if p.b.hold > 0 {
		time.Sleep(p.b.hold)
	}
	p.b.mu.Lock()
	p.b.active--
	p.b.mu.Unlock()
	return p.fakePage.Close()
}

// recordingSleep returns a sleeper that never blocks and the list of
// durations it was asked for.
func recordingSleep() (func(context.Context, time.Duration) error, *[]time.Duration) {
	var mu sync.Mutex
	var slept []time.Duration
	return func(_ context.Context, d time.Duration) error {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
		return nil
	}, &slept
}

// fixedNow is 2025-03-15 09:00 in São Paulo.
var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func writeSession(t *testing.T, cfg *Config) {
	t.Helper()
	err := session.NewStore(cfg.Path(cfg.SessionFile)).Save(session.Session{Cookies: []session.Cookie{
		{Name: "sid", Value: "abc", Domain: ".upseller.com", Path: "/", Expires: -1},
	}})
	if err != nil {
		t.Fatalf("write session: %v", err)
	}
}

func newTestCollector(t *testing.T, cfg *Config, b Browser, opts ...Option) *Collector {
	t.Helper()
	sleep, _ := recordingSleep()
	all := append([]Option{
		WithBrowser(b),
		WithClock(func() time.Time { return fixedNow }),
		WithSleep(sleep),
	}, opts...)
	c, err := New(cfg, all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func snapshots(t *testing.T, cfg *Config, status string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(cfg.Path(cfg.SnapshotDir), status+"_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

var errBoom = errors.New("boom")
