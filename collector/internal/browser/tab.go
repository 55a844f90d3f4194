package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/vendas/collector/internal/session"
)

// Tab is one page in its own incognito context. Every method takes the
// caller's context; waits are additionally bounded by their timeout.
type Tab struct {
	page    *rod.Page
	ctx     *rod.Browser // incognito browser context owning the page
	release func()
	timeout time.Duration // bound on element lookups and clicks
	log     *slog.Logger
}

func (t *Tab) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.timeout)
}

// SetCookies installs the saved session cookies into the tab's context.
func (t *Tab) SetCookies(ctx context.Context, cookies []session.Cookie) error {
	if err := t.ctx.Context(ctx).SetCookies(ToParams(cookies)); err != nil {
		return fmt.Errorf("browser: set cookies: %w", err)
	}
	return nil
}

// Cookies returns every cookie of the tab's context.
func (t *Tab) Cookies(ctx context.Context) ([]session.Cookie, error) {
	cs, err := t.ctx.Context(ctx).GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}
	return FromCookies(cs), nil
}

// Navigate loads url and waits for DOMContentLoaded.
func (t *Tab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := t.page.Context(navCtx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	wait()
	if err := navCtx.Err(); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// URL returns the page's current URL.
func (t *Tab) URL(ctx context.Context) (string, error) {
	info, err := t.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, nil
}

// WaitVisible waits until an element matching selector is visible.
func (t *Tab) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := t.page.Context(wctx).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: wait %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("browser: wait visible %s: %w", selector, err)
	}
	return nil
}

const hiddenJS = `(s) => {
	const el = document.querySelector(s);
	return !el || el.offsetParent === null || getComputedStyle(el).visibility === "hidden";
}`

// WaitHidden waits until no element matching selector is visible.
func (t *Tab) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := t.page.Context(wctx).Wait(rod.Eval(hiddenJS, selector)); err != nil {
		return fmt.Errorf("browser: wait hidden %s: %w", selector, err)
	}
	return nil
}

// ClickText clicks the first element whose own normalized text equals text.
func (t *Tab) ClickText(ctx context.Context, text string) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	el, err := t.page.Context(ctx).ElementX(textXPath(text))
	if err != nil {
		return fmt.Errorf("browser: find text %q: %w", text, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click text %q: %w", text, err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (t *Tab) Click(ctx context.Context, selector string) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	el, err := t.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: find %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

// Cells lists the elements matching cellSelector inside the first
// panelSelector element.
func (t *Tab) Cells(ctx context.Context, panelSelector, cellSelector string) ([]*Cell, error) {
	lctx, cancel := t.bound(ctx)
	defer cancel()

	panel, err := t.page.Context(lctx).Element(panelSelector)
	if err != nil {
		return nil, fmt.Errorf("browser: find panel %s: %w", panelSelector, err)
	}
	els, err := panel.Elements(cellSelector)
	if err != nil {
		return nil, fmt.Errorf("browser: list %s: %w", cellSelector, err)
	}
	cells := make([]*Cell, len(els))
	for i, el := range els {
		cells[i] = &Cell{el: el, timeout: t.timeout}
	}
	return cells, nil
}

// HTML returns the serialised document.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	html, err := t.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: get html: %w", err)
	}
	return html, nil
}

// InputValues returns the live value property of every input matching
// selector, in document order.
func (t *Tab) InputValues(ctx context.Context, selector string) ([]string, error) {
	els, err := t.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: list %s: %w", selector, err)
	}
	values := make([]string, 0, len(els))
	for _, el := range els {
		v, err := el.Property("value")
		if err != nil {
			return nil, fmt.Errorf("browser: read value of %s: %w", selector, err)
		}
		values = append(values, v.Str())
	}
	return values, nil
}

// Screenshot captures the full page as PNG.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := t.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return img, nil
}

// Close closes the page and disposes its incognito context.
func (t *Tab) Close() error {
	defer t.release()
	if err := t.page.Close(); err != nil {
		t.log.Debug("browser: close page", "error", err)
	}
	if err := t.ctx.Close(); err != nil {
		return fmt.Errorf("browser: close context: %w", err)
	}
	return nil
}

// Cell is one element returned by Tab.Cells.
type Cell struct {
	el      *rod.Element
	timeout time.Duration
}

func (c *Cell) Text(ctx context.Context) (string, error) {
	return c.el.Context(ctx).Text()
}

// Class returns the class attribute, "" when absent.
func (c *Cell) Class(ctx context.Context) (string, error) {
	v, err := c.el.Context(ctx).Attribute("class")
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

func (c *Cell) Click(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// textXPath matches elements whose own text, whitespace-normalized, is text.
func textXPath(text string) string {
	return "//*[normalize-space(text())=" + xpathLiteral(text) + "]"
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	return `concat("` + strings.Join(parts, `", '"', "`) + `")`
}
