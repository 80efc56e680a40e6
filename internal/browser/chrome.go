package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/logging"
)

// opTimeout bounds every single CDP round trip that is not covered by an
// explicit caller-supplied timeout.
const opTimeout = 10 * time.Second

// findPollInterval is the re-probe interval inside Find and WaitUntil.
const findPollInterval = 250 * time.Millisecond

// ChromeOptions configures the real-browser backend.
type ChromeOptions struct {
	// Headless runs Chrome without a visible window.
	Headless bool

	// Stealth disables the automation-controlled blink feature, which naive
	// fingerprinting scripts probe for.
	Stealth bool

	// PageTimeout bounds each navigation including the load event. Zero
	// means 60 seconds.
	PageTimeout time.Duration
}

func (o ChromeOptions) pageLoadTimeout() time.Duration {
	if o.PageTimeout <= 0 {
		return 60 * time.Second
	}
	return o.PageTimeout
}

// ChromeDriver implements Driver on top of a chromedp-managed Chrome
// instance. One ChromeDriver owns one browser context; it must not be shared
// between concurrent flows.
type ChromeDriver struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	pacer       *Pacer
	log         logging.Logger
	pageTimeout time.Duration
}

// chromeElement addresses a located element by selector and match index.
// Snapshot fields are captured at location time.
type chromeElement struct {
	selector string
	index    int
	text     string
	attrs    map[string]string
	visible  bool
}

func (e *chromeElement) Selector() string { return e.selector }
func (e *chromeElement) Text() string     { return e.text }
func (e *chromeElement) Visible() bool    { return e.visible }
func (e *chromeElement) Attr(name string) string {
	return e.attrs[name]
}

// NewChromeDriver starts a Chrome instance and returns a driver bound to it.
// The caller owns the driver and must Close it on every exit path.
func NewChromeDriver(ctx context.Context, opts ChromeOptions, pacer *Pacer, log logging.Logger) (*ChromeDriver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.Stealth {
		allocOpts = append(allocOpts, chromedp.Flag("disable-blink-features", "AutomationControlled"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// force the browser process to start now so failures surface here, not
	// on the first navigation
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	log.Info(ctx, "chrome started", "headless", opts.Headless, "stealth", opts.Stealth)

	return &ChromeDriver{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		pacer:       pacer,
		log:         log,
		pageTimeout: opts.pageLoadTimeout(),
	}, nil
}

func (d *ChromeDriver) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(d.ctx, timeout)
	defer cancel()
	err := chromedp.Run(ctx, actions...)
	if ctx.Err() == context.DeadlineExceeded {
		return common.ErrTimeout
	}
	return err
}

// Navigate loads url, waits for the load event and applies the settle delay.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	d.log.Debug(ctx, "navigate", "url", url)
	if err := d.run(d.pageTimeout, chromedp.Navigate(url)); err != nil {
		d.log.Error(ctx, "navigate failed", "url", url, "err", err)
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	d.pacer.Settle(ctx)
	return nil
}

func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(opTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("current url: %w", err)
	}
	return url, nil
}

// elementSnapshot mirrors the object built by the snapshot script below.
type elementSnapshot struct {
	Text    string            `json:"text"`
	Visible bool              `json:"visible"`
	Attrs   map[string]string `json:"attrs"`
}

// snapshotScript captures text, visibility and attributes per match. The
// value property is overlaid on the attribute map: typed input updates the
// property only, and callers checking whether a field is filled need the
// live value, not the markup default.
func snapshotScript(selector string) string {
	return fmt.Sprintf(`(() => Array.from(document.querySelectorAll(%q)).map(el => {
		const attrs = Object.fromEntries(Array.from(el.attributes).map(a => [a.name, a.value]));
		if (el.value !== undefined) attrs.value = String(el.value);
		return {
			text: (el.innerText || el.value || '').trim(),
			visible: !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length),
			attrs: attrs
		};
	}))()`, selector)
}

func (d *ChromeDriver) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var snaps []elementSnapshot
	if err := d.run(opTimeout, chromedp.Evaluate(snapshotScript(selector), &snaps)); err != nil {
		d.log.Debug(ctx, "find all failed", "selector", selector, "err", err)
		return nil, fmt.Errorf("find all %s: %w", selector, err)
	}

	els := make([]Element, 0, len(snaps))
	for i, s := range snaps {
		els = append(els, &chromeElement{
			selector: selector,
			index:    i,
			text:     s.Text,
			attrs:    s.Attrs,
			visible:  s.Visible,
		})
	}
	return els, nil
}

// Find polls for selector until it matches or timeout expires.
func (d *ChromeDriver) Find(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		els, err := d.FindAll(ctx, selector)
		if err == nil && len(els) > 0 {
			d.log.Debug(ctx, "found", "selector", selector)
			return els[0], nil
		}

		if time.Now().After(deadline) {
			d.log.Debug(ctx, "find timed out", "selector", selector, "timeout", timeout)
			return nil, fmt.Errorf("find %s: %w", selector, common.ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("find %s: %w", selector, common.ErrTimeout)
		case <-time.After(findPollInterval):
		}
	}
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Click performs a real mouse click at the element's center; if that fails
// (occlusion, stale handle, detached node) it falls back to exactly one
// synthetic DOM click before surfacing the error.
func (d *ChromeDriver) Click(ctx context.Context, el Element) error {
	ce, ok := el.(*chromeElement)
	if !ok {
		return fmt.Errorf("click: foreign element handle")
	}

	d.pacer.Settle(ctx)

	err := d.mouseClick(ce)
	if err == nil {
		d.log.Debug(ctx, "clicked", "selector", ce.selector, "index", ce.index)
		return nil
	}

	d.log.Warn(ctx, "primary click failed, trying synthetic click",
		"selector", ce.selector, "index", ce.index, "err", err)

	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) return false;
		el.click();
		return true;
	})()`, ce.selector, ce.index)

	var clicked bool
	if err := d.run(opTimeout, chromedp.Evaluate(js, &clicked)); err != nil {
		return fmt.Errorf("synthetic click %s: %w", ce.selector, err)
	}
	if !clicked {
		d.log.Error(ctx, "element vanished before click", "selector", ce.selector, "index", ce.index)
		return fmt.Errorf("click %s: %w", ce.selector, common.ErrLayoutMismatch)
	}
	return nil
}

func (d *ChromeDriver) mouseClick(ce *chromeElement) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) return null;
		el.scrollIntoView({block: 'center'});
		const r = el.getBoundingClientRect();
		return {x: r.x + r.width / 2, y: r.y + r.height / 2};
	})()`, ce.selector, ce.index)

	var p *point
	if err := d.run(opTimeout, chromedp.Evaluate(js, &p)); err != nil {
		return err
	}
	if p == nil {
		return common.ErrLayoutMismatch
	}

	return d.run(opTimeout, chromedp.MouseClickXY(p.X, p.Y))
}

// TypeText focuses el and sends text one character at a time with randomized
// inter-character delays.
func (d *ChromeDriver) TypeText(ctx context.Context, el Element, text string) error {
	ce, ok := el.(*chromeElement)
	if !ok {
		return fmt.Errorf("type: foreign element handle")
	}

	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) return false;
		el.focus();
		return true;
	})()`, ce.selector, ce.index)

	var focused bool
	if err := d.run(opTimeout, chromedp.Evaluate(js, &focused)); err != nil {
		return fmt.Errorf("focus %s: %w", ce.selector, err)
	}
	if !focused {
		return fmt.Errorf("focus %s: %w", ce.selector, common.ErrLayoutMismatch)
	}

	for _, r := range text {
		if err := d.run(opTimeout, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("type into %s: %w", ce.selector, err)
		}
		d.pacer.KeyDelay(ctx)
	}

	d.log.Debug(ctx, "typed", "selector", ce.selector, "chars", len(text))
	return nil
}

func (d *ChromeDriver) SetFile(ctx context.Context, el Element, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := d.run(opTimeout, chromedp.SetUploadFiles(el.Selector(), []string{abs})); err != nil {
		d.log.Error(ctx, "file upload failed", "selector", el.Selector(), "err", err)
		return fmt.Errorf("set file %s: %w", el.Selector(), err)
	}
	d.log.Info(ctx, "resume attached", "file", filepath.Base(abs))
	return nil
}

func (d *ChromeDriver) ScrollIntoView(ctx context.Context, el Element) error {
	ce, ok := el.(*chromeElement)
	if !ok {
		return fmt.Errorf("scroll: foreign element handle")
	}
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		return true;
	})()`, ce.selector, ce.index)

	var ok2 bool
	if err := d.run(opTimeout, chromedp.Evaluate(js, &ok2)); err != nil {
		return fmt.Errorf("scroll to %s: %w", ce.selector, err)
	}
	if !ok2 {
		return fmt.Errorf("scroll to %s: %w", ce.selector, common.ErrLayoutMismatch)
	}
	return nil
}

func (d *ChromeDriver) ScrollToBottom(ctx context.Context) error {
	var ignored bool
	err := d.run(opTimeout, chromedp.Evaluate(
		`(() => { window.scrollTo(0, document.body.scrollHeight); return true; })()`, &ignored))
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	d.pacer.Settle(ctx)
	return nil
}

// WaitUntil polls pred every findPollInterval until it returns true or
// timeout expires.
func (d *ChromeDriver) WaitUntil(ctx context.Context, timeout time.Duration, pred func(ctx context.Context) bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if pred(ctx) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(findPollInterval):
		}
	}
}

func (d *ChromeDriver) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := d.run(opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	return out, nil
}

func (d *ChromeDriver) SetCookies(ctx context.Context, cookies []Cookie) error {
	err := d.run(opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				p = p.WithExpires(&exp)
			}
			if err := p.Do(ctx); err != nil {
				// one bad cookie must not block the rest of the session
				d.log.Warn(ctx, "skipping cookie", "name", c.Name, "err", err)
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	d.log.Info(ctx, "session cookies installed", "count", len(cookies))
	return nil
}

// Close shuts the browser down. The error from chromedp.Cancel is reported
// but the allocator is always released.
func (d *ChromeDriver) Close(ctx context.Context) error {
	err := chromedp.Cancel(d.ctx)
	d.cancel()
	d.allocCancel()
	if err != nil && !strings.Contains(err.Error(), "context canceled") {
		d.log.Warn(ctx, "chrome shutdown", "err", err)
		return err
	}
	d.log.Info(ctx, "chrome closed")
	return nil
}
