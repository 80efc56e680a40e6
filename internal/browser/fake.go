package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avolkovs/applybot/internal/common"
)

// FakeElement is the fake backend's element: a fixed snapshot configured by
// the test. Sel is the handle reported by Selector; Set fills it with the
// query selector when left empty, so tests may assign a short alias instead.
type FakeElement struct {
	Sel       string
	TextValue string
	Attrs     map[string]string
	Hidden    bool
}

func (e *FakeElement) Selector() string { return e.Sel }
func (e *FakeElement) Text() string     { return e.TextValue }
func (e *FakeElement) Visible() bool    { return !e.Hidden }
func (e *FakeElement) Attr(name string) string {
	return e.Attrs[name]
}

// fakePollGranularity converts a wait budget into a bounded number of
// scripted polls, so fake waits consume zero wall-clock time while still
// honoring relative timeout lengths.
const fakePollGranularity = 100 * time.Millisecond

// Fake is a deterministic in-memory Driver backend: a flat selector->elements
// map plus scripted reactions. Waits never sleep; each poll iteration invokes
// the OnPoll hook so tests can simulate asynchronous page changes (an
// operator completing a challenge, a modal advancing) at an exact poll count.
//
// All mutators are safe for use from OnClick/OnPoll hooks.
type Fake struct {
	mu sync.Mutex

	dom map[string][]*FakeElement

	// URL mimics the address bar; Navigate records into NavLog and sets it.
	URL    string
	NavLog []string

	// Clicked records every clicked selector in order. OnClick hooks run
	// after recording and may mutate the DOM.
	Clicked []string
	OnClick map[string]func(f *Fake)

	// Typed records text entered per selector.
	Typed map[string][]string

	// Uploads records file paths attached to upload controls.
	Uploads []string

	// OnPoll runs once per wait iteration inside Find and WaitUntil.
	OnPoll func(f *Fake)

	// NavigateErr, when set, fails every Navigate call.
	NavigateErr error

	// Scrolls counts ScrollToBottom calls.
	Scrolls int

	CookieJar []Cookie
	Closed    bool
}

// NewFake returns an empty fake driver.
func NewFake() *Fake {
	return &Fake{
		dom:     make(map[string][]*FakeElement),
		OnClick: make(map[string]func(f *Fake)),
		Typed:   make(map[string][]string),
	}
}

// Set replaces the elements matching selector.
func (f *Fake) Set(selector string, els ...*FakeElement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range els {
		if e.Sel == "" {
			e.Sel = selector
		}
	}
	f.dom[selector] = els
}

// SetText is shorthand for a single visible element with the given text.
func (f *Fake) SetText(selector, text string) {
	f.Set(selector, &FakeElement{TextValue: text})
}

// Remove deletes all elements matching selector.
func (f *Fake) Remove(selector string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.dom, selector)
}

// Has reports whether selector currently matches anything.
func (f *Fake) Has(selector string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dom[selector]) > 0
}

// ClickCount returns how many times selector was clicked.
func (f *Fake) ClickCount(selector string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.Clicked {
		if s == selector {
			n++
		}
	}
	return n
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	f.URL = url
	f.NavLog = append(f.NavLog, url)
	return nil
}

func (f *Fake) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URL, nil
}

func (f *Fake) FindAll(ctx context.Context, selector string) ([]Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	els := make([]Element, 0, len(f.dom[selector]))
	for _, e := range f.dom[selector] {
		els = append(els, e)
	}
	return els, nil
}

func (f *Fake) polls(timeout time.Duration) int {
	n := int(timeout / fakePollGranularity)
	if n < 1 {
		n = 1
	}
	return n
}

func (f *Fake) Find(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	for i := 0; i < f.polls(timeout); i++ {
		els, _ := f.FindAll(ctx, selector)
		if len(els) > 0 {
			return els[0], nil
		}
		f.poll()
	}
	return nil, fmt.Errorf("find %s: %w", selector, common.ErrTimeout)
}

func (f *Fake) Click(ctx context.Context, el Element) error {
	f.mu.Lock()
	f.Clicked = append(f.Clicked, el.Selector())
	hook := f.OnClick[el.Selector()]
	f.mu.Unlock()

	if hook != nil {
		hook(f)
	}
	return nil
}

// TypeText records the text and appends it to the element's value attribute,
// mirroring how key input accumulates in a real field.
func (f *Fake) TypeText(ctx context.Context, el Element, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Typed[el.Selector()] = append(f.Typed[el.Selector()], text)
	if fe, ok := el.(*FakeElement); ok {
		if fe.Attrs == nil {
			fe.Attrs = make(map[string]string)
		}
		fe.Attrs["value"] += text
	}
	return nil
}

func (f *Fake) SetFile(ctx context.Context, el Element, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads = append(f.Uploads, path)
	return nil
}

func (f *Fake) ScrollIntoView(ctx context.Context, el Element) error { return nil }

func (f *Fake) ScrollToBottom(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scrolls++
	return nil
}

func (f *Fake) WaitUntil(ctx context.Context, timeout time.Duration, pred func(ctx context.Context) bool) bool {
	for i := 0; i < f.polls(timeout); i++ {
		if pred(ctx) {
			return true
		}
		f.poll()
	}
	return pred(ctx)
}

func (f *Fake) poll() {
	f.mu.Lock()
	hook := f.OnPoll
	f.mu.Unlock()
	if hook != nil {
		hook(f)
	}
}

func (f *Fake) Cookies(ctx context.Context) ([]Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Cookie(nil), f.CookieJar...), nil
}

func (f *Fake) SetCookies(ctx context.Context, cookies []Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CookieJar = append(f.CookieJar, cookies...)
	return nil
}

func (f *Fake) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
