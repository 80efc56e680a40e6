// Package browser defines the capability interface the bot uses to interact
// with a page: navigate, locate, click, type, wait. Two backends implement
// it: a chromedp-driven real browser and a deterministic fake for tests.
//
// Every operation is bounded by an explicit timeout or by the caller's
// context; no driver call may hang indefinitely. Operations return typed
// errors (common.ErrTimeout, common.ErrLayoutMismatch) instead of panicking,
// and log their outcome internally so operators can diagnose selector drift.
package browser

import (
	"context"
	"time"
)

// Element is a handle to a located DOM element. Handles are snapshots: text,
// attributes and visibility are captured at location time and a handle may go
// stale if the page re-renders, in which case actions on it fail and the
// caller re-locates.
type Element interface {
	// Selector returns the query that located this element.
	Selector() string

	// Text returns the element's visible text, trimmed.
	Text() string

	// Attr returns the value of the named attribute, or "" if absent.
	Attr(name string) string

	// Visible reports whether the element was rendered and displayable when
	// located.
	Visible() bool
}

// Cookie is one browser cookie, serializable for the session store.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
}

// Driver is the page-interaction capability consumed by the auth, discovery
// and application flows.
type Driver interface {
	// Navigate loads url and applies the settle delay.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// Find waits up to timeout for at least one element matching selector
	// and returns the first. Expiry returns common.ErrTimeout.
	Find(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// FindAll returns all elements currently matching selector, without
	// waiting. An empty slice is not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// Click performs the primary click on el; on interception or failure it
	// falls back to exactly one synthetic click before surfacing the error.
	Click(ctx context.Context, el Element) error

	// TypeText inserts text into el character by character with randomized
	// inter-character delays.
	TypeText(ctx context.Context, el Element, text string) error

	// SetFile attaches the file at path to the upload control el.
	SetFile(ctx context.Context, el Element, path string) error

	// ScrollIntoView brings el into the viewport.
	ScrollIntoView(ctx context.Context, el Element) error

	// ScrollToBottom scrolls the page to its current bottom, triggering
	// lazy-loaded content.
	ScrollToBottom(ctx context.Context) error

	// WaitUntil polls pred until it returns true or timeout expires, and
	// reports which happened.
	WaitUntil(ctx context.Context, timeout time.Duration, pred func(ctx context.Context) bool) bool

	// Cookies returns the browser's current cookies.
	Cookies(ctx context.Context) ([]Cookie, error)

	// SetCookies installs cookies into the browser session.
	SetCookies(ctx context.Context, cookies []Cookie) error

	// Close releases the underlying browser. Safe to call once per driver;
	// the owner calls it on every exit path.
	Close(ctx context.Context) error
}
