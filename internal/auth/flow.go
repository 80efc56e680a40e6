// Package auth implements the login state machine:
//
//	Unauthenticated -> CredentialsSubmitted -> Authenticated
//	                                       \-> ChallengeRequired -> Authenticated
//	                                       \-> Failed
//
// Re-entry is idempotent: when an authenticated landmark is already present,
// the flow reports success without touching the credential form. The three
// failure causes (layout mismatch, unresolved challenge, rejected
// credentials) stay distinct all the way to the caller.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/avolkovs/applybot/internal/browser"
	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/logging"
	"github.com/avolkovs/applybot/internal/session"
)

// State is the flow's current position in the login state machine.
type State string

const (
	StateUnauthenticated      State = "unauthenticated"
	StateCredentialsSubmitted State = "credentials_submitted"
	StateChallengeRequired    State = "challenge_required"
	StateAuthenticated        State = "authenticated"
	StateFailed               State = "failed"
)

// Selectors names the page landmarks the flow probes. Literals track one
// site's markup at one point in time and are expected to need maintenance.
type Selectors struct {
	// Landmarks indicate an authenticated context; any one is sufficient.
	Landmarks []string

	// LoginPath and HomePath are appended to the base URL.
	LoginPath string
	HomePath  string

	UsernameField string
	PasswordField string
	SubmitButton  string

	// Challenges are the known human-verification inputs (PIN, code,
	// email-pin variants).
	Challenges []string
}

// DefaultSelectors returns the selector set for the supported job board.
func DefaultSelectors() Selectors {
	return Selectors{
		Landmarks: []string{
			".jobs-search-box",
			".global-nav",
			".search-global-typeahead",
		},
		LoginPath:     "/login",
		HomePath:      "/jobs/",
		UsernameField: "#username",
		PasswordField: "#password",
		SubmitButton:  "button[type='submit']",
		Challenges: []string{
			"input[name='pin']",
			"input[name='verification']",
			"#input__email_verification_pin",
			"#email-pin-input",
		},
	}
}

// Credentials carries the two login secrets. Values are typed into the page
// and never logged.
type Credentials struct {
	Email    string
	Password string
}

// Result reports the terminal state with enough context to tell a credential
// problem from a layout change from an abandoned challenge.
type Result struct {
	State          State
	LastURL        string
	Landmark       string
	TriedLandmarks []string
	Cause          error
}

// Options tunes the flow's bounded waits.
type Options struct {
	BaseURL   string
	Selectors Selectors

	// ProbeTimeout bounds each individual landmark or challenge probe.
	ProbeTimeout time.Duration

	// ChallengeWait is the human-in-the-loop window after a challenge input
	// is detected.
	ChallengeWait time.Duration

	// LandmarkBackoffUnit scales the linear backoff between post-submit
	// landmark rechecks (unit x attempt number).
	LandmarkBackoffUnit time.Duration
}

const landmarkRecheckAttempts = 3

// Flow drives a browser session from unauthenticated to authenticated.
type Flow struct {
	drv      browser.Driver
	sessions *session.Store
	log      logging.Logger
	opts     Options
}

// NewFlow wires the flow to a driver and session store.
func NewFlow(drv browser.Driver, sessions *session.Store, log logging.Logger, opts Options) *Flow {
	if len(opts.Selectors.Landmarks) == 0 {
		opts.Selectors = DefaultSelectors()
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.ChallengeWait <= 0 {
		opts.ChallengeWait = 120 * time.Second
	}
	if opts.LandmarkBackoffUnit <= 0 {
		opts.LandmarkBackoffUnit = 5 * time.Second
	}
	return &Flow{drv: drv, sessions: sessions, log: log, opts: opts}
}

// EnsureLoggedIn establishes an authenticated context. It restores a saved
// session first, probes for an authenticated landmark (no-op success when
// found), and otherwise submits credentials and walks the challenge and
// recheck states. On success the fresh session is saved; on failure the
// returned Result carries the distinct cause and the error is non-nil.
func (f *Flow) EnsureLoggedIn(ctx context.Context, creds Credentials) (Result, error) {
	f.log.Info(ctx, "checking login status", "state", StateUnauthenticated)

	if cookies := f.sessions.Load(ctx); len(cookies) > 0 {
		// cookies must be installed before the first same-site navigation
		// to be sent with it
		if err := f.drv.Navigate(ctx, f.opts.BaseURL); err == nil {
			_ = f.drv.SetCookies(ctx, cookies)
		}
	}

	if err := f.drv.Navigate(ctx, f.opts.BaseURL+f.opts.Selectors.HomePath); err != nil {
		return f.failed(ctx, err)
	}

	if landmark, ok := f.probeLandmarks(ctx); ok {
		f.log.Info(ctx, "already authenticated", "landmark", landmark)
		f.saveSession(ctx)
		return f.authenticated(ctx, landmark), nil
	}

	f.log.Info(ctx, "not authenticated, submitting credentials")
	if err := f.submitCredentials(ctx, creds); err != nil {
		return f.failed(ctx, err)
	}
	state := StateCredentialsSubmitted
	f.log.Info(ctx, "state transition", "state", state)

	// fast path: login sometimes completes without any challenge
	if landmark, ok := f.probeLandmarks(ctx); ok {
		f.saveSession(ctx)
		return f.authenticated(ctx, landmark), nil
	}

	if challenge := f.detectChallenge(ctx); challenge != "" {
		state = StateChallengeRequired
		f.log.Warn(ctx, "verification challenge detected, waiting for operator",
			"state", state, "selector", challenge, "window", f.opts.ChallengeWait)

		completed := f.drv.WaitUntil(ctx, f.opts.ChallengeWait, func(ctx context.Context) bool {
			_, ok := f.probeLandmarks(ctx)
			return ok
		})
		if !completed {
			return f.failed(ctx, fmt.Errorf("operator window expired: %w", common.ErrChallengeUnresolved))
		}
		f.log.Info(ctx, "challenge completed by operator")
	}

	landmark, err := f.recheckLandmarks(ctx)
	if err != nil {
		return f.failed(ctx, err)
	}

	f.saveSession(ctx)
	return f.authenticated(ctx, landmark), nil
}

// submitCredentials fills and submits the login form. A missing form field
// is a layout mismatch, which callers must distinguish from rejection.
func (f *Flow) submitCredentials(ctx context.Context, creds Credentials) error {
	sel := f.opts.Selectors

	if err := f.drv.Navigate(ctx, f.opts.BaseURL+sel.LoginPath); err != nil {
		return err
	}

	username, err := f.drv.Find(ctx, sel.UsernameField, f.opts.ProbeTimeout)
	if err != nil {
		return fmt.Errorf("username field %s: %w", sel.UsernameField, common.ErrLayoutMismatch)
	}
	if err := f.drv.TypeText(ctx, username, creds.Email); err != nil {
		return err
	}

	password, err := f.drv.Find(ctx, sel.PasswordField, f.opts.ProbeTimeout)
	if err != nil {
		return fmt.Errorf("password field %s: %w", sel.PasswordField, common.ErrLayoutMismatch)
	}
	if err := f.drv.TypeText(ctx, password, creds.Password); err != nil {
		return err
	}

	submit, err := f.drv.Find(ctx, sel.SubmitButton, f.opts.ProbeTimeout)
	if err != nil {
		return fmt.Errorf("submit button %s: %w", sel.SubmitButton, common.ErrLayoutMismatch)
	}
	return f.drv.Click(ctx, submit)
}

// probeLandmarks checks each authenticated landmark with a short budget and
// returns the first that matched.
func (f *Flow) probeLandmarks(ctx context.Context) (string, bool) {
	for _, landmark := range f.opts.Selectors.Landmarks {
		if _, err := f.drv.Find(ctx, landmark, f.opts.ProbeTimeout); err == nil {
			return landmark, true
		}
	}
	return "", false
}

// detectChallenge returns the first known challenge input present, or "".
func (f *Flow) detectChallenge(ctx context.Context) string {
	for _, selector := range f.opts.Selectors.Challenges {
		els, err := f.drv.FindAll(ctx, selector)
		if err == nil && len(els) > 0 {
			return selector
		}
	}
	return ""
}

// recheckLandmarks retries the landmark probe with linearly increasing
// backoff (unit x attempt). Exhaustion with the page loading but no landmark
// means the credentials were rejected: the form existed and no challenge is
// pending, so layout and challenge causes are already excluded. A navigation
// failure keeps its own cause.
func (f *Flow) recheckLandmarks(ctx context.Context) (string, error) {
	attempt := 0
	backoff := retry.WithMaxRetries(landmarkRecheckAttempts-1, retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * f.opts.LandmarkBackoffUnit, false
	}))

	var landmark string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := f.drv.Navigate(ctx, f.opts.BaseURL+f.opts.Selectors.HomePath); err != nil {
			return retry.RetryableError(err)
		}
		found, ok := f.probeLandmarks(ctx)
		if !ok {
			f.log.Warn(ctx, "no authenticated landmark yet", "attempt", attempt+1)
			return retry.RetryableError(common.ErrCredentialsRejected)
		}
		landmark = found
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("landmark recheck exhausted: %w", err)
	}
	return landmark, nil
}

func (f *Flow) saveSession(ctx context.Context) {
	cookies, err := f.drv.Cookies(ctx)
	if err != nil {
		f.log.Warn(ctx, "could not read cookies for session save", "err", err)
		return
	}
	if err := f.sessions.Save(ctx, cookies); err != nil {
		f.log.Warn(ctx, "session save failed", "err", err)
	}
}

func (f *Flow) authenticated(ctx context.Context, landmark string) Result {
	url, _ := f.drv.CurrentURL(ctx)
	f.log.Info(ctx, "state transition", "state", StateAuthenticated, "landmark", landmark)
	return Result{
		State:          StateAuthenticated,
		LastURL:        url,
		Landmark:       landmark,
		TriedLandmarks: f.opts.Selectors.Landmarks,
	}
}

func (f *Flow) failed(ctx context.Context, cause error) (Result, error) {
	url, _ := f.drv.CurrentURL(ctx)
	f.log.Error(ctx, "login failed", "state", StateFailed, "url", url,
		"layout_mismatch", errors.Is(cause, common.ErrLayoutMismatch),
		"challenge_unresolved", errors.Is(cause, common.ErrChallengeUnresolved),
		"err", cause)
	return Result{
		State:          StateFailed,
		LastURL:        url,
		TriedLandmarks: f.opts.Selectors.Landmarks,
		Cause:          cause,
	}, cause
}
