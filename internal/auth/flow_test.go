package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/applybot/internal/browser"
	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/logging"
	"github.com/avolkovs/applybot/internal/session"
)

func newTestFlow(t *testing.T, fake *browser.Fake) *Flow {
	t.Helper()
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	store, err := session.NewStore(t.TempDir(), "", log)
	require.NoError(t, err)
	return NewFlow(fake, store, log, Options{
		BaseURL:             "https://example.test",
		ProbeTimeout:        100 * time.Millisecond,
		ChallengeWait:       2 * time.Second,
		LandmarkBackoffUnit: time.Nanosecond,
	})
}

func loginForm(fake *browser.Fake) {
	fake.Set("#username", &browser.FakeElement{Sel: "#username"})
	fake.Set("#password", &browser.FakeElement{Sel: "#password"})
	fake.Set("button[type='submit']", &browser.FakeElement{Sel: "button[type='submit']"})
}

func TestEnsureLoggedIn_IdempotentWhenAlreadyAuthenticated(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(".jobs-search-box", &browser.FakeElement{Sel: ".jobs-search-box"})
	loginForm(fake)
	flow := newTestFlow(t, fake)

	res, err := flow.EnsureLoggedIn(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, res.State)
	assert.Equal(t, ".jobs-search-box", res.Landmark)
	assert.Zero(t, fake.ClickCount("button[type='submit']"))
	assert.Empty(t, fake.Typed)
}

func TestEnsureLoggedIn_SubmitsCredentialsAndSucceeds(t *testing.T) {
	fake := browser.NewFake()
	loginForm(fake)
	fake.OnClick = map[string]func(f *browser.Fake){
		"button[type='submit']": func(f *browser.Fake) {
			f.Set(".global-nav", &browser.FakeElement{Sel: ".global-nav"})
		},
	}
	flow := newTestFlow(t, fake)

	res, err := flow.EnsureLoggedIn(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, res.State)
	assert.Equal(t, ".global-nav", res.Landmark)
	assert.Equal(t, 1, fake.ClickCount("button[type='submit']"))
	assert.Equal(t, []string{"a@b.c"}, fake.Typed["#username"])
	assert.Equal(t, []string{"pw"}, fake.Typed["#password"])
}

func TestEnsureLoggedIn_MissingLoginFieldIsLayoutMismatch(t *testing.T) {
	fake := browser.NewFake()
	// no #username on the page
	flow := newTestFlow(t, fake)

	res, err := flow.EnsureLoggedIn(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.ErrorIs(t, err, common.ErrLayoutMismatch)
	assert.Equal(t, StateFailed, res.State)
	assert.NotErrorIs(t, err, common.ErrCredentialsRejected)
}

func TestEnsureLoggedIn_ChallengeCompletedByOperator(t *testing.T) {
	fake := browser.NewFake()
	loginForm(fake)
	fake.OnClick = map[string]func(f *browser.Fake){
		"button[type='submit']": func(f *browser.Fake) {
			f.Set("input[name='pin']", &browser.FakeElement{Sel: "input[name='pin']"})
		},
	}
	// simulate the operator solving the challenge a few polls in
	pollsWithChallenge := 0
	fake.OnPoll = func(f *browser.Fake) {
		if !f.Has("input[name='pin']") {
			return
		}
		pollsWithChallenge++
		if pollsWithChallenge >= 5 {
			f.Remove("input[name='pin']")
			f.Set(".jobs-search-box", &browser.FakeElement{Sel: ".jobs-search-box"})
		}
	}
	flow := newTestFlow(t, fake)

	res, err := flow.EnsureLoggedIn(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, res.State)
	assert.GreaterOrEqual(t, pollsWithChallenge, 5)
}

func TestEnsureLoggedIn_ChallengeTimeout(t *testing.T) {
	fake := browser.NewFake()
	loginForm(fake)
	fake.OnClick = map[string]func(f *browser.Fake){
		"button[type='submit']": func(f *browser.Fake) {
			f.Set("#email-pin-input", &browser.FakeElement{Sel: "#email-pin-input"})
		},
	}
	flow := newTestFlow(t, fake)
	flow.opts.ChallengeWait = 300 * time.Millisecond

	res, err := flow.EnsureLoggedIn(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.ErrorIs(t, err, common.ErrChallengeUnresolved)
	assert.Equal(t, StateFailed, res.State)
}

func TestEnsureLoggedIn_CredentialsRejected(t *testing.T) {
	fake := browser.NewFake()
	loginForm(fake)
	// submit succeeds mechanically but no landmark ever appears
	flow := newTestFlow(t, fake)

	res, err := flow.EnsureLoggedIn(context.Background(), Credentials{Email: "a@b.c", Password: "wrong"})

	require.ErrorIs(t, err, common.ErrCredentialsRejected)
	assert.Equal(t, StateFailed, res.State)
	assert.NotErrorIs(t, err, common.ErrChallengeUnresolved)
}

func TestEnsureLoggedIn_RecheckNavigationFailureKeepsCause(t *testing.T) {
	fake := browser.NewFake()
	loginForm(fake)
	navErr := errors.New("name resolution failed")
	fake.OnClick = map[string]func(f *browser.Fake){
		// the network drops right after the form is submitted, so every
		// recheck navigation fails
		"button[type='submit']": func(f *browser.Fake) {
			f.NavigateErr = navErr
		},
	}
	flow := newTestFlow(t, fake)

	res, err := flow.EnsureLoggedIn(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	require.ErrorIs(t, err, navErr)
	assert.NotErrorIs(t, err, common.ErrCredentialsRejected)
	assert.Equal(t, StateFailed, res.State)
}

func TestEnsureLoggedIn_SavesSessionOnSuccess(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(".jobs-search-box", &browser.FakeElement{Sel: ".jobs-search-box"})
	fake.CookieJar = []browser.Cookie{{Name: "li_at", Value: "tok", Domain: ".example.test"}}

	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	dir := t.TempDir()
	store, err := session.NewStore(dir, "", log)
	require.NoError(t, err)
	flow := NewFlow(fake, store, log, Options{
		BaseURL:      "https://example.test",
		ProbeTimeout: 100 * time.Millisecond,
	})

	_, err = flow.EnsureLoggedIn(context.Background(), Credentials{})
	require.NoError(t, err)

	restored := store.Load(context.Background())
	require.Len(t, restored, 1)
	assert.Equal(t, "li_at", restored[0].Name)
}
