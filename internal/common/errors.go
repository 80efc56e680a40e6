// Package common defines shared constants and sentinel errors used across
// the bot's components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Driver-level errors. ErrLayoutMismatch means an expected element was
	// absent, i.e. the external site changed its markup; ErrTimeout means a
	// bounded wait expired without the condition becoming true.
	ErrLayoutMismatch = errors.New("layout mismatch")
	ErrTimeout        = errors.New("timeout")

	// Authentication flow errors.
	ErrChallengeUnresolved = errors.New("challenge timeout")
	ErrCredentialsRejected = errors.New("credentials rejected")

	// Application flow outcomes that are errors only in the errors.Is sense;
	// the flow reports them as distinct terminal outcomes, not failures of
	// the process.
	ErrNotApplicable       = errors.New("no apply affordance")
	ErrAlreadyApplied      = errors.New("already applied")
	ErrStepBudgetExhausted = errors.New("step budget exhausted")

	// AI boundary error. Recovered locally with an empty-answer fallback.
	ErrGenerationFailure = errors.New("answer generation failed")

	// Session store error. Recovered locally by starting unauthenticated.
	ErrSessionCorrupt = errors.New("session corrupt")

	// Status transition guard error.
	ErrIllegalTransition = errors.New("illegal status transition")
)
