package models

import "time"

// Outcome is the terminal result of one application flow run.
type Outcome string

const (
	// OutcomeSubmitted means the success landmark was observed.
	OutcomeSubmitted Outcome = "submitted"
	// OutcomeSkipped means an "already applied" landmark was present before
	// any step ran.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNotApplicable means the posting had no apply affordance.
	OutcomeNotApplicable Outcome = "not_applicable"
	// OutcomeFailed means the flow terminated without a success landmark.
	OutcomeFailed Outcome = "failed"
)

// ApplicationAttempt is one append-only log entry per application flow run.
// Many attempts may reference the same JobRecord (retries on later runs).
type ApplicationAttempt struct {
	// ID is a UUID assigned at creation.
	ID string

	// JobURL references the JobRecord by its unique key.
	JobURL string

	// Outcome is the flow's terminal result.
	Outcome Outcome

	// StepReached is the number of modal steps completed before termination.
	StepReached int

	// ErrorDetail carries diagnosis context (last URL, failed selector) for
	// non-submitted outcomes; empty on success.
	ErrorDetail string

	// Answers holds the screening question/answer pairs generated during the
	// attempt, kept for audit.
	Answers []QuestionAnswer

	// CreatedAt is the attempt timestamp, in UTC.
	CreatedAt time.Time
}

// QuestionAnswer is a transient screening question and its generated answer.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
