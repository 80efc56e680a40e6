// Package apply drives the multi-step application surface for one job
// posting. The flow is a bounded state machine:
//
//	Start -> ButtonLocated -> ModalOpen -> step loop -> {Submitted | Failed}
//
// with two short-circuit outcomes before the loop starts: Skipped when the
// posting reports an existing application, NotApplicable when it has no
// apply affordance. Every iteration of the loop is capped by the step
// budget, so worst-case runtime is bounded regardless of what the page does.
//
// Outcomes are data, not errors: Apply always returns a Result and the
// caller switches on Result.Outcome.
package apply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avolkovs/applybot/internal/ai"
	"github.com/avolkovs/applybot/internal/browser"
	"github.com/avolkovs/applybot/internal/logging"
	"github.com/avolkovs/applybot/internal/models"
)

// ActionButton is one candidate modal control: a selector plus the action
// vocabulary a visible match must carry in its text or accessible label.
type ActionButton struct {
	Selector   string
	Vocabulary []string
}

// Selectors names the application-surface landmarks.
type Selectors struct {
	ApplyButton    string
	AlreadyApplied string

	// SuccessLandmark and SuccessFragments together form the terminal
	// success indicator: the landmark must be present and carry one of the
	// fragments.
	SuccessLandmark  string
	SuccessFragments []string

	// ActionButtons is probed in priority order each step.
	ActionButtons []ActionButton

	TextInputs      string
	QuestionSection string
	QuestionLabel   string
	ResumeUpload    string
}

// DefaultSelectors returns the selector set for the supported job board.
func DefaultSelectors() Selectors {
	return Selectors{
		ApplyButton:      "button[data-control-name='jobdetails_topcard_inapply']",
		AlreadyApplied:   ".jobs-apply-button--applied",
		SuccessLandmark:  ".artdeco-inline-feedback--success",
		SuccessFragments: []string{"application submitted", "applied", "success"},
		ActionButtons: []ActionButton{
			{Selector: "button[aria-label='Submit application']", Vocabulary: []string{"submit"}},
			{Selector: "button[aria-label='Continue to next step']", Vocabulary: []string{"next", "continue"}},
			{Selector: "button[aria-label='Review your application']", Vocabulary: []string{"review"}},
			{Selector: ".jobs-easy-apply-modal footer button", Vocabulary: []string{"submit", "next", "continue", "review", "apply"}},
		},
		TextInputs:      "input[type='text'], textarea",
		QuestionSection: ".jobs-easy-apply-form-section__custom-fields",
		QuestionLabel:   "label",
		ResumeUpload:    "input[name='resume']",
	}
}

// Result is the terminal report of one flow run.
type Result struct {
	Outcome models.Outcome

	// StepReached counts modal-advance clicks performed.
	StepReached int

	// ErrorDetail names the failure reason for non-submitted outcomes.
	ErrorDetail string

	// Answers are the screening question/answer pairs produced on the way.
	Answers []models.QuestionAnswer
}

// Options tunes one flow instance.
type Options struct {
	Selectors Selectors

	// StepBudget caps modal-advance iterations.
	StepBudget int

	// ProbeTimeout bounds the apply-affordance wait; intra-step probes do
	// not wait at all.
	ProbeTimeout time.Duration
}

// Flow applies to job postings through a browser driver. One Flow owns its
// driver for the duration of a run; instances must not share a driver.
type Flow struct {
	drv   browser.Driver
	pacer *browser.Pacer
	gen   ai.Generator
	log   logging.Logger
	opts  Options
}

// NewFlow wires the flow to its driver, pacer and answer generator.
func NewFlow(drv browser.Driver, pacer *browser.Pacer, gen ai.Generator, log logging.Logger, opts Options) *Flow {
	if opts.Selectors.ApplyButton == "" {
		opts.Selectors = DefaultSelectors()
	}
	if opts.StepBudget <= 0 {
		opts.StepBudget = 10
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	return &Flow{drv: drv, pacer: pacer, gen: gen, log: log, opts: opts}
}

// Apply runs the flow for one posting and reports the terminal Result.
func (f *Flow) Apply(ctx context.Context, job *models.JobRecord, profile models.ApplicantProfile, resumePath string) Result {
	sel := f.opts.Selectors
	f.log.Info(ctx, "applying", "title", job.Title, "company", job.Company, "url", job.URL)

	if err := f.drv.Navigate(ctx, job.URL); err != nil {
		return f.failed(ctx, 0, nil, fmt.Sprintf("navigate: %v", err))
	}
	f.pacer.Settle(ctx)

	if f.present(ctx, sel.AlreadyApplied) {
		f.log.Info(ctx, "already applied, skipping", "url", job.URL)
		return Result{Outcome: models.OutcomeSkipped}
	}

	applyBtn, err := f.drv.Find(ctx, sel.ApplyButton, f.opts.ProbeTimeout)
	if err != nil {
		f.log.Info(ctx, "no apply affordance", "url", job.URL)
		return Result{Outcome: models.OutcomeNotApplicable, ErrorDetail: "no apply affordance"}
	}
	if err := f.clickControl(ctx, applyBtn); err != nil {
		return f.failed(ctx, 0, nil, fmt.Sprintf("open modal: %v", err))
	}

	return f.runSteps(ctx, job, profile, resumePath)
}

// runSteps is the ModalOpen loop. Each iteration checks for the success
// landmark, fills whatever fields the current step shows, then advances via
// the highest-priority actionable control.
func (f *Flow) runSteps(ctx context.Context, job *models.JobRecord, profile models.ApplicantProfile, resumePath string) Result {
	var answers []models.QuestionAnswer
	answered := make(map[string]bool)
	resumeAttached := false
	steps := 0

	for i := 0; i < f.opts.StepBudget; i++ {
		if f.successVisible(ctx) {
			f.log.Info(ctx, "application submitted", "url", job.URL, "steps", steps)
			return Result{Outcome: models.OutcomeSubmitted, StepReached: steps, Answers: answers}
		}

		f.fillProfileFields(ctx, profile)
		answers = f.answerQuestions(ctx, profile, answered, answers)

		if !resumeAttached && resumePath != "" {
			resumeAttached = f.attachResume(ctx, resumePath)
		}

		action := f.findAction(ctx)
		if action == nil {
			return f.failed(ctx, steps, answers, "no actionable control")
		}
		if err := f.clickControl(ctx, action); err != nil {
			return f.failed(ctx, steps, answers, fmt.Sprintf("click %s: %v", action.Selector(), err))
		}
		steps++
		f.log.Debug(ctx, "step advanced", "step", steps, "control", action.Selector())
	}

	// the budget may have been spent on the final submit click
	if f.successVisible(ctx) {
		f.log.Info(ctx, "application submitted", "url", job.URL, "steps", steps)
		return Result{Outcome: models.OutcomeSubmitted, StepReached: steps, Answers: answers}
	}
	return f.failed(ctx, steps, answers, "step budget exhausted")
}

// successVisible reports whether the success landmark is present with one of
// the expected text fragments.
func (f *Flow) successVisible(ctx context.Context) bool {
	els, err := f.drv.FindAll(ctx, f.opts.Selectors.SuccessLandmark)
	if err != nil {
		return false
	}
	for _, el := range els {
		text := strings.ToLower(el.Text())
		for _, fragment := range f.opts.Selectors.SuccessFragments {
			if strings.Contains(text, fragment) {
				return true
			}
		}
	}
	return false
}

// findAction probes the candidate controls in priority order and returns the
// first visible one whose text or accessible label matches its vocabulary.
func (f *Flow) findAction(ctx context.Context) browser.Element {
	for _, candidate := range f.opts.Selectors.ActionButtons {
		els, err := f.drv.FindAll(ctx, candidate.Selector)
		if err != nil {
			continue
		}
		for _, el := range els {
			if !el.Visible() {
				continue
			}
			if matchesVocabulary(el, candidate.Vocabulary) {
				return el
			}
		}
	}
	return nil
}

func matchesVocabulary(el browser.Element, vocabulary []string) bool {
	text := strings.ToLower(el.Text())
	if text == "" {
		text = strings.ToLower(el.Attr("aria-label"))
	}
	for _, word := range vocabulary {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// fillProfileFields matches visible text inputs by accessible label against
// the fixed vocabulary. Unmatched fields are left untouched, not guessed.
func (f *Flow) fillProfileFields(ctx context.Context, profile models.ApplicantProfile) {
	els, err := f.drv.FindAll(ctx, f.opts.Selectors.TextInputs)
	if err != nil {
		return
	}
	for _, el := range els {
		if el.Attr("value") != "" {
			continue
		}
		label := strings.ToLower(el.Attr("aria-label"))
		var value string
		switch {
		case strings.Contains(label, "years of experience"):
			value = fmt.Sprintf("%d", profile.ExperienceYears)
		case strings.Contains(label, "name"):
			value = profile.Name
		case strings.Contains(label, "email"):
			value = profile.Email
		case strings.Contains(label, "phone"):
			value = profile.Phone
		default:
			continue
		}
		if value == "" {
			continue
		}
		if err := f.drv.TypeText(ctx, el, value); err != nil {
			f.log.Warn(ctx, "could not fill field", "label", label, "err", err)
		}
	}
}

// answerQuestions handles the current step's screening sections. Generation
// failure degrades to an empty answer for that question; it never aborts the
// application.
func (f *Flow) answerQuestions(ctx context.Context, profile models.ApplicantProfile, answered map[string]bool, answers []models.QuestionAnswer) []models.QuestionAnswer {
	sel := f.opts.Selectors
	sections, err := f.drv.FindAll(ctx, sel.QuestionSection)
	if err != nil {
		return answers
	}

	for i := range sections {
		scope := fmt.Sprintf("%s:nth-of-type(%d)", sel.QuestionSection, i+1)
		question := f.scopedText(ctx, scope, sel.QuestionLabel)
		if question == "" || answered[question] {
			continue
		}
		answered[question] = true

		answer, err := f.gen.AnswerQuestion(ctx, question, profile)
		if err != nil {
			f.log.Warn(ctx, "answer generation failed, leaving blank", "question", question, "err", err)
			answer = ""
		}
		answers = append(answers, models.QuestionAnswer{Question: question, Answer: answer})
		if answer == "" {
			continue
		}

		input := f.scopedInput(ctx, scope)
		if input == nil {
			f.log.Warn(ctx, "question has no input", "question", question)
			continue
		}
		if err := f.drv.TypeText(ctx, input, answer); err != nil {
			f.log.Warn(ctx, "could not type answer", "question", question, "err", err)
		}
	}
	return answers
}

func (f *Flow) scopedText(ctx context.Context, scope, selector string) string {
	els, err := f.drv.FindAll(ctx, scope+" "+selector)
	if err != nil || len(els) == 0 {
		return ""
	}
	return strings.TrimSpace(els[0].Text())
}

func (f *Flow) scopedInput(ctx context.Context, scope string) browser.Element {
	for _, kind := range []string{"input", "textarea", "select"} {
		els, err := f.drv.FindAll(ctx, scope+" "+kind)
		if err == nil && len(els) > 0 {
			return els[0]
		}
	}
	return nil
}

// attachResume uploads the resume once if the control is present. Absence of
// the control is not an error.
func (f *Flow) attachResume(ctx context.Context, path string) bool {
	els, err := f.drv.FindAll(ctx, f.opts.Selectors.ResumeUpload)
	if err != nil || len(els) == 0 {
		return false
	}
	if err := f.drv.SetFile(ctx, els[0], path); err != nil {
		f.log.Warn(ctx, "resume upload failed", "err", err)
		return false
	}
	f.log.Info(ctx, "resume attached", "path", path)
	return true
}

// clickControl scrolls the target into view, settles, then clicks.
func (f *Flow) clickControl(ctx context.Context, el browser.Element) error {
	if err := f.drv.ScrollIntoView(ctx, el); err != nil {
		return err
	}
	f.pacer.Settle(ctx)
	return f.drv.Click(ctx, el)
}

func (f *Flow) present(ctx context.Context, selector string) bool {
	els, err := f.drv.FindAll(ctx, selector)
	return err == nil && len(els) > 0
}

func (f *Flow) failed(ctx context.Context, steps int, answers []models.QuestionAnswer, detail string) Result {
	url, _ := f.drv.CurrentURL(ctx)
	f.log.Warn(ctx, "application failed", "reason", detail, "steps", steps, "url", url)
	return Result{
		Outcome:     models.OutcomeFailed,
		StepReached: steps,
		ErrorDetail: detail,
		Answers:     answers,
	}
}
