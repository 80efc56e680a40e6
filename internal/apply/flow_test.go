package apply

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/applybot/internal/ai"
	"github.com/avolkovs/applybot/internal/browser"
	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/logging"
	"github.com/avolkovs/applybot/internal/models"
)

const (
	applyBtn  = "button[data-control-name='jobdetails_topcard_inapply']"
	nextBtn   = "button[aria-label='Continue to next step']"
	submitBtn = "button[aria-label='Submit application']"
	success   = ".artdeco-inline-feedback--success"
)

func testJob() *models.JobRecord {
	return &models.JobRecord{
		URL:     "https://example.test/jobs/view/1",
		Title:   "Data Engineer",
		Company: "Acme",
		Status:  models.StatusApplying,
	}
}

func testProfile() models.ApplicantProfile {
	return models.ApplicantProfile{
		Name:            "Alex Doe",
		Email:           "alex@example.test",
		Phone:           "+1 555 0100",
		ExperienceYears: 4,
		Experience:      "Four years of data pipeline work.",
	}
}

func newTestFlow(fake *browser.Fake, gen ai.Generator, budget int) *Flow {
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	if gen == nil {
		gen = &ai.StaticGenerator{Default: "Generated answer."}
	}
	return NewFlow(fake, browser.NewPacer(0, 0, 0, 0), gen, log, Options{
		StepBudget:   budget,
		ProbeTimeout: 100 * time.Millisecond,
	})
}

func TestApply_AlreadyAppliedIsSkippedWithZeroSteps(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(".jobs-apply-button--applied", &browser.FakeElement{Sel: ".jobs-apply-button--applied"})
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})

	res := newTestFlow(fake, nil, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeSkipped, res.Outcome)
	assert.Zero(t, res.StepReached)
	assert.Empty(t, fake.Clicked)
}

func TestApply_NoAffordanceIsNotApplicable(t *testing.T) {
	fake := browser.NewFake()

	res := newTestFlow(fake, nil, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeNotApplicable, res.Outcome)
	assert.Equal(t, "no apply affordance", res.ErrorDetail)
}

func TestApply_MultiStepSuccess(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	fake.OnClick = map[string]func(f *browser.Fake){
		applyBtn: func(f *browser.Fake) {
			f.Set(nextBtn, &browser.FakeElement{Sel: nextBtn, TextValue: "Next"})
		},
		nextBtn: func(f *browser.Fake) {
			f.Remove(nextBtn)
			f.Set(submitBtn, &browser.FakeElement{Sel: submitBtn, TextValue: "Submit application"})
		},
		submitBtn: func(f *browser.Fake) {
			f.Set(success, &browser.FakeElement{Sel: success, TextValue: "Application submitted!"})
		},
	}

	res := newTestFlow(fake, nil, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeSubmitted, res.Outcome)
	assert.Equal(t, 2, res.StepReached)
	assert.Equal(t, 1, fake.ClickCount(nextBtn))
	assert.Equal(t, 1, fake.ClickCount(submitBtn))
}

func TestApply_StepBudgetExhaustedAtExactCount(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	// the modal never progresses and never shows a success landmark
	fake.Set(nextBtn, &browser.FakeElement{Sel: nextBtn, TextValue: "Next"})

	res := newTestFlow(fake, nil, 3).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Equal(t, "step budget exhausted", res.ErrorDetail)
	assert.Equal(t, 3, res.StepReached)
	assert.Equal(t, 3, fake.ClickCount(nextBtn))
}

func TestApply_NoActionableControl(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	// a visible button outside the action vocabulary must not be clicked
	fake.Set(nextBtn, &browser.FakeElement{Sel: nextBtn, TextValue: "Cancel"})

	res := newTestFlow(fake, nil, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Equal(t, "no actionable control", res.ErrorDetail)
	assert.Zero(t, res.StepReached)
	assert.Zero(t, fake.ClickCount(nextBtn))
}

func TestApply_HiddenControlIsNotActionable(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	fake.Set(nextBtn, &browser.FakeElement{Sel: nextBtn, TextValue: "Next", Hidden: true})

	res := newTestFlow(fake, nil, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Equal(t, "no actionable control", res.ErrorDetail)
}

func TestApply_FillsRecognizedFieldsOnly(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	fake.Set("input[type='text'], textarea",
		&browser.FakeElement{Sel: "years", Attrs: map[string]string{"aria-label": "Years of experience"}},
		&browser.FakeElement{Sel: "email", Attrs: map[string]string{"aria-label": "Email address"}},
		&browser.FakeElement{Sel: "shoe", Attrs: map[string]string{"aria-label": "Shoe size"}},
	)

	res := newTestFlow(fake, nil, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Equal(t, []string{"4"}, fake.Typed["years"])
	assert.Equal(t, []string{"alex@example.test"}, fake.Typed["email"])
	assert.NotContains(t, fake.Typed, "shoe")
}

func TestApply_DoesNotRetypeFilledFieldOnStalledStep(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	// the modal never advances, so the same field is seen every iteration
	fake.Set(nextBtn, &browser.FakeElement{Sel: nextBtn, TextValue: "Next"})
	fake.Set("input[type='text'], textarea",
		&browser.FakeElement{Sel: "email", Attrs: map[string]string{"aria-label": "Email address"}})

	newTestFlow(fake, nil, 3).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, 3, fake.ClickCount(nextBtn))
	assert.Equal(t, []string{"alex@example.test"}, fake.Typed["email"],
		"a field filled on an earlier iteration must not be typed into again")
}

func TestApply_GenerationFailureFallsBackToEmptyAnswer(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	fake.Set(".jobs-easy-apply-form-section__custom-fields",
		&browser.FakeElement{Sel: ".jobs-easy-apply-form-section__custom-fields"})
	fake.Set(".jobs-easy-apply-form-section__custom-fields:nth-of-type(1) label",
		&browser.FakeElement{Sel: "q-label", TextValue: "Why this role?"})
	fake.Set(".jobs-easy-apply-form-section__custom-fields:nth-of-type(1) input",
		&browser.FakeElement{Sel: "q-input"})
	fake.OnClick = map[string]func(f *browser.Fake){
		submitBtn: func(f *browser.Fake) {
			f.Set(success, &browser.FakeElement{Sel: success, TextValue: "Success"})
		},
	}
	fake.Set(submitBtn, &browser.FakeElement{Sel: submitBtn, TextValue: "Submit application"})

	gen := &ai.StaticGenerator{Err: common.ErrGenerationFailure}
	res := newTestFlow(fake, gen, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeSubmitted, res.Outcome)
	require.Len(t, res.Answers, 1)
	assert.Equal(t, "Why this role?", res.Answers[0].Question)
	assert.Equal(t, "", res.Answers[0].Answer)
	assert.NotContains(t, fake.Typed, "q-input")
}

func TestApply_AnswersQuestionAndTypesIt(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	fake.Set(".jobs-easy-apply-form-section__custom-fields",
		&browser.FakeElement{Sel: ".jobs-easy-apply-form-section__custom-fields"})
	fake.Set(".jobs-easy-apply-form-section__custom-fields:nth-of-type(1) label",
		&browser.FakeElement{Sel: "q-label", TextValue: "Why this role?"})
	fake.Set(".jobs-easy-apply-form-section__custom-fields:nth-of-type(1) input",
		&browser.FakeElement{Sel: "q-input"})
	fake.Set(submitBtn, &browser.FakeElement{Sel: submitBtn, TextValue: "Submit application"})
	fake.OnClick = map[string]func(f *browser.Fake){
		submitBtn: func(f *browser.Fake) {
			f.Set(success, &browser.FakeElement{Sel: success, TextValue: "Application submitted"})
		},
	}

	gen := &ai.StaticGenerator{Answers: map[string]string{"Why this role?": "Pipelines are my thing."}}
	res := newTestFlow(fake, gen, 10).Apply(context.Background(), testJob(), testProfile(), "")

	assert.Equal(t, models.OutcomeSubmitted, res.Outcome)
	assert.Equal(t, []string{"Pipelines are my thing."}, fake.Typed["q-input"])
	require.Len(t, res.Answers, 1)
}

func TestApply_AttachesResumeOnce(t *testing.T) {
	fake := browser.NewFake()
	fake.Set(applyBtn, &browser.FakeElement{Sel: applyBtn})
	fake.Set("input[name='resume']", &browser.FakeElement{Sel: "input[name='resume']"})
	fake.Set(nextBtn, &browser.FakeElement{Sel: nextBtn, TextValue: "Next"})

	res := newTestFlow(fake, nil, 3).Apply(context.Background(), testJob(), testProfile(), "/tmp/resume.pdf")

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Equal(t, []string{"/tmp/resume.pdf"}, fake.Uploads)
}
