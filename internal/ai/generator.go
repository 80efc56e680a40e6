// Package ai produces short free-text answers for screening questions that
// the fixed profile vocabulary cannot cover.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/logging"
	"github.com/avolkovs/applybot/internal/models"
)

// Generator answers one screening question given applicant context. A failed
// generation returns common.ErrGenerationFailure; the application flow falls
// back to an empty answer rather than aborting the attempt.
type Generator interface {
	AnswerQuestion(ctx context.Context, question string, profile models.ApplicantProfile) (string, error)
}

// GeminiGenerator generates answers through the Gemini API.
type GeminiGenerator struct {
	model llms.Model
	log   logging.Logger
}

// NewGeminiGenerator builds a generator backed by the given API key.
func NewGeminiGenerator(ctx context.Context, apiKey string, log logging.Logger) (*GeminiGenerator, error) {
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel("gemini-2.5-flash"),
	)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiGenerator{model: model, log: log}, nil
}

// AnswerQuestion prompts the model with the question and the applicant's
// background and returns a single-line answer.
func (g *GeminiGenerator) AnswerQuestion(ctx context.Context, question string, profile models.ApplicantProfile) (string, error) {
	prompt := fmt.Sprintf(
		"You are filling out a job application on behalf of a candidate.\n"+
			"Candidate background: %s\n"+
			"Years of experience: %d\n"+
			"Answer the following application question briefly and professionally, "+
			"in one or two sentences, with no preamble:\n%s",
		profile.Experience, profile.ExperienceYears, question)

	answer, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt)
	if err != nil {
		g.log.Warn(ctx, "answer generation failed", "err", err)
		return "", fmt.Errorf("generate answer: %w", common.ErrGenerationFailure)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("empty completion: %w", common.ErrGenerationFailure)
	}
	return answer, nil
}

// StaticGenerator returns canned answers by exact question match, with a
// default for everything else. Useful offline and in tests.
type StaticGenerator struct {
	Answers map[string]string
	Default string
	Err     error
}

func (s *StaticGenerator) AnswerQuestion(ctx context.Context, question string, _ models.ApplicantProfile) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if a, ok := s.Answers[question]; ok {
		return a, nil
	}
	return s.Default, nil
}
