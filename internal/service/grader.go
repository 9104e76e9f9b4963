package service

import (
	"context"
	"fmt"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

type GradeInput struct {
	Rubric    string
	Questions string
	Answer    string
}

type GraderInterface interface {
	Grade(ctx context.Context, in GradeInput) (string, error)
}

type Grader struct {
	gemini GeminiServiceInterface
	model  string
	logger zerolog.Logger
}

func NewGrader(gemini GeminiServiceInterface, model string, logger zerolog.Logger) *Grader {
	return &Grader{
		gemini: gemini,
		model:  model,
		logger: logger.With().Str("component", "grader").Logger(),
	}
}

// Grade asks the model to score an answer script against the rubric and
// returns the raw completion text. Parsing is left to the caller.
func (g *Grader) Grade(ctx context.Context, in GradeInput) (string, error) {
	resp, err := g.gemini.GenerateContent(ctx, g.model, genai.Text(BuildGradingPrompt(in)), gradingConfig())
	if err != nil {
		g.logger.Error().Err(err).Msg("grading request failed")
		return "", &apperror.GenerationError{Kind: apperror.ErrGenerationException, Err: err}
	}

	text, err := completionText(resp)
	if err != nil {
		g.logger.Warn().Err(err).Msg("grading completion rejected")
		return "", err
	}
	return text, nil
}

func gradingConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
}

// completionText returns the text of a normally finished completion, or a
// GenerationError describing why the completion cannot be used.
func completionText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		genErr := &apperror.GenerationError{Kind: apperror.ErrGenerationBlocked}
		if resp != nil && resp.PromptFeedback != nil {
			genErr.BlockReason = string(resp.PromptFeedback.BlockReason)
			genErr.SafetyRatings = describeRatings(resp.PromptFeedback.SafetyRatings)
		}
		return "", genErr
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != genai.FinishReasonStop {
		return "", &apperror.GenerationError{
			Kind:          apperror.ErrGenerationIncomplete,
			FinishReason:  string(candidate.FinishReason),
			SafetyRatings: describeRatings(candidate.SafetyRatings),
		}
	}
	return resp.Text(), nil
}

func describeRatings(ratings []*genai.SafetyRating) []string {
	out := make([]string, 0, len(ratings))
	for _, r := range ratings {
		if r == nil {
			continue
		}
		desc := fmt.Sprintf("%s=%s", r.Category, r.Probability)
		if r.Blocked {
			desc += " (blocked)"
		}
		out = append(out, desc)
	}
	return out
}
