package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var sampleInput = GradeInput{
	Rubric:    "1.a) 0; not related, 1; somewhat related, 2; correct",
	Questions: "1.a) Explain recursion.",
	Answer:    "Question: 1.a\nAnswer: a function calling itself",
}

func TestGradeReturnsRawText(t *testing.T) {
	raw := "```json\n{\"results\": []}\n```"
	g := &fakeGemini{response: textResponse(raw, genai.FinishReasonStop)}

	got, err := NewGrader(g, "grade-model", zerolog.Nop()).Grade(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	assert.Equal(t, "grade-model", g.lastModel)
	assert.InDelta(t, 0.1, *g.lastCfg.Temperature, 1e-6)
	require.Len(t, g.lastCfg.SafetySettings, 4)
	for _, s := range g.lastCfg.SafetySettings {
		assert.Equal(t, genai.HarmBlockThresholdBlockNone, s.Threshold)
	}
}

func TestGradeBlockedWhenNoCandidates(t *testing.T) {
	g := &fakeGemini{response: &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}}

	_, err := NewGrader(g, "m", zerolog.Nop()).Grade(context.Background(), sampleInput)

	var genErr *apperror.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, apperror.ErrGenerationBlocked)
	assert.Equal(t, "SAFETY", genErr.BlockReason)
	assert.Contains(t, err.Error(), "blocked-by-safety-filter")
}

func TestGradeIncompleteCarriesFinishReason(t *testing.T) {
	resp := textResponse("{\"results\": [", genai.FinishReasonMaxTokens)
	resp.Candidates[0].SafetyRatings = []*genai.SafetyRating{{
		Category:    genai.HarmCategoryHarassment,
		Probability: genai.HarmProbabilityLow,
	}}
	g := &fakeGemini{response: resp}

	_, err := NewGrader(g, "m", zerolog.Nop()).Grade(context.Background(), sampleInput)

	var genErr *apperror.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, apperror.ErrGenerationIncomplete)
	assert.Equal(t, "MAX_TOKENS", genErr.FinishReason)
	assert.Equal(t, []string{"HARM_CATEGORY_HARASSMENT=LOW"}, genErr.SafetyRatings)
}

func TestGradeTransportError(t *testing.T) {
	g := &fakeGemini{genErr: errors.New("dial tcp: timeout")}

	_, err := NewGrader(g, "m", zerolog.Nop()).Grade(context.Background(), sampleInput)
	assert.ErrorIs(t, err, apperror.ErrGenerationException)
	assert.Contains(t, err.Error(), "generation-exception")
}

func TestBuildGradingPrompt(t *testing.T) {
	prompt := BuildGradingPrompt(sampleInput)

	assert.Contains(t, prompt, sampleInput.Rubric)
	assert.Contains(t, prompt, sampleInput.Questions)
	assert.Contains(t, prompt, sampleInput.Answer)
	assert.Contains(t, prompt, "1.a, 1.b")
	assert.Contains(t, prompt, `"question_id"`)
	assert.Contains(t, prompt, `"overall_feedback"`)
	assert.Contains(t, prompt, `"total_score"`)
	assert.Contains(t, prompt, "Do not invent new scales")

	withoutQuestions := BuildGradingPrompt(GradeInput{Rubric: "r", Answer: "a"})
	assert.Contains(t, withoutQuestions, missingQuestions)
}
