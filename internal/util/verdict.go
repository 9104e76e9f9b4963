package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/model"
	"github.com/tidwall/gjson"
)

// ResultParseError keeps the raw grader output so it can still be logged or
// stored when it is not usable JSON.
type ResultParseError struct {
	Raw string
	Err error
}

func (e *ResultParseError) Error() string {
	return fmt.Sprintf("%s: %v", apperror.ErrResultParse, e.Err)
}

func (e *ResultParseError) Unwrap() []error {
	return []error{apperror.ErrResultParse, e.Err}
}

// StripCodeFence removes surrounding whitespace and an optional ```json ... ```
// fence from model output.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
		s = strings.TrimSpace(s)
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseVerdict turns raw grader output into a Verdict. It never panics on bad
// input; every failure is a *ResultParseError.
func ParseVerdict(raw string) (model.Verdict, error) {
	body := StripCodeFence(raw)
	if body == "" {
		return model.Verdict{}, &ResultParseError{Raw: raw, Err: errors.New("empty output")}
	}
	if !gjson.Valid(body) {
		return model.Verdict{}, &ResultParseError{Raw: raw, Err: errors.New("invalid JSON")}
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return model.Verdict{}, &ResultParseError{Raw: raw, Err: fmt.Errorf("expected JSON object, got %s", root.Type)}
	}

	v := model.Verdict{
		Results:         []model.QuestionVerdict{},
		OverallFeedback: root.Get("overall_feedback").String(),
		TotalScore:      number(root.Get("total_score")),
	}
	if results := root.Get("results"); results.IsArray() {
		for _, item := range results.Array() {
			qid := item.Get("question_id")
			if !qid.Exists() {
				qid = item.Get("question")
			}
			v.Results = append(v.Results, model.QuestionVerdict{
				QuestionID:  qid.String(),
				Score:       number(item.Get("score")),
				Reason:      item.Get("reason").String(),
				Improvement: item.Get("improvement").String(),
			})
		}
	}
	return v, nil
}

// number accepts JSON numbers and numeric strings. Anything else is nil.
func number(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		f := r.Num
		return &f
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
			return &f
		}
	}
	return nil
}
