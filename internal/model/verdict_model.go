package model

type QuestionVerdict struct {
	QuestionID  string   `json:"question_id"`
	Score       *float64 `json:"score"`
	Reason      string   `json:"reason"`
	Improvement string   `json:"improvement"`
}

type Verdict struct {
	Results         []QuestionVerdict `json:"results"`
	OverallFeedback string            `json:"overall_feedback"`
	// TotalScore is whatever the model claimed; OverallScore is authoritative.
	TotalScore *float64 `json:"total_score,omitempty"`
}

// OverallScore sums the per-question scores. Missing scores count as zero.
func (v Verdict) OverallScore() float64 {
	var total float64
	for _, r := range v.Results {
		if r.Score != nil {
			total += *r.Score
		}
	}
	return total
}
