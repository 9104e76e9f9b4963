package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestVerdictOverallScore(t *testing.T) {
	tests := []struct {
		name    string
		results []QuestionVerdict
		want    float64
	}{
		{"empty", nil, 0},
		{"missing score counts as zero", []QuestionVerdict{{Score: ptr(4)}, {Score: ptr(3)}, {}}, 7},
		{"fractional", []QuestionVerdict{{Score: ptr(2.5)}, {Score: ptr(0.5)}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verdict{Results: tt.results}.OverallScore())
		})
	}
}
