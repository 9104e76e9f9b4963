package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", genai.APIError{Code: 429}, true},
		{"server error wrapped", fmt.Errorf("call: %w", genai.APIError{Code: 503}), true},
		{"bad request", genai.APIError{Code: 400}, false},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, false},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"unknown", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	s := &GeminiService{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, s.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, s.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, s.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, s.calculateBackoff(4))
}
