package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadilmartias/exam-grader/internal/config"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

type GeminiServiceInterface interface {
	UploadFile(ctx context.Context, path, mimeType string) (*genai.File, error)
	GetFile(ctx context.Context, name string) (*genai.File, error)
	DeleteFile(ctx context.Context, name string) error
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiService struct {
	Client         *genai.Client
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
	logger         zerolog.Logger
}

func NewGeminiService(ctx context.Context, cfg *config.GeminiConfig, logger zerolog.Logger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		Client:         client,
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      time.Second,
		MaxDelay:       90 * time.Second,
		RequestTimeout: cfg.RequestTimeout,
		logger:         logger.With().Str("component", "gemini_service").Logger(),
	}, nil
}

func (s *GeminiService) UploadFile(ctx context.Context, path, mimeType string) (*genai.File, error) {
	file, err := s.Client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	s.logger.Debug().Str("file", file.Name).Str("state", string(file.State)).Msg("document uploaded")
	return file, nil
}

func (s *GeminiService) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return s.Client.Files.Get(ctx, name, nil)
}

func (s *GeminiService) DeleteFile(ctx context.Context, name string) error {
	_, err := s.Client.Files.Delete(ctx, name, nil)
	return err
}

// GenerateContent calls the model, retrying retryable API errors up to
// MaxRetries times with exponential backoff. MaxRetries 0 means a single call.
func (s *GeminiService) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("contents cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.calculateBackoff(attempt)
			s.logger.Warn().Int("attempt", attempt).Int("max_retries", s.MaxRetries).Dur("delay", delay).Msg("retrying GenerateContent")

			select {
			case <-time.After(delay):
			case <-timeoutCtx.Done():
				return nil, fmt.Errorf("context timeout during retry: %w", timeoutCtx.Err())
			}
		}

		result, err := s.Client.Models.GenerateContent(timeoutCtx, model, contents, cfg)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, fmt.Errorf("generate content failed: %w", err)
		}
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("retryable GenerateContent error")
	}

	if s.MaxRetries == 0 {
		return nil, fmt.Errorf("generate content failed: %w", lastErr)
	}
	return nil, fmt.Errorf("max retries (%d) exceeded for GenerateContent: %w", s.MaxRetries, lastErr)
}

func (s *GeminiService) calculateBackoff(attempt int) time.Duration {
	delay := s.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))

	if delay > s.MaxDelay {
		delay = s.MaxDelay
	}
	return delay
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "temporary failure") ||
		strings.Contains(errMsg, "EOF")
}
