package config

import (
	"os"
	"sync"
	"time"
)

type GeminiConfig struct {
	APIKey          string
	TranscribeModel string
	GradeModel      string
	PollInterval    time.Duration
	MaxWait         time.Duration
	RequestTimeout  time.Duration
	MaxRetries      int
}

var (
	geminiConfig *GeminiConfig
	geminiOnce   sync.Once
)

func LoadGeminiConfig() *GeminiConfig {
	geminiOnce.Do(func() {
		geminiConfig = &GeminiConfig{
			APIKey:          os.Getenv("GEMINI_API_KEY"),
			TranscribeModel: getEnv("GEMINI_TRANSCRIBE_MODEL", "gemini-2.5-flash"),
			GradeModel:      getEnv("GEMINI_GRADE_MODEL", "gemini-2.5-flash"),
			PollInterval:    getDuration("GEMINI_POLL_INTERVAL", 10*time.Second),
			MaxWait:         getDuration("GEMINI_MAX_WAIT", 10*time.Minute),
			RequestTimeout:  getDuration("GEMINI_REQUEST_TIMEOUT", 5*time.Minute),
			MaxRetries:      getInt("GEMINI_MAX_RETRIES", 0),
		}
	})
	return geminiConfig
}
