package config

import (
	"log"
	"os"
	"sync"
)

type AppConfig struct {
	Name       string
	Env        string
	Port       string
	BaseURL    string
	OutputDir  string
	ScratchDir string
}

var (
	appConfig *AppConfig
	appOnce   sync.Once
)

func LoadAppConfig() *AppConfig {
	appOnce.Do(func() {
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
			log.Printf("Warning: APP_ENV not set, defaulting to %s", env)
		}
		appConfig = &AppConfig{
			Name:       getEnv("APP_NAME", "AI Graded Assignments API"),
			Env:        env,
			Port:       getEnv("APP_PORT", ":8000"),
			BaseURL:    os.Getenv("APP_URL"),
			OutputDir:  getEnv("OUTPUT_DIR", "output_files"),
			ScratchDir: getEnv("SCRATCH_DIR", os.TempDir()),
		}
	})
	return appConfig
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
