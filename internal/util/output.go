package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// OutputName builds "<uuid>_<stem>_<suffix>" where stem is the uploaded file
// name without extension. An empty stem yields "<uuid>_<suffix>".
func OutputName(original, suffix string) string {
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if original == "" || stem == "." || stem == "" {
		return fmt.Sprintf("%s_%s", uuid.NewString(), suffix)
	}
	return fmt.Sprintf("%s_%s_%s", uuid.NewString(), stem, suffix)
}

// SaveOutput writes content under dir and returns the generated file name.
func SaveOutput(dir, original, suffix, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	name := OutputName(original, suffix)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return name, nil
}
