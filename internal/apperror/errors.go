// Package apperror holds the error kinds shared by the storage, AI and
// persistence layers. Callers match them with errors.Is / errors.As.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedReference       = errors.New("malformed file reference")
	ErrSigningFailed            = errors.New("signed url request failed")
	ErrDocumentProcessingFailed = errors.New("document processing failed")
	ErrProcessingTimeout        = errors.New("document processing timed out")
	ErrGenerationBlocked        = errors.New("blocked-by-safety-filter")
	ErrGenerationIncomplete     = errors.New("generation-incomplete")
	ErrGenerationException      = errors.New("generation-exception")
	ErrResultParse              = errors.New("grader output could not be parsed")
	ErrNetwork                  = errors.New("network error")
	ErrUnsupportedDocument      = errors.New("unsupported document type")
	ErrEmptyTranscription       = errors.New("transcription returned no text")
	ErrStatusNotUpdated         = errors.New("result stored but submission status not updated")
	ErrNotFound                 = errors.New("record not found")
)

// DocumentProcessingError reports the terminal state of an uploaded document
// that never became active.
type DocumentProcessingError struct {
	State string
}

func (e *DocumentProcessingError) Error() string {
	return fmt.Sprintf("%s: final state %s", ErrDocumentProcessingFailed, e.State)
}

func (e *DocumentProcessingError) Unwrap() error {
	return ErrDocumentProcessingFailed
}

// GenerationError is returned by the AI layer when a completion did not end
// normally. Kind is one of the ErrGeneration* sentinels.
type GenerationError struct {
	Kind          error
	FinishReason  string
	BlockReason   string
	SafetyRatings []string
	Err           error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.FinishReason != "" {
		b.WriteString(": finish reason ")
		b.WriteString(e.FinishReason)
	}
	if e.BlockReason != "" {
		b.WriteString(": block reason ")
		b.WriteString(e.BlockReason)
	}
	if len(e.SafetyRatings) > 0 {
		b.WriteString(" (safety ratings: ")
		b.WriteString(strings.Join(e.SafetyRatings, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Network wraps a transport or non-2xx failure against a remote API.
func Network(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrNetwork, op, err)
}

// NetworkStatus wraps a non-2xx response.
func NetworkStatus(op string, status int, body string) error {
	return fmt.Errorf("%w: %s: status %d: %s", ErrNetwork, op, status, body)
}
