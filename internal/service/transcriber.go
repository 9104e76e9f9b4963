package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/config"
	"github.com/fadilmartias/exam-grader/internal/observability"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

type DocumentKind string

const (
	KindAnswerScript  DocumentKind = "answer"
	KindRubric        DocumentKind = "rubric"
	KindQuestionPaper DocumentKind = "question"
)

// Instruction returns the system instruction used to transcribe documents of this kind.
func (k DocumentKind) Instruction() string {
	switch k {
	case KindRubric:
		return RubricInstruction
	case KindQuestionPaper:
		return QuestionPaperInstruction
	default:
		return AnswerScriptInstruction
	}
}

type Transcription struct {
	Kind   DocumentKind
	Text   string
	Source string
}

type TranscriberInterface interface {
	Transcribe(ctx context.Context, path string, kind DocumentKind) (Transcription, error)
}

const (
	pdfMIME                  = "application/pdf"
	transcriptionMaxTokens   = 15000
	defaultPollInterval      = 10 * time.Second
	defaultProcessingMaxWait = 10 * time.Minute
)

type Transcriber struct {
	gemini       GeminiServiceInterface
	model        string
	pollInterval time.Duration
	maxWait      time.Duration
	logger       zerolog.Logger
}

func NewTranscriber(gemini GeminiServiceInterface, cfg *config.GeminiConfig, logger zerolog.Logger) *Transcriber {
	t := &Transcriber{
		gemini:       gemini,
		model:        cfg.TranscribeModel,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		logger:       logger.With().Str("component", "transcriber").Logger(),
	}
	if t.pollInterval <= 0 {
		t.pollInterval = defaultPollInterval
	}
	if t.maxWait <= 0 {
		t.maxWait = defaultProcessingMaxWait
	}
	return t
}

// Transcribe uploads a local PDF, waits for the AI service to finish
// processing it and returns the model's plain-text transcription. The uploaded
// file is deleted on every path after a successful upload.
func (t *Transcriber) Transcribe(ctx context.Context, path string, kind DocumentKind) (out Transcription, err error) {
	start := time.Now()
	defer func() { observability.ObserveTranscription(string(kind), start, err) }()

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Transcription{}, fmt.Errorf("read document %s: %w", filepath.Base(path), err)
	}
	if !mt.Is(pdfMIME) {
		return Transcription{}, fmt.Errorf("%w: %s is %s", apperror.ErrUnsupportedDocument, filepath.Base(path), mt.String())
	}

	file, err := t.gemini.UploadFile(ctx, path, pdfMIME)
	if err != nil {
		return Transcription{}, apperror.Network("upload document", err)
	}
	defer t.release(ctx, file.Name)

	file, err = t.waitUntilActive(ctx, file)
	if err != nil {
		return Transcription{}, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, file.MIMEType),
			genai.NewPartFromText(transcribeUserPrompt),
		}, genai.RoleUser),
	}
	resp, err := t.gemini.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(kind.Instruction(), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		MaxOutputTokens:   transcriptionMaxTokens,
	})
	if err != nil {
		return Transcription{}, &apperror.GenerationError{Kind: apperror.ErrGenerationException, Err: err}
	}
	if resp == nil {
		return Transcription{}, apperror.ErrEmptyTranscription
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			return Transcription{}, fmt.Errorf("%w: finish reason %s", apperror.ErrEmptyTranscription, resp.Candidates[0].FinishReason)
		}
		return Transcription{}, apperror.ErrEmptyTranscription
	}

	t.logger.Info().Str("kind", string(kind)).Str("source", filepath.Base(path)).Int("chars", len(text)).Msg("document transcribed")
	return Transcription{Kind: kind, Text: text, Source: filepath.Base(path)}, nil
}

func (t *Transcriber) waitUntilActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	maxPolls := int(t.maxWait / t.pollInterval)
	if maxPolls < 1 {
		maxPolls = 1
	}

	name := file.Name
	for polls := 0; file.State == genai.FileStateProcessing; polls++ {
		if polls >= maxPolls {
			return nil, fmt.Errorf("%w: %s still processing after %s", apperror.ErrProcessingTimeout, name, t.maxWait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.pollInterval):
		}

		next, err := t.gemini.GetFile(ctx, name)
		if err != nil {
			return nil, apperror.Network("poll document state", err)
		}
		file = next
	}

	if file.State != genai.FileStateActive {
		return nil, &apperror.DocumentProcessingError{State: string(file.State)}
	}
	return file, nil
}

func (t *Transcriber) release(ctx context.Context, name string) {
	if err := t.gemini.DeleteFile(context.WithoutCancel(ctx), name); err != nil {
		t.logger.Warn().Err(err).Str("file", name).Msg("failed to delete uploaded document")
	}
}
