package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/model"
	"github.com/fadilmartias/exam-grader/internal/observability"
	"github.com/fadilmartias/exam-grader/internal/repository"
	"github.com/fadilmartias/exam-grader/internal/service"
	"github.com/fadilmartias/exam-grader/internal/util"
	"github.com/rs/zerolog"
)

type OutcomeStatus string

const (
	OutcomeSkipped        OutcomeStatus = "skipped"
	OutcomeDownloadFailed OutcomeStatus = "download_failed"
	OutcomeError          OutcomeStatus = "error"
	OutcomeGraded         OutcomeStatus = "graded"
)

const (
	modeFinal  = "final"
	modeDryRun = "dry_run"
)

type Outcome struct {
	SubmissionID string        `json:"submission_id"`
	UserID       string        `json:"user_id"`
	Status       OutcomeStatus `json:"status"`
	Grading      string        `json:"grading,omitempty"`
	OverallScore *float64      `json:"overall_score,omitempty"`
	ResultID     int64         `json:"result_id,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type BatchResult struct {
	Count    int
	Graded   int
	Outcomes []Outcome
}

func (b *BatchResult) add(o Outcome) {
	b.Outcomes = append(b.Outcomes, o)
	if o.Status == OutcomeGraded {
		b.Graded++
	}
}

type GradingUsecase struct {
	store       repository.GradingStore
	storage     service.StorageServiceInterface
	transcriber service.TranscriberInterface
	grader      service.GraderInterface
	results     *ResultUsecase
	scratchDir  string
	logger      zerolog.Logger
}

func NewGradingUsecase(
	store repository.GradingStore,
	storage service.StorageServiceInterface,
	transcriber service.TranscriberInterface,
	grader service.GraderInterface,
	results *ResultUsecase,
	scratchDir string,
	logger zerolog.Logger,
) *GradingUsecase {
	return &GradingUsecase{
		store:       store,
		storage:     storage,
		transcriber: transcriber,
		grader:      grader,
		results:     results,
		scratchDir:  scratchDir,
		logger:      logger.With().Str("component", "grading_usecase").Logger(),
	}
}

// FinalGrading grades every submission of an assignment against its question
// paper and rubric and stores one result per attempted submission. Failures of
// a single submission are reported in its Outcome and never stop the run.
func (uc *GradingUsecase) FinalGrading(ctx context.Context, assignmentID string) (*BatchResult, error) {
	scratch, err := uc.newScratchDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	assignment, err := uc.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment %s: %w", assignmentID, err)
	}
	if len(assignment.RubricFiles) == 0 {
		return nil, fmt.Errorf("assignment %s has no rubric documents: %w", assignmentID, apperror.ErrNotFound)
	}

	questions, err := uc.transcribeReferences(ctx, scratch, assignment.QuestionFiles, service.KindQuestionPaper)
	if err != nil {
		return nil, fmt.Errorf("question paper: %w", err)
	}
	rubric, err := uc.transcribeReferences(ctx, scratch, assignment.RubricFiles, service.KindRubric)
	if err != nil {
		return nil, fmt.Errorf("rubric: %w", err)
	}

	submissions, err := uc.store.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions for %s: %w", assignmentID, err)
	}

	batch := &BatchResult{Count: len(submissions), Outcomes: make([]Outcome, 0, len(submissions))}
	for i, sub := range submissions {
		outcome := uc.gradeSubmission(ctx, scratch, i, sub, service.GradeInput{Rubric: rubric, Questions: questions})
		observability.SubmissionOutcomes().WithLabelValues(modeFinal, string(outcome.Status)).Inc()
		batch.add(outcome)
	}

	uc.logger.Info().Str("assignment_id", assignmentID).Int("count", batch.Count).Int("graded", batch.Graded).Msg("final grading finished")
	return batch, nil
}

func (uc *GradingUsecase) gradeSubmission(ctx context.Context, scratch string, index int, sub model.Submission, input service.GradeInput) Outcome {
	outcome := Outcome{SubmissionID: sub.ID, UserID: sub.UserID}
	subLog := uc.logger.With().Str("submission_id", sub.ID).Logger()

	if !sub.HasFile() {
		outcome.Status = OutcomeSkipped
		subLog.Info().Msg("submission has no file, skipping")
		return outcome
	}

	path, err := uc.fetch(ctx, scratch, fmt.Sprintf("submission_%d.pdf", index), sub.FileURL)
	if err != nil {
		subLog.Error().Err(err).Msg("failed to download submission")
		uc.fail(ctx, sub, &outcome, OutcomeDownloadFailed, err)
		return outcome
	}

	answer, err := uc.transcriber.Transcribe(ctx, path, service.KindAnswerScript)
	if err != nil {
		subLog.Error().Err(err).Msg("failed to transcribe submission")
		uc.fail(ctx, sub, &outcome, OutcomeError, err)
		return outcome
	}

	input.Answer = answer.Text
	raw, err := uc.grader.Grade(ctx, input)
	if err != nil {
		subLog.Error().Err(err).Msg("failed to grade submission")
		uc.fail(ctx, sub, &outcome, OutcomeError, err)
		return outcome
	}
	outcome.Grading = raw

	record, err := uc.results.Upload(ctx, UploadInput{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		AssignmentID: sub.AssignmentID,
		Raw:          raw,
		Status:       model.StatusGraded,
	})
	switch {
	case errors.Is(err, apperror.ErrStatusNotUpdated):
		outcome.Status = OutcomeGraded
		outcome.ResultID = record.ID
		outcome.OverallScore = record.OverallScore
		outcome.Error = err.Error()
	case errors.Is(err, apperror.ErrResultParse):
		subLog.Error().Err(err).Msg("grader output could not be parsed")
		uc.fail(ctx, sub, &outcome, OutcomeError, err)
	case err != nil:
		subLog.Error().Err(err).Msg("failed to store result")
		outcome.Status = OutcomeError
		outcome.Error = err.Error()
	default:
		outcome.Status = OutcomeGraded
		outcome.ResultID = record.ID
		outcome.OverallScore = record.OverallScore
	}
	return outcome
}

// fail marks the outcome and stores a failed result row for the submission.
func (uc *GradingUsecase) fail(ctx context.Context, sub model.Submission, outcome *Outcome, status OutcomeStatus, cause error) {
	outcome.Status = status
	outcome.Error = cause.Error()

	record, err := uc.results.Upload(ctx, UploadInput{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		AssignmentID: sub.AssignmentID,
		Status:       model.StatusFailed,
	})
	if record != nil {
		outcome.ResultID = record.ID
	}
	if err != nil {
		uc.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("failed to record failed grading")
	}
}

// GradeSubmissions grades every submission against the supplied rubric text
// without writing anything to the store.
func (uc *GradingUsecase) GradeSubmissions(ctx context.Context, assignmentID, rubricText string) (*BatchResult, error) {
	scratch, err := uc.newScratchDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	submissions, err := uc.store.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions for %s: %w", assignmentID, err)
	}

	batch := &BatchResult{Count: len(submissions), Outcomes: make([]Outcome, 0, len(submissions))}
	for i, sub := range submissions {
		outcome := uc.previewSubmission(ctx, scratch, i, sub, rubricText)
		observability.SubmissionOutcomes().WithLabelValues(modeDryRun, string(outcome.Status)).Inc()
		batch.add(outcome)
	}
	return batch, nil
}

func (uc *GradingUsecase) previewSubmission(ctx context.Context, scratch string, index int, sub model.Submission, rubric string) Outcome {
	outcome := Outcome{SubmissionID: sub.ID, UserID: sub.UserID}
	if !sub.HasFile() {
		outcome.Status = OutcomeSkipped
		return outcome
	}

	path, err := uc.fetch(ctx, scratch, fmt.Sprintf("submission_%d.pdf", index), sub.FileURL)
	if err != nil {
		outcome.Status = OutcomeDownloadFailed
		outcome.Error = err.Error()
		return outcome
	}

	answer, err := uc.transcriber.Transcribe(ctx, path, service.KindAnswerScript)
	if err != nil {
		outcome.Status = OutcomeError
		outcome.Error = err.Error()
		return outcome
	}

	raw, err := uc.grader.Grade(ctx, service.GradeInput{Rubric: rubric, Answer: answer.Text})
	if err != nil {
		outcome.Status = OutcomeError
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = OutcomeGraded
	outcome.Grading = raw
	if verdict, err := util.ParseVerdict(raw); err == nil {
		score := verdict.OverallScore()
		outcome.OverallScore = &score
	}
	return outcome
}

func (uc *GradingUsecase) TranscribeDocument(ctx context.Context, path string, kind service.DocumentKind) (service.Transcription, error) {
	return uc.transcriber.Transcribe(ctx, path, kind)
}

// GenerateScore transcribes a rubric and an answer script and returns the
// grader's raw output.
func (uc *GradingUsecase) GenerateScore(ctx context.Context, rubricPath, answerPath string) (string, error) {
	rubric, err := uc.transcriber.Transcribe(ctx, rubricPath, service.KindRubric)
	if err != nil {
		return "", fmt.Errorf("rubric: %w", err)
	}
	answer, err := uc.transcriber.Transcribe(ctx, answerPath, service.KindAnswerScript)
	if err != nil {
		return "", fmt.Errorf("answer script: %w", err)
	}
	return uc.grader.Grade(ctx, service.GradeInput{Rubric: rubric.Text, Answer: answer.Text})
}

func (uc *GradingUsecase) transcribeReferences(ctx context.Context, scratch string, refs []string, kind service.DocumentKind) (string, error) {
	texts := make([]string, 0, len(refs))
	for i, ref := range refs {
		path, err := uc.fetch(ctx, scratch, fmt.Sprintf("%s_%d.pdf", kind, i), ref)
		if err != nil {
			return "", err
		}
		doc, err := uc.transcriber.Transcribe(ctx, path, kind)
		if err != nil {
			return "", err
		}
		texts = append(texts, doc.Text)
	}
	return strings.Join(texts, "\n\n"), nil
}

func (uc *GradingUsecase) fetch(ctx context.Context, scratch, name, ref string) (string, error) {
	fileURL, err := uc.storage.ResolveURL(ctx, ref)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(scratch, name)
	if err := uc.storage.Download(ctx, fileURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (uc *GradingUsecase) newScratchDir() (string, error) {
	if uc.scratchDir != "" {
		if err := os.MkdirAll(uc.scratchDir, 0o755); err != nil {
			return "", fmt.Errorf("create scratch root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(uc.scratchDir, "grading-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}
