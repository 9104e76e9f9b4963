package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/model"
	"github.com/fadilmartias/exam-grader/internal/repository"
	"github.com/fadilmartias/exam-grader/internal/util"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

const resultIDSpread = 100000

// ResultID combines a millisecond timestamp with a random draw in
// [0, resultIDSpread). Ids from different milliseconds never collide and ids
// within one millisecond collide only when the draws are equal.
func ResultID(unixMillis, draw int64) int64 {
	return unixMillis*resultIDSpread + draw
}

type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand *rand.Rand
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		now:  time.Now,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ResultID(g.now().UnixMilli(), g.rand.Int63n(resultIDSpread))
}

type UploadInput struct {
	SubmissionID string
	UserID       string
	AssignmentID string
	Raw          string
	Status       model.ProcessingStatus
}

type ReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

type ResultUsecase struct {
	store  repository.GradingStore
	ids    *IDGenerator
	now    func() time.Time
	logger zerolog.Logger
}

func NewResultUsecase(store repository.GradingStore, ids *IDGenerator, logger zerolog.Logger) *ResultUsecase {
	return &ResultUsecase{
		store:  store,
		ids:    ids,
		now:    time.Now,
		logger: logger.With().Str("component", "result_usecase").Logger(),
	}
}

// Upload stores one grading attempt and then moves the submission to the
// matching status if it is still pending. A failed attempt is stored without touching the raw text.
// When the row is stored but the status patch fails, the record is returned
// together with ErrStatusNotUpdated.
func (uc *ResultUsecase) Upload(ctx context.Context, in UploadInput) (*model.ResultRecord, error) {
	record := &model.ResultRecord{
		SubmissionID:     in.SubmissionID,
		UserID:           in.UserID,
		AssignmentID:     in.AssignmentID,
		ProcessingStatus: in.Status,
	}

	if in.Status != model.StatusFailed {
		verdict, err := util.ParseVerdict(in.Raw)
		if err != nil {
			return nil, err
		}
		questionResults, err := json.Marshal(verdict.Results)
		if err != nil {
			return nil, fmt.Errorf("encode question results: %w", err)
		}
		score := verdict.OverallScore()
		record.ProcessingStatus = model.StatusGraded
		record.OverallFeedback = &verdict.OverallFeedback
		record.QuestionResults = datatypes.JSON(questionResults)
		record.OverallScore = &score
	}

	record.ID = uc.ids.Next()
	record.CreatedAt = uc.now().UTC()

	if err := uc.store.InsertResult(ctx, record); err != nil {
		return nil, fmt.Errorf("insert result for submission %s: %w", in.SubmissionID, err)
	}

	if err := uc.store.UpdateSubmissionStatus(ctx, in.SubmissionID, record.ProcessingStatus); err != nil {
		uc.logger.Warn().Err(err).Int64("result_id", record.ID).Str("submission_id", in.SubmissionID).Msg("result stored but submission status not updated")
		return record, fmt.Errorf("%w: submission %s: %v", apperror.ErrStatusNotUpdated, in.SubmissionID, err)
	}

	uc.logger.Info().Int64("result_id", record.ID).Str("submission_id", in.SubmissionID).Str("status", string(record.ProcessingStatus)).Msg("result stored")
	return record, nil
}

// Reconcile repairs submissions left pending although a result row exists for
// them, which happens when Upload stored a row but could not patch the status.
func (uc *ResultUsecase) Reconcile(ctx context.Context, assignmentID string) (ReconcileReport, error) {
	var report ReconcileReport

	submissions, err := uc.store.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return report, err
	}

	for _, sub := range submissions {
		if sub.Status != model.StatusPending {
			continue
		}
		report.Checked++

		latest, err := uc.store.LatestResult(ctx, sub.ID)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}
		if err != nil {
			report.Failed++
			uc.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("failed to load latest result")
			continue
		}

		if err := uc.store.UpdateSubmissionStatus(ctx, sub.ID, latest.ProcessingStatus); err != nil {
			report.Failed++
			uc.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("failed to repair submission status")
			continue
		}
		report.Repaired++
	}

	uc.logger.Info().Str("assignment_id", assignmentID).Int("checked", report.Checked).Int("repaired", report.Repaired).Int("failed", report.Failed).Msg("reconcile finished")
	return report, nil
}
