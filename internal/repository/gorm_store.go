package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/model"
	"gorm.io/gorm"
)

// GormStore reads and writes the same tables through a direct Postgres
// connection instead of PostgREST.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db}
}

func (r *GormStore) GetAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("assignment %s: %w", id, apperror.ErrNotFound)
	}
	return &a, err
}

func (r *GormStore) ListSubmissions(ctx context.Context, assignmentID string) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id").
		Find(&submissions).Error
	return submissions, err
}

func (r *GormStore) InsertResult(ctx context.Context, result *model.ResultRecord) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *GormStore) UpdateSubmissionStatus(ctx context.Context, submissionID string, status model.ProcessingStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("id = ? AND status = ?", submissionID, model.StatusPending).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Submission{}).Where("id = ?", submissionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("submission %s: %w", submissionID, apperror.ErrNotFound)
	}
	return nil
}

func (r *GormStore) LatestResult(ctx context.Context, submissionID string) (*model.ResultRecord, error) {
	var rec model.ResultRecord
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at desc, id desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("result for submission %s: %w", submissionID, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Migrate creates any missing tables or columns used by the grading pipeline.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Assignment{}, &model.Submission{}, &model.ResultRecord{})
}
