package repository

import (
	"context"

	"github.com/fadilmartias/exam-grader/internal/model"
)

// GradingStore is the relational side of the pipeline: assignments and
// submissions are read, results are appended and submission status patched.
type GradingStore interface {
	GetAssignment(ctx context.Context, id string) (*model.Assignment, error)
	ListSubmissions(ctx context.Context, assignmentID string) ([]model.Submission, error)
	InsertResult(ctx context.Context, result *model.ResultRecord) error
	// UpdateSubmissionStatus moves a pending submission to status. A submission
	// that already left pending is not changed and no error is returned.
	UpdateSubmissionStatus(ctx context.Context, submissionID string, status model.ProcessingStatus) error
	LatestResult(ctx context.Context, submissionID string) (*model.ResultRecord, error)
}
