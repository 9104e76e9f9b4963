package model

import (
	"time"

	"gorm.io/datatypes"
)

// ResultRecord is one grading attempt for a submission. Rows are only ever
// inserted; a re-grade produces a new row.
type ResultRecord struct {
	ID               int64            `gorm:"primaryKey;autoIncrement:false" json:"id"`
	SubmissionID     string           `gorm:"index" json:"submission_id"`
	UserID           string           `json:"user_id"`
	AssignmentID     string           `gorm:"index" json:"assignment_id"`
	ProcessingStatus ProcessingStatus `gorm:"type:varchar(20)" json:"processing_status"`
	OverallFeedback  *string          `gorm:"type:text" json:"overall_feedback"`
	QuestionResults  datatypes.JSON   `json:"question_results"`
	OverallScore     *float64         `json:"overall_score"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (r *ResultRecord) TableName() string {
	return "results"
}
