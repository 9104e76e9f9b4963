package model

type ProcessingStatus string

const (
	StatusPending ProcessingStatus = "pending"
	StatusGraded  ProcessingStatus = "graded"
	StatusFailed  ProcessingStatus = "failed"
)

type Submission struct {
	ID           string           `gorm:"primaryKey" json:"id"`
	UserID       string           `json:"user_id"`
	AssignmentID string           `gorm:"index" json:"assignment_id"`
	FileURL      string           `json:"file_url"`
	Status       ProcessingStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
}

func (s *Submission) TableName() string {
	return "submissions"
}

// HasFile reports whether the submission points at an uploaded answer script.
func (s *Submission) HasFile() bool {
	return s.FileURL != ""
}
