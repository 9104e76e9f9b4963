package dto

import "github.com/fadilmartias/exam-grader/internal/usecase"

type GradeSubmissionsRequest struct {
	AssignmentID   string `json:"assignment_id" validate:"required"`
	AssignmentIdea string `json:"assignment_idea" validate:"required"`
}

type AssignmentRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DocumentResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type GradeSubmissionsResponse struct {
	Count   int               `json:"count"`
	Results []usecase.Outcome `json:"results"`
}

type FinalGradingResponse struct {
	Message     string            `json:"message"`
	GradedCount int               `json:"graded_count"`
	Results     []usecase.Outcome `json:"results"`
}

type ReconcileResponse struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}
