package model

import "gorm.io/datatypes"

type Assignment struct {
	ID            string                      `gorm:"primaryKey" json:"id"`
	QuestionFiles datatypes.JSONSlice[string] `json:"question_files"`
	RubricFiles   datatypes.JSONSlice[string] `json:"rubric_files"`
}

func (a *Assignment) TableName() string {
	return "assignments"
}
