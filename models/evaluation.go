package models

import "time"

// Evaluation is the graded outcome of a student's internship. One evaluation
// per student; re-submission overwrites the existing record.
type Evaluation struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
	StudentSSN       string    `gorm:"column:student_ssn;size:32;not null;uniqueIndex" json:"student_ssn"`
	FinalGrade       string    `gorm:"size:4" json:"final_grade"`
	Comments         string    `gorm:"size:1024" json:"comments"`
	PerformanceScore int       `json:"performance_score"`
	EvaluatorSSN     string    `gorm:"column:evaluator_ssn;size:32" json:"evaluator_ssn"`
	CoordinatorSSN   string    `gorm:"column:coordinator_ssn;size:32" json:"coordinator_ssn"`
}
