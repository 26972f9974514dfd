package models

import "time"

// Internship is a student's placement at a company. A student holds at most
// one internship, so student_ssn carries a unique index.
type Internship struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
	StudentSSN     string    `gorm:"column:student_ssn;size:32;not null;uniqueIndex" json:"student_ssn"`
	CompanyName    string    `gorm:"size:255;not null" json:"company_name"`
	StartDate      string    `gorm:"size:32" json:"start_date"` // ISO date
	EndDate        string    `gorm:"size:32" json:"end_date"`   // ISO date
	MentorSSN      *string   `gorm:"column:mentor_ssn;size:32;index" json:"mentor_ssn"`
	CoordinatorSSN string    `gorm:"column:coordinator_ssn;size:32;index" json:"coordinator_ssn"`
	EvaluatorSSN   *string   `gorm:"column:evaluator_ssn;size:32" json:"evaluator_ssn"`
}
