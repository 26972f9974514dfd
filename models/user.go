package models

import "time"

// User is the master person record. Role membership tables and the
// internship/evaluation tables all reference it by SSN.
type User struct {
	SSN         string    `gorm:"column:ssn;primaryKey;size:32" json:"ssn"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Address     string    `gorm:"size:512" json:"address"`
	DateOfBirth string    `gorm:"size:32" json:"date_of_birth"` // ISO date (YYYY-MM-DD)
}
