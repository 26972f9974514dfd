package models

// Student marks a user as a student and links to an assigned mentor, if any.
type Student struct {
	SSN       string  `gorm:"column:ssn;primaryKey;size:32"`
	User      User    `gorm:"foreignKey:SSN;references:SSN;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	MentorSSN *string `gorm:"column:mentor_ssn;size:32;index"`
}
