package models

// InternshipCoordinator marks a user as a coordinator overseeing internships.
type InternshipCoordinator struct {
	SSN  string `gorm:"column:ssn;primaryKey;size:32"`
	User User   `gorm:"foreignKey:SSN;references:SSN;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
