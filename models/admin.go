package models

// Admin marks a user as an administrator.
type Admin struct {
	SSN  string `gorm:"column:ssn;primaryKey;size:32"`
	User User   `gorm:"foreignKey:SSN;references:SSN;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
