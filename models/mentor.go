package models

// Mentor marks a user as a mentor at a host company.
type Mentor struct {
	SSN         string `gorm:"column:ssn;primaryKey;size:32"`
	User        User   `gorm:"foreignKey:SSN;references:SSN;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Type        string `gorm:"size:64"` // internal or external
	Position    string `gorm:"size:255"`
	CompanyName string `gorm:"size:255"`
}
