package model

import (
	"time"

	"gorm.io/gorm"
)

// TaxRule maps a buyer country to a tax percentage. Multiple active rules
// for the same country are summed (e.g. federal + state). A rule with an
// empty country code is the global default, applied only when no
// country-specific rule matches.
type TaxRule struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"type:varchar(100);not null" json:"name"`
	CountryCode string         `gorm:"type:varchar(2);index" json:"country_code"` // "" = global default
	Percentage  float64        `gorm:"not null" json:"percentage"`
	// No column default: a default-tagged bool would silently flip
	// zero-valued inserts back to true. Callers set Active explicitly.
	Active bool `json:"active"`
}

// TableName specifies the table name for TaxRule
func (TaxRule) TableName() string {
	return "tax_rules"
}
