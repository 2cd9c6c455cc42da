package model

import (
	"time"

	"gorm.io/gorm"
)

// DiscountType is a closed enum over the supported promo discount strategies
type DiscountType string

const (
	// DiscountAmount subtracts a flat value, clamped to the price
	DiscountAmount DiscountType = "amount"
	// DiscountPercentage multiplies by a percentage clamped to 100
	DiscountPercentage DiscountType = "percentage"
)

// Promo code owner roles
const (
	PromoOwnerAdmin      = "admin"
	PromoOwnerInstructor = "instructor"
)

// PromoCode is a discount code. Admin-owned codes apply to any course;
// instructor-owned codes apply only to the courses explicitly attached.
type PromoCode struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Code          string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	OwnerID       uint           `gorm:"not null;index" json:"owner_id"`
	OwnerRole     string         `gorm:"type:varchar(20);not null" json:"owner_role"` // admin, instructor
	DiscountType  DiscountType   `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue float64        `gorm:"not null" json:"discount_value"`
	StartDate     time.Time      `gorm:"not null" json:"start_date"`
	EndDate       time.Time      `gorm:"not null" json:"end_date"`
	Quota         *int           `json:"quota"` // nil = unlimited, 0 = exhausted
	Active        bool           `json:"active"`

	// Relationships
	Owner   User     `gorm:"foreignKey:OwnerID" json:"-"`
	Courses []Course `gorm:"many2many:promo_code_courses" json:"courses,omitempty"`
}

// TableName specifies the table name for PromoCode
func (PromoCode) TableName() string {
	return "promo_codes"
}

// WithinWindow reports whether now falls inside the code's validity window
func (p *PromoCode) WithinWindow(now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// Exhausted reports whether the usage quota is spent. A nil quota means
// unlimited; zero means exhausted, not "no limit".
func (p *PromoCode) Exhausted() bool {
	return p.Quota != nil && *p.Quota <= 0
}

// DiscountOn computes the discount this code yields on price. The result is
// clamped so the discounted price never drops below zero.
func (p *PromoCode) DiscountOn(price float64) float64 {
	if price <= 0 {
		return 0
	}
	var discount float64
	switch p.DiscountType {
	case DiscountPercentage:
		pct := p.DiscountValue
		if pct > 100 {
			pct = 100
		}
		discount = price * pct / 100
	case DiscountAmount:
		discount = p.DiscountValue
	default:
		return 0
	}
	if discount > price {
		discount = price
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
