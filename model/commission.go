package model

import (
	"time"
)

// Commission statuses
const (
	CommissionStatusPending   = "pending"
	CommissionStatusPaid      = "paid" // Credited to the instructor's wallet ledger
	CommissionStatusCancelled = "cancelled"
)

// Commission splits one purchased course's recognized revenue (excluding tax)
// between the instructor and the platform. "paid" means the instructor share
// was credited to their wallet ledger; moving money to a bank account is the
// separate withdrawal-request flow.
type Commission struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	InstructorID    uint      `gorm:"not null;index" json:"instructor_id"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	OrderCourseID   uint      `gorm:"not null;uniqueIndex" json:"order_course_id"`
	CourseID        uint      `gorm:"not null;index" json:"course_id"`
	GrossAmount     float64   `gorm:"not null" json:"gross_amount"` // Line price excl. tax
	RatePercent     float64   `gorm:"not null" json:"rate_percent"` // Instructor share at settlement time
	InstructorShare float64   `gorm:"not null" json:"instructor_share"`
	PlatformShare   float64   `gorm:"not null" json:"platform_share"`
	Status          string    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	// Relationships
	Instructor  User        `gorm:"foreignKey:InstructorID" json:"-"`
	Order       Order       `gorm:"foreignKey:OrderID" json:"-"`
	OrderCourse OrderCourse `gorm:"foreignKey:OrderCourseID" json:"-"`
	Course      Course      `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// TableName specifies the table name for Commission
func (Commission) TableName() string {
	return "commissions"
}
