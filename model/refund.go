package model

import (
	"time"
)

// Refund statuses
const (
	RefundStatusPending  = "pending"
	RefundStatusApproved = "approved"
	RefundStatusRejected = "rejected"
)

// Refund is a buyer's request to reverse one purchased course line. An
// approved refund makes that course re-purchasable for the buyer.
type Refund struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	OrderID       uint       `gorm:"not null;index" json:"order_id"`
	OrderCourseID uint       `gorm:"not null;index" json:"order_course_id"`
	CourseID      uint       `gorm:"not null;index" json:"course_id"`
	Amount        float64    `gorm:"not null" json:"amount"`
	Reason        string     `gorm:"type:text" json:"reason"`
	Status        string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	ProcessedBy   *uint      `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`

	// Relationships
	User        User        `gorm:"foreignKey:UserID" json:"-"`
	Order       Order       `gorm:"foreignKey:OrderID" json:"-"`
	OrderCourse OrderCourse `gorm:"foreignKey:OrderCourseID" json:"-"`
}

// TableName specifies the table name for Refund
func (Refund) TableName() string {
	return "refunds"
}
