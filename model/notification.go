package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType represents the type/severity of notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// NotificationCategory represents the category of notification
type NotificationCategory string

const (
	NotificationCategoryPurchase   NotificationCategory = "purchase"
	NotificationCategorySettlement NotificationCategory = "settlement"
	NotificationCategoryPayout     NotificationCategory = "payout"
	NotificationCategoryGeneral    NotificationCategory = "general"
)

// UserNotification represents a notification for a user
type UserNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"index" json:"deleted_at,omitempty"`
	UserID    uint                 `gorm:"index;not null" json:"user_id"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `gorm:"default:false" json:"read"`
	OrderID   *uint                `gorm:"index" json:"order_id,omitempty"` // Link to Order if applicable
	Metadata  datatypes.JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relationships
	User  User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Order *Order `gorm:"foreignKey:OrderID" json:"-"`
}

// NotificationMetadata represents common metadata fields
type NotificationMetadata struct {
	OrderNumber string  `json:"order_number,omitempty"`
	CourseID    uint    `json:"course_id,omitempty"`
	CourseTitle string  `json:"course_title,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Method      string  `json:"method,omitempty"`
}

// NotificationResponse represents the API response format for a notification
type NotificationResponse struct {
	ID        uint                 `json:"id"`
	Type      NotificationType     `json:"type"`
	Category  NotificationCategory `json:"category"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Read      bool                 `json:"read"`
	OrderID   *uint                `json:"order_id,omitempty"`
	Metadata  datatypes.JSON       `json:"metadata,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ToResponse converts a UserNotification to NotificationResponse
func (n *UserNotification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Category:  n.Category,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		OrderID:   n.OrderID,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
