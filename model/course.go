package model

import (
	"time"

	"gorm.io/gorm"
)

// Course statuses
const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

// Course represents a purchasable course in the marketplace
type Course struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	InstructorID  uint           `gorm:"not null;index" json:"instructor_id"`
	Title         string         `gorm:"not null" json:"title"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description   string         `gorm:"type:text" json:"description"`
	Language      string         `gorm:"type:varchar(20);default:'english'" json:"language"`
	Level         string         `gorm:"type:varchar(20)" json:"level"` // beginner, intermediate, advanced
	Status        string         `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	IsFree        bool           `gorm:"default:false" json:"is_free"`
	ListPrice     float64        `gorm:"default:0" json:"list_price"`
	DiscountPrice float64        `gorm:"default:0" json:"discount_price"` // 0 = no discount, takes precedence when set
	Thumbnail     string         `gorm:"type:varchar(512)" json:"thumbnail"`

	// Relationships
	Instructor User      `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Sections   []Section `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"sections,omitempty"`
}

// BasePrice returns the effective sale price before promo and tax:
// the discount price when one is set, the list price otherwise.
func (c *Course) BasePrice() float64 {
	if c.IsFree {
		return 0
	}
	if c.DiscountPrice > 0 {
		return c.DiscountPrice
	}
	return c.ListPrice
}

// Section groups lessons within a course curriculum
type Section struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"`
	Title     string         `gorm:"not null" json:"title"`
	Position  int            `gorm:"default:0" json:"position"`

	// Relationships
	Course  Course   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Lessons []Lesson `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson is a single curriculum item (video, article, quiz)
type Lesson struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	SectionID uint           `gorm:"not null;index" json:"section_id"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"` // Denormalized for tracking queries
	Title     string         `gorm:"not null" json:"title"`
	Type      string         `gorm:"type:varchar(20);default:'video'" json:"type"`
	Duration  int            `gorm:"default:0" json:"duration_seconds"`
	Position  int            `gorm:"default:0" json:"position"`

	// Relationships
	Section Section `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"-"`
}

// CartItem is one course sitting in a buyer's cart
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_course" json:"course_id"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for CartItem
func (CartItem) TableName() string {
	return "cart_items"
}
