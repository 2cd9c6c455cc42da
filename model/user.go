package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, instructor, admin
	Country      string         `gorm:"type:varchar(2)" json:"country"`                 // ISO 3166-1 alpha-2, tax fallback when geolocation fails
	Title        string         `gorm:"type:varchar(255)" json:"title"`                 // Instructor headline
	Biography    string         `gorm:"type:text" json:"biography"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Relationships
	BillingDetail  *BillingDetail      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"billing_detail,omitempty"`
	Orders         []Order             `gorm:"foreignKey:UserID" json:"-"`
	CartItems      []CartItem          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	WalletHistory  []WalletHistory     `gorm:"foreignKey:UserID" json:"-"`
	Commissions    []Commission        `gorm:"foreignKey:InstructorID" json:"-"`
	AdminAuditLog  []AdminAuditLog     `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsInstructor reports whether the user can own courses and promo codes
func (u *User) IsInstructor() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}

// BillingDetail holds the billing address required before paid checkout
type BillingDetail struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	UserID     uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	AddressOne string         `gorm:"type:varchar(255);not null" json:"address_one"`
	AddressTwo string         `gorm:"type:varchar(255)" json:"address_two"`
	City       string         `gorm:"type:varchar(100);not null" json:"city"`
	State      string         `gorm:"type:varchar(100)" json:"state"`
	PostalCode string         `gorm:"type:varchar(20)" json:"postal_code"`
	Country    string         `gorm:"type:varchar(2);not null" json:"country"`
	Phone      string         `gorm:"type:varchar(30)" json:"phone"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for BillingDetail
func (BillingDetail) TableName() string {
	return "billing_details"
}
