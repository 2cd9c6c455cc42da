package model

import (
	"time"
)

// Wallet history entry types
const (
	WalletTypeTopUp      = "top_up"
	WalletTypePurchase   = "course_purchase"
	WalletTypeCommission = "commission"
	WalletTypeWithdrawal = "withdrawal"
	WalletTypeRefund     = "refund"
)

// Withdrawal request statuses
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

// WalletHistory is the append-only wallet ledger. A user's balance is the
// sum of their entries: credits positive, debits negative.
type WalletHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Amount        float64   `gorm:"not null" json:"amount"` // Signed
	Type          string    `gorm:"type:varchar(30);not null" json:"type"`
	ReferenceType string    `gorm:"type:varchar(30)" json:"reference_type"` // order, commission, withdrawal_request
	ReferenceID   uint      `gorm:"index" json:"reference_id"`
	Note          string    `gorm:"type:varchar(255)" json:"note"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for WalletHistory
func (WalletHistory) TableName() string {
	return "wallet_histories"
}

// WithdrawalRequest is an instructor's request to move accumulated wallet
// balance to their bank account. Approval debits the ledger.
type WithdrawalRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Amount      float64    `gorm:"not null" json:"amount"`
	Status      string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Note        string     `gorm:"type:varchar(255)" json:"note"`
	AdminNote   string     `gorm:"type:varchar(255)" json:"admin_note"`
	ProcessedBy *uint      `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for WithdrawalRequest
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
