package model

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction statuses
const (
	TransactionStatusPending = "pending"
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
)

// Transaction is one payment attempt against an order. Rows are append-only
// and form the audit trail; they are never soft-deleted.
type Transaction struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	OrderID       uint           `gorm:"not null;index" json:"order_id"`
	TxnID         string         `gorm:"type:varchar(100);index;not null" json:"txn_id"` // Gateway reference or synthetic id
	Amount        float64        `gorm:"not null" json:"amount"`
	PaymentMethod string         `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        string         `gorm:"type:varchar(20);not null" json:"status"`
	Message       string         `gorm:"type:text" json:"message"`
	ReceiptKey    string         `gorm:"type:varchar(512)" json:"receipt_key,omitempty"` // Spaces object key for bank-transfer receipts
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`           // Gateway payload snapshot

	// Relationships
	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}
