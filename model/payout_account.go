package model

import (
	"time"

	"gorm.io/gorm"
)

// PayoutAccount stores an instructor's bank details for withdrawal payouts.
// Account number and holder name are encrypted at rest (AES-256-GCM, key
// derived from the payout secret via Argon2id); only the last four digits
// are kept in the clear for display.
type PayoutAccount struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	UserID           uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	BankName         string         `gorm:"type:varchar(100);not null" json:"bank_name"`
	AccountLastFour  string         `gorm:"type:varchar(4)" json:"account_last_four"`
	EncryptedAccount []byte         `gorm:"type:bytea;not null" json:"-"`
	EncryptedHolder  []byte         `gorm:"type:bytea;not null" json:"-"`
	Nonce            []byte         `gorm:"type:bytea;not null" json:"-"`
	HolderNonce      []byte         `gorm:"type:bytea;not null" json:"-"`
	Salt             []byte         `gorm:"type:bytea;not null" json:"-"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for PayoutAccount
func (PayoutAccount) TableName() string {
	return "payout_accounts"
}
