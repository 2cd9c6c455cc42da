package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/crypto"
	"gorm.io/gorm"
)

// ErrNoPayoutAccount is returned when a user has no saved bank account
var ErrNoPayoutAccount = errors.New("no payout account on file")

// PayoutAccountService encrypts instructor bank details at rest. Each
// account gets a fresh salt; the AES key is derived from the server-side
// payout secret so a database dump alone cannot recover the numbers.
type PayoutAccountService struct {
	db     *gorm.DB
	secret string
}

// NewPayoutAccountService creates a new payout account service
func NewPayoutAccountService(db *gorm.DB, secret string) *PayoutAccountService {
	return &PayoutAccountService{db: db, secret: secret}
}

// Save creates or replaces the user's payout account
func (s *PayoutAccountService) Save(ctx context.Context, userID uint, bankName, accountNumber, holderName string) (*model.PayoutAccount, error) {
	if len(accountNumber) < 4 {
		return nil, fmt.Errorf("account number too short")
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	key := crypto.DeriveKey(s.secret, salt)

	encAccount, accountNonce, err := crypto.EncryptData([]byte(accountNumber), key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt account number: %w", err)
	}
	encHolder, holderNonce, err := crypto.EncryptData([]byte(holderName), key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt holder name: %w", err)
	}

	account := &model.PayoutAccount{
		UserID:           userID,
		BankName:         bankName,
		AccountLastFour:  accountNumber[len(accountNumber)-4:],
		EncryptedAccount: encAccount,
		EncryptedHolder:  encHolder,
		Nonce:            accountNonce,
		HolderNonce:      holderNonce,
		Salt:             salt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// hard-delete any previous account so the unique index stays clean
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&model.PayoutAccount{}).Error; err != nil {
			return fmt.Errorf("failed to replace payout account: %w", err)
		}
		return tx.Create(account).Error
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Get returns the user's account with encrypted fields untouched
func (s *PayoutAccountService) Get(ctx context.Context, userID uint) (*model.PayoutAccount, error) {
	var account model.PayoutAccount
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPayoutAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payout account: %w", err)
	}
	return &account, nil
}

// Reveal decrypts the account number and holder name for admin payout
// processing
func (s *PayoutAccountService) Reveal(ctx context.Context, userID uint) (accountNumber, holderName string, err error) {
	account, err := s.Get(ctx, userID)
	if err != nil {
		return "", "", err
	}

	key := crypto.DeriveKey(s.secret, account.Salt)
	rawAccount, err := crypto.DecryptData(account.EncryptedAccount, account.Nonce, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt account number: %w", err)
	}
	rawHolder, err := crypto.DecryptData(account.EncryptedHolder, account.HolderNonce, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt holder name: %w", err)
	}
	return string(rawAccount), string(rawHolder), nil
}

// Delete removes the user's payout account
func (s *PayoutAccountService) Delete(ctx context.Context, userID uint) error {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.PayoutAccount{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete payout account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoPayoutAccount
	}
	return nil
}
