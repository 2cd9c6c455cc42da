package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/money"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the ledger sum
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrWithdrawalNotPending is returned when processing a withdrawal twice
	ErrWithdrawalNotPending = errors.New("withdrawal request already processed")
	// ErrWithdrawalNotFound is returned when a withdrawal request does not exist
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
)

// WalletService owns the append-only wallet ledger. Balance is always
// derived as the sum of a user's entries; debits re-check the balance
// inside the caller's transaction immediately before appending.
type WalletService struct {
	db *gorm.DB
}

// NewWalletService creates a new wallet service
func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// Balance sums the ledger for one user
func (s *WalletService) Balance(ctx context.Context, userID uint) (float64, error) {
	return s.balanceIn(ctx, s.db, userID)
}

func (s *WalletService) balanceIn(ctx context.Context, db *gorm.DB, userID uint) (float64, error) {
	var balance float64
	err := db.WithContext(ctx).Model(&model.WalletHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum wallet ledger: %w", err)
	}
	return money.Round(balance), nil
}

// Credit appends a positive ledger entry
func (s *WalletService) Credit(ctx context.Context, tx *gorm.DB, userID uint, amount float64, entryType, refType string, refID uint, note string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %.2f", amount)
	}
	return s.append(ctx, tx, userID, money.Round(amount), entryType, refType, refID, note)
}

// Debit re-checks the balance inside tx and appends a negative entry.
// The guard recheck plus the surrounding transaction prevents a concurrent
// withdrawal or second purchase from observing a stale balance.
func (s *WalletService) Debit(ctx context.Context, tx *gorm.DB, userID uint, amount float64, entryType, refType string, refID uint, note string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %.2f", amount)
	}
	amount = money.Round(amount)

	db := s.db
	if tx != nil {
		db = tx
	}

	balance, err := s.balanceIn(ctx, db, userID)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientBalance
	}

	return s.append(ctx, tx, userID, -amount, entryType, refType, refID, note)
}

func (s *WalletService) append(ctx context.Context, tx *gorm.DB, userID uint, amount float64, entryType, refType string, refID uint, note string) error {
	db := s.db
	if tx != nil {
		db = tx
	}

	entry := &model.WalletHistory{
		UserID:        userID,
		Amount:        amount,
		Type:          entryType,
		ReferenceType: refType,
		ReferenceID:   refID,
		Note:          note,
	}
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append wallet entry: %w", err)
	}
	return nil
}

// History returns a user's ledger entries, newest first
func (s *WalletService) History(ctx context.Context, userID uint, limit, offset int) ([]model.WalletHistory, int64, error) {
	var entries []model.WalletHistory
	var total int64

	query := s.db.WithContext(ctx).Model(&model.WalletHistory{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet entries: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet entries: %w", err)
	}
	return entries, total, nil
}

// RequestWithdrawal creates a pending payout request. The amount is only
// checked against the current balance here; the authoritative debit happens
// at approval time.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID uint, amount float64, note string) (*model.WithdrawalRequest, error) {
	amount = money.Round(amount)
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, ErrInsufficientBalance
	}

	request := &model.WithdrawalRequest{
		UserID: userID,
		Amount: amount,
		Status: model.WithdrawalStatusPending,
		Note:   note,
	}
	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return request, nil
}

// ProcessWithdrawal approves or rejects a pending request. Approval debits
// the ledger in the same transaction as the status flip.
func (s *WalletService) ProcessWithdrawal(ctx context.Context, requestID, adminID uint, approve bool, adminNote string) (*model.WithdrawalRequest, error) {
	var request model.WithdrawalRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawalNotFound
			}
			return err
		}
		if request.Status != model.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}

		status := model.WithdrawalStatusRejected
		if approve {
			status = model.WithdrawalStatusApproved
			if err := s.Debit(ctx, tx, request.UserID, request.Amount,
				model.WalletTypeWithdrawal, "withdrawal_request", request.ID, "payout to bank account"); err != nil {
				return err
			}
		}

		now := tx.NowFunc()
		request.Status = status
		request.AdminNote = adminNote
		request.ProcessedBy = &adminID
		request.ProcessedAt = &now
		return tx.Save(&request).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}
