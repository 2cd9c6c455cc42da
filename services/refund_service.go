package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/money"
	"gorm.io/gorm"
)

var (
	// ErrRefundNotFound is returned when a refund request does not exist
	ErrRefundNotFound = errors.New("refund request not found")
	// ErrRefundNotPending is returned when processing a refund twice
	ErrRefundNotPending = errors.New("refund request already processed")
	// ErrRefundAlreadyRequested is returned for duplicate open requests on
	// the same purchase
	ErrRefundAlreadyRequested = errors.New("refund already requested for this purchase")
	// ErrLineNotRefundable is returned for lines on orders that never completed
	ErrLineNotRefundable = errors.New("only completed purchases can be refunded")
)

// RefundService handles per-line refund requests. Approval credits the
// buyer's wallet with the line total (price, certificate fee and tax) and
// cancels the line's commission, clawing the instructor share back from
// their wallet. The approved row also re-opens the course for repurchase.
type RefundService struct {
	db     *gorm.DB
	wallet *WalletService
}

// NewRefundService creates a new refund service
func NewRefundService(db *gorm.DB, wallet *WalletService) *RefundService {
	return &RefundService{db: db, wallet: wallet}
}

// Request opens a refund request for one purchased course line
func (s *RefundService) Request(ctx context.Context, userID, orderCourseID uint, reason string) (*model.Refund, error) {
	var line model.OrderCourse
	err := s.db.WithContext(ctx).Preload("Order").First(&line, orderCourseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order line: %w", err)
	}

	if line.Order.UserID != userID {
		return nil, ErrRefundNotFound
	}
	if !line.Order.IsCompleted() {
		return nil, ErrLineNotRefundable
	}

	var open int64
	err = s.db.WithContext(ctx).Model(&model.Refund{}).
		Where("order_course_id = ? AND status IN ?", orderCourseID,
			[]string{model.RefundStatusPending, model.RefundStatusApproved}).
		Count(&open).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing refunds: %w", err)
	}
	if open > 0 {
		return nil, ErrRefundAlreadyRequested
	}

	refund := &model.Refund{
		UserID:        userID,
		OrderID:       line.OrderID,
		OrderCourseID: line.ID,
		CourseID:      line.CourseID,
		Amount:        money.Round(line.Price + line.CertificateFee + line.TaxPrice),
		Reason:        reason,
		Status:        model.RefundStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(refund).Error; err != nil {
		return nil, fmt.Errorf("failed to create refund request: %w", err)
	}
	return refund, nil
}

// Process approves or rejects a pending refund. Approval runs the wallet
// credit and commission clawback in one transaction with the status flip.
func (s *RefundService) Process(ctx context.Context, refundID, adminID uint, approve bool) (*model.Refund, error) {
	var refund model.Refund

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&refund, refundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefundNotFound
			}
			return err
		}
		if refund.Status != model.RefundStatusPending {
			return ErrRefundNotPending
		}

		status := model.RefundStatusRejected
		if approve {
			status = model.RefundStatusApproved

			if refund.Amount > 0 {
				if err := s.wallet.Credit(ctx, tx, refund.UserID, refund.Amount,
					model.WalletTypeRefund, "refund", refund.ID,
					fmt.Sprintf("refund for course %d", refund.CourseID)); err != nil {
					return err
				}
			}

			if err := s.cancelCommission(ctx, tx, &refund); err != nil {
				return err
			}
		}

		now := time.Now()
		refund.Status = status
		refund.ProcessedBy = &adminID
		refund.ProcessedAt = &now
		return tx.Save(&refund).Error
	})
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// cancelCommission reverses the settled commission for the refunded line.
// A paid commission's instructor share is debited back; the clawback may
// push past the balance guard, so it bypasses Debit and appends directly.
func (s *RefundService) cancelCommission(ctx context.Context, tx *gorm.DB, refund *model.Refund) error {
	var commission model.Commission
	err := tx.Where("order_course_id = ?", refund.OrderCourseID).First(&commission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // Free line, nothing was settled
	}
	if err != nil {
		return fmt.Errorf("failed to load commission: %w", err)
	}
	if commission.Status == model.CommissionStatusCancelled {
		return nil
	}

	if commission.Status == model.CommissionStatusPaid && commission.InstructorShare > 0 {
		entry := &model.WalletHistory{
			UserID:        commission.InstructorID,
			Amount:        -commission.InstructorShare,
			Type:          model.WalletTypeRefund,
			ReferenceType: "refund",
			ReferenceID:   refund.ID,
			Note:          fmt.Sprintf("commission reversal for refund %d", refund.ID),
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to reverse commission: %w", err)
		}
	}

	commission.Status = model.CommissionStatusCancelled
	if err := tx.Save(&commission).Error; err != nil {
		return fmt.Errorf("failed to cancel commission: %w", err)
	}
	return nil
}

// ListForUser returns a buyer's refund requests
func (s *RefundService) ListForUser(ctx context.Context, userID uint) ([]model.Refund, error) {
	var refunds []model.Refund
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	return refunds, nil
}

// ListPending returns open refund requests for the admin queue
func (s *RefundService) ListPending(ctx context.Context) ([]model.Refund, error) {
	var refunds []model.Refund
	err := s.db.WithContext(ctx).
		Where("status = ?", model.RefundStatusPending).
		Order("created_at ASC").
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending refunds: %w", err)
	}
	return refunds, nil
}
