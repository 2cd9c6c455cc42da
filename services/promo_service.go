package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/money"
	"gorm.io/gorm"
)

var (
	// ErrPromoNotFound is returned when a promo code does not exist
	ErrPromoNotFound = errors.New("promo code not found")
	// ErrPromoInactive is returned when a promo code is disabled
	ErrPromoInactive = errors.New("promo code is not active")
	// ErrPromoOutsideWindow is returned when today is outside the validity window
	ErrPromoOutsideWindow = errors.New("promo code is not valid today")
	// ErrPromoExhausted is returned when the usage quota is spent
	ErrPromoExhausted = errors.New("promo code usage limit reached")
	// ErrPromoNotApplicable is returned when an instructor-owned code is not
	// attached to the target course
	ErrPromoNotApplicable = errors.New("promo code does not apply to this course")
)

// PromoService validates promo codes and computes discounts. It never
// decrements the usage quota: that is deferred to order completion so an
// abandoned pending order cannot consume a quota slot.
type PromoService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPromoService creates a new promo service
func NewPromoService(db *gorm.DB) *PromoService {
	return &PromoService{db: db, now: time.Now}
}

// FindByCode looks up an active-or-not promo code by its literal code
func (s *PromoService) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	var promo model.PromoCode
	err := s.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("failed to look up promo code: %w", err)
	}
	return &promo, nil
}

// Validate checks status, validity window and quota. It does not check
// course scope; see Evaluate.
func (s *PromoService) Validate(promo *model.PromoCode) error {
	if !promo.Active {
		return ErrPromoInactive
	}
	if !promo.WithinWindow(s.now()) {
		return ErrPromoOutsideWindow
	}
	if promo.Exhausted() {
		return ErrPromoExhausted
	}
	return nil
}

// AppliesTo reports whether the code may discount the given course.
// Admin-owned codes apply to any course; instructor-owned codes only to
// courses explicitly attached via the join table. This is a capability
// check, not a data filter.
func (s *PromoService) AppliesTo(ctx context.Context, promo *model.PromoCode, courseID uint) (bool, error) {
	if promo.OwnerRole == model.PromoOwnerAdmin {
		return true, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Table("promo_code_courses").
		Where("promo_code_id = ? AND course_id = ?", promo.ID, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check promo scope: %w", err)
	}
	return count > 0, nil
}

// Evaluate validates the code against the course and computes the discount
// on price. An out-of-scope code yields a zero discount with no error so
// that unauthorized contexts cannot probe for a code's existence; window,
// status and quota violations do error, because the caller legitimately
// holds the code in those cases.
func (s *PromoService) Evaluate(ctx context.Context, promo *model.PromoCode, courseID uint, price float64) (float64, error) {
	if err := s.Validate(promo); err != nil {
		return 0, err
	}

	applies, err := s.AppliesTo(ctx, promo, courseID)
	if err != nil {
		return 0, err
	}
	if !applies {
		// Reject silently: treat as "no promo applied"
		return 0, nil
	}

	return money.Round(promo.DiscountOn(price)), nil
}

// ConsumeQuota atomically decrements the remaining quota, guarded by a
// conditional predicate so concurrent completions cannot over-redeem the
// last slot. Unlimited (nil quota) codes are untouched. Called only when
// an order actually completes.
func (s *PromoService) ConsumeQuota(ctx context.Context, tx *gorm.DB, promoID uint) error {
	db := s.db
	if tx != nil {
		db = tx
	}

	result := db.WithContext(ctx).Model(&model.PromoCode{}).
		Where("id = ? AND (quota IS NULL OR quota > 0)", promoID).
		Update("quota", gorm.Expr("CASE WHEN quota IS NULL THEN NULL ELSE quota - 1 END"))
	if result.Error != nil {
		return fmt.Errorf("failed to consume promo quota: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPromoExhausted
	}
	return nil
}
