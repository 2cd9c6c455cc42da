package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/money"
	"gorm.io/gorm"
)

var (
	// ErrEmptyOrder is returned when there is nothing to buy
	ErrEmptyOrder = errors.New("order has no courses")
	// ErrCourseNotAvailable is returned for unknown or unpublished courses
	ErrCourseNotAvailable = errors.New("course is not available for purchase")
	// ErrAlreadyPurchased is returned when the buyer already owns a course
	ErrAlreadyPurchased = errors.New("course already purchased")
	// ErrBillingRequired is returned when a paid order lacks billing details
	ErrBillingRequired = errors.New("billing details are required for paid orders")
	// ErrOrderNotFound is returned when an order does not exist
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPending is returned when completing an order twice
	ErrOrderNotPending = errors.New("order is not pending")
)

// OrderService assembles checkout orders: it resolves per-course pricing,
// applies promo codes, computes tax on the post-discount base and writes
// the order with its line items in a single transaction. Free and fully
// discounted orders complete inline; everything else stays pending for
// the payment dispatcher.
type OrderService struct {
	db         *gorm.DB
	pricing    *PricingService
	promos     *PromoService
	settings   *SettingsService
	settlement *SettlementService
}

// NewOrderService creates a new order service
func NewOrderService(db *gorm.DB, pricing *PricingService, promos *PromoService, settings *SettingsService, settlement *SettlementService) *OrderService {
	return &OrderService{
		db:         db,
		pricing:    pricing,
		promos:     promos,
		settings:   settings,
		settlement: settlement,
	}
}

// PlaceOrderInput carries one checkout request. CourseID selects buy-now
// mode; FromCart selects cart mode. Exactly one must be set.
type PlaceOrderInput struct {
	UserID          uint
	CourseID        *uint
	FromCart        bool
	PaymentMethod   string
	PromoCode       string
	WithCertificate bool
	ClientIP        string
}

// PlaceOrder runs the full assembly. The returned order is completed for
// the free fast paths and pending otherwise.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*model.Order, error) {
	var buyer model.User
	err := s.db.WithContext(ctx).Preload("BillingDetail").First(&buyer, input.UserID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}

	courses, err := s.collectCourses(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, ErrEmptyOrder
	}

	for _, course := range courses {
		owned, err := s.alreadyOwns(ctx, input.UserID, course.ID)
		if err != nil {
			return nil, err
		}
		if owned {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyPurchased, course.Title)
		}
	}

	var promo *model.PromoCode
	if code := strings.TrimSpace(input.PromoCode); code != "" {
		promo, err = s.promos.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if err := s.promos.Validate(promo); err != nil {
			return nil, err
		}
	}

	country := s.pricing.ResolveCountry(ctx, &buyer, input.ClientIP)

	certFee := 0.0
	if input.WithCertificate {
		certFee = s.settings.CertificateFee(ctx)
	}

	var (
		lines          []model.OrderCourse
		total          float64
		tax            float64
		totalDiscount  float64
		anyPaidLine    bool
		anyDiscounting bool
	)
	for _, course := range courses {
		quote, err := s.pricing.QuoteCourse(ctx, &course, country)
		if err != nil {
			return nil, err
		}

		discount := 0.0
		var linePromoID *uint
		if promo != nil && quote.BasePrice > 0 {
			discount, err = s.promos.Evaluate(ctx, promo, course.ID, quote.BasePrice)
			if err != nil {
				return nil, err
			}
			if discount > 0 {
				id := promo.ID
				linePromoID = &id
				anyDiscounting = true
			}
		}

		price := money.Round(quote.BasePrice - discount)
		lineCertFee := 0.0
		if input.WithCertificate && input.CourseID != nil {
			lineCertFee = certFee
		}
		lineTax := quote.TaxOn(price + lineCertFee)

		if quote.BasePrice > 0 {
			anyPaidLine = true
		}

		lines = append(lines, model.OrderCourse{
			CourseID:        course.ID,
			PromoCodeID:     linePromoID,
			Price:           price,
			DiscountAmount:  discount,
			TaxPrice:        lineTax,
			WithCertificate: lineCertFee > 0,
			CertificateFee:  lineCertFee,
		})
		total += price + lineCertFee
		tax += lineTax
		totalDiscount += discount
	}

	total = money.Round(total)
	tax = money.Round(tax)
	final := money.Round(total + tax)

	if anyPaidLine && buyer.BillingDetail == nil {
		return nil, ErrBillingRequired
	}

	order := &model.Order{
		UserID:         input.UserID,
		OrderNumber:    newOrderNumber(),
		PaymentMethod:  input.PaymentMethod,
		Status:         model.OrderStatusPending,
		TotalPrice:     total,
		TaxPrice:       tax,
		FinalPrice:     final,
		DiscountAmount: money.Round(totalDiscount),
		FromCart:       input.FromCart,
		Courses:        lines,
	}
	if promo != nil && anyDiscounting {
		id := promo.ID
		order.PromoCodeID = &id
	}
	if final <= 0 {
		order.PaymentMethod = model.PaymentMethodFree
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if final > 0 {
			return nil
		}

		// Free fast paths. A discounted-to-zero order still records a
		// zero-amount transaction under its synthetic id; a genuinely
		// free order records none.
		var txn *model.Transaction
		if anyDiscounting || totalDiscount > 0 {
			txn = &model.Transaction{
				OrderID:       order.ID,
				TxnID:         uuid.NewString(),
				Amount:        0,
				PaymentMethod: model.PaymentMethodFree,
				Status:        model.TransactionStatusSuccess,
				Message:       "order fully covered by discount",
			}
		}
		return s.completeInTx(ctx, tx, order, txn)
	})
	if err != nil {
		return nil, err
	}

	if order.IsCompleted() {
		s.settlement.Settle(ctx, order.ID)
	}
	return order, nil
}

// collectCourses resolves the purchasable course set for the request
func (s *OrderService) collectCourses(ctx context.Context, input PlaceOrderInput) ([]model.Course, error) {
	if input.CourseID != nil {
		var course model.Course
		err := s.db.WithContext(ctx).
			Where("id = ? AND status = ?", *input.CourseID, model.CourseStatusPublished).
			First(&course).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotAvailable
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load course: %w", err)
		}
		return []model.Course{course}, nil
	}

	if !input.FromCart {
		return nil, ErrEmptyOrder
	}

	var items []model.CartItem
	err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", input.UserID).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var courses []model.Course
	for _, item := range items {
		if item.Course.ID == 0 || item.Course.Status != model.CourseStatusPublished {
			return nil, fmt.Errorf("%w: cart item %d", ErrCourseNotAvailable, item.CourseID)
		}
		courses = append(courses, item.Course)
	}
	return courses, nil
}

// alreadyOwns reports whether the buyer holds a completed, non-refunded
// purchase of the course. An approved refund re-opens the purchase.
func (s *OrderService) alreadyOwns(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.OrderCourse{}).
		Joins("JOIN orders ON orders.id = order_courses.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_courses.course_id = ?",
			userID, model.OrderStatusCompleted, courseID).
		Where("NOT EXISTS (SELECT 1 FROM refunds WHERE refunds.order_course_id = order_courses.id AND refunds.status = ?)",
			model.RefundStatusApproved).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check prior purchases: %w", err)
	}
	return count > 0, nil
}

// Complete flips a pending order to completed, records the transaction,
// consumes promo quota, clears the cart, then settles. Safe to call from
// concurrent webhook deliveries: the guarded status update makes a second
// call a no-op error.
func (s *OrderService) Complete(ctx context.Context, orderID uint, txn *model.Transaction) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Preload("Courses").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.completeInTx(ctx, tx, &order, txn)
	})
	if err != nil {
		return nil, err
	}

	s.settlement.Settle(ctx, order.ID)
	return &order, nil
}

// completeInTx performs the completion bookkeeping inside tx. The caller
// invokes settlement after commit; settlement must never roll back a
// completed order.
func (s *OrderService) completeInTx(ctx context.Context, tx *gorm.DB, order *model.Order, txn *model.Transaction) error {
	now := time.Now()
	txnID := ""
	if txn != nil {
		txnID = txn.TxnID
	}

	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", order.ID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":         model.OrderStatusCompleted,
			"completed_at":   now,
			"transaction_id": txnID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotPending
	}
	order.Status = model.OrderStatusCompleted
	order.CompletedAt = &now
	order.TransactionID = txnID

	// A transaction that already has an ID was recorded earlier in the
	// flow (bank-transfer receipts); only fresh ones are inserted here
	if txn != nil && txn.ID == 0 {
		txn.OrderID = order.ID
		if err := tx.WithContext(ctx).Create(txn).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
	}

	// One quota slot per distinct code actually applied on this order
	consumed := map[uint]bool{}
	for _, line := range order.Courses {
		if line.PromoCodeID == nil || consumed[*line.PromoCodeID] {
			continue
		}
		if err := s.promos.ConsumeQuota(ctx, tx, *line.PromoCodeID); err != nil {
			return err
		}
		consumed[*line.PromoCodeID] = true
	}
	if order.PromoCodeID != nil && !consumed[*order.PromoCodeID] {
		if err := s.promos.ConsumeQuota(ctx, tx, *order.PromoCodeID); err != nil {
			return err
		}
	}

	if order.FromCart {
		courseIDs := make([]uint, 0, len(order.Courses))
		for _, line := range order.Courses {
			courseIDs = append(courseIDs, line.CourseID)
		}
		if len(courseIDs) > 0 {
			err := tx.WithContext(ctx).
				Where("user_id = ? AND course_id IN ?", order.UserID, courseIDs).
				Delete(&model.CartItem{}).Error
			if err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}
		}
	}

	return nil
}

// GetOrder returns one order with lines, scoped to its owner
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).
		Preload("Courses").Preload("Courses.Course").Preload("PromoCode").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// ListOrders returns a user's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID uint, limit, offset int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	err := query.Preload("Courses").Preload("Courses.Course").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// FindByOrderNumber looks up an order by its public number, used by
// webhook handlers that carry the number as gateway metadata
func (s *OrderService) FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Preload("Courses").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString())
}
