package services

import (
	"context"
	"testing"

	"github.com/learnora/academy-api/model"
)

// placeCompletedOrder buys one course at listPrice and completes it with a
// successful gateway transaction, returning the settled order.
func placeCompletedOrder(t *testing.T, stack *checkoutStack, buyerID uint, courseID uint) *model.Order {
	t.Helper()
	ctx := context.Background()

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyerID,
		CourseID:      &courseID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}
	if order.IsCompleted() {
		return order
	}

	txn := &model.Transaction{
		TxnID:         "pi_" + order.OrderNumber,
		Amount:        order.FinalPrice,
		PaymentMethod: model.PaymentMethodStripe,
		Status:        model.TransactionStatusSuccess,
	}
	completed, err := stack.orders.Complete(ctx, order.ID, txn)
	if err != nil {
		t.Fatalf("Complete() = %v", err)
	}
	return completed
}

func TestSettleSplitsCommission(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)

	var commission model.Commission
	if err := db.Where("order_id = ?", order.ID).First(&commission).Error; err != nil {
		t.Fatalf("failed to load commission: %v", err)
	}

	// Default split is 70/30 on the net line price
	if commission.GrossAmount != 100 {
		t.Errorf("gross = %v, want 100", commission.GrossAmount)
	}
	if commission.InstructorShare != 70 || commission.PlatformShare != 30 {
		t.Errorf("split = %v/%v, want 70/30", commission.InstructorShare, commission.PlatformShare)
	}
	if commission.Status != model.CommissionStatusPaid || commission.PaidAt == nil {
		t.Errorf("commission = %+v, want paid with timestamp", commission)
	}
	if commission.InstructorID != instructor.ID {
		t.Errorf("instructor id = %d, want %d", commission.InstructorID, instructor.ID)
	}

	balance, err := stack.wallet.Balance(ctx, instructor.ID)
	if err != nil {
		t.Fatalf("Balance() = %v", err)
	}
	if balance != 70 {
		t.Errorf("instructor balance = %v, want 70", balance)
	}

	// Both sides got notified
	var notifCount int64
	db.Model(&model.UserNotification{}).Where("user_id = ?", instructor.ID).Count(&notifCount)
	if notifCount != 1 {
		t.Errorf("instructor notifications = %d, want 1", notifCount)
	}
	db.Model(&model.UserNotification{}).Where("user_id = ?", buyer.ID).Count(&notifCount)
	if notifCount != 1 {
		t.Errorf("buyer notifications = %d, want 1", notifCount)
	}
}

func TestSettleHonorsConfiguredRate(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	if err := stack.settings.Set(ctx, SettingInstructorCommissionRate, "55"); err != nil {
		t.Fatalf("Set() = %v", err)
	}

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 200)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)

	var commission model.Commission
	if err := db.Where("order_id = ?", order.ID).First(&commission).Error; err != nil {
		t.Fatalf("failed to load commission: %v", err)
	}
	if commission.RatePercent != 55 {
		t.Errorf("rate = %v, want 55", commission.RatePercent)
	}
	if commission.InstructorShare != 110 || commission.PlatformShare != 90 {
		t.Errorf("split = %v/%v, want 110/90", commission.InstructorShare, commission.PlatformShare)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 120)
	withLessons(t, db, course, 4)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)

	// A retried settlement (crashed worker, duplicate webhook) must not pay
	// the instructor twice or duplicate enrollment rows
	stack.settlement.Settle(ctx, order.ID)
	stack.settlement.Settle(ctx, order.ID)

	var commissionCount int64
	db.Model(&model.Commission{}).Where("order_id = ?", order.ID).Count(&commissionCount)
	if commissionCount != 1 {
		t.Errorf("commissions = %d, want 1", commissionCount)
	}

	balance, err := stack.wallet.Balance(ctx, instructor.ID)
	if err != nil {
		t.Fatalf("Balance() = %v", err)
	}
	if balance != 84 {
		t.Errorf("instructor balance = %v, want 84 (70%% of 120, once)", balance)
	}

	var trackCount int64
	db.Model(&model.LessonTrack{}).Where("user_id = ?", buyer.ID).Count(&trackCount)
	if trackCount != 4 {
		t.Errorf("lesson tracks = %d, want 4", trackCount)
	}

	// The sale notification is tied to the run that paid the commission
	var notifCount int64
	db.Model(&model.UserNotification{}).Where("user_id = ?", instructor.ID).Count(&notifCount)
	if notifCount != 1 {
		t.Errorf("instructor notifications = %d, want 1 after re-settlement", notifCount)
	}
}

func TestSettleSkipsPendingOrder(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 90)
	withLessons(t, db, course, 2)

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	stack.settlement.Settle(ctx, order.ID)

	var commissionCount int64
	db.Model(&model.Commission{}).Count(&commissionCount)
	if commissionCount != 0 {
		t.Errorf("commissions = %d, want 0 for a pending order", commissionCount)
	}
	var trackCount int64
	db.Model(&model.LessonTrack{}).Count(&trackCount)
	if trackCount != 0 {
		t.Errorf("lesson tracks = %d, want 0 for a pending order", trackCount)
	}
}
