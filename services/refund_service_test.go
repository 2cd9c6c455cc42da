package services

import (
	"context"
	"errors"
	"testing"

	"github.com/learnora/academy-api/model"
)

func TestRefundRequest(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	refunds := NewRefundService(db, stack.wallet)
	ctx := context.Background()

	seedTaxRule(t, db, "VAT", "", 10, true)

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)
	line := order.Courses[0]

	refund, err := refunds.Request(ctx, buyer.ID, line.ID, "changed my mind")
	if err != nil {
		t.Fatalf("Request() = %v", err)
	}

	// The refund covers the full line: price, certificate fee and tax
	if refund.Amount != 110 {
		t.Errorf("amount = %v, want 110 (100 price + 10 tax)", refund.Amount)
	}
	if refund.Status != model.RefundStatusPending {
		t.Errorf("status = %q, want pending", refund.Status)
	}

	// A second open request on the same line is refused
	if _, err := refunds.Request(ctx, buyer.ID, line.ID, "again"); !errors.Is(err, ErrRefundAlreadyRequested) {
		t.Errorf("duplicate Request() = %v, want ErrRefundAlreadyRequested", err)
	}
}

func TestRefundRequestGuards(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	refunds := NewRefundService(db, stack.wallet)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	stranger := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 50)

	pending, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}
	line := pending.Courses[0]

	// Pending orders cannot be refunded
	if _, err := refunds.Request(ctx, buyer.ID, line.ID, ""); !errors.Is(err, ErrLineNotRefundable) {
		t.Errorf("Request(pending line) = %v, want ErrLineNotRefundable", err)
	}

	// A stranger's probe looks identical to a missing line
	if _, err := refunds.Request(ctx, stranger.ID, line.ID, ""); !errors.Is(err, ErrRefundNotFound) {
		t.Errorf("Request(foreign line) = %v, want ErrRefundNotFound", err)
	}
	if _, err := refunds.Request(ctx, buyer.ID, 99999, ""); !errors.Is(err, ErrRefundNotFound) {
		t.Errorf("Request(missing line) = %v, want ErrRefundNotFound", err)
	}
}

func TestRefundApproval(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	refunds := NewRefundService(db, stack.wallet)
	ctx := context.Background()

	admin := createUser(t, db, model.RoleAdmin)
	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)
	line := order.Courses[0]

	refund, err := refunds.Request(ctx, buyer.ID, line.ID, "not what I expected")
	if err != nil {
		t.Fatalf("Request() = %v", err)
	}

	processed, err := refunds.Process(ctx, refund.ID, admin.ID, true)
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}
	if processed.Status != model.RefundStatusApproved {
		t.Errorf("status = %q, want approved", processed.Status)
	}
	if processed.ProcessedBy == nil || *processed.ProcessedBy != admin.ID {
		t.Errorf("processed by = %v, want admin %d", processed.ProcessedBy, admin.ID)
	}

	// Buyer gets the line total back as wallet credit
	buyerBalance, _ := stack.wallet.Balance(ctx, buyer.ID)
	if buyerBalance != 100 {
		t.Errorf("buyer balance = %v, want 100", buyerBalance)
	}

	// The paid commission is clawed back and cancelled
	instructorBalance, _ := stack.wallet.Balance(ctx, instructor.ID)
	if instructorBalance != 0 {
		t.Errorf("instructor balance = %v, want 0 after clawback", instructorBalance)
	}
	var commission model.Commission
	if err := db.Where("order_course_id = ?", line.ID).First(&commission).Error; err != nil {
		t.Fatalf("failed to load commission: %v", err)
	}
	if commission.Status != model.CommissionStatusCancelled {
		t.Errorf("commission status = %q, want cancelled", commission.Status)
	}

	// Double processing is refused
	if _, err := refunds.Process(ctx, refund.ID, admin.ID, true); !errors.Is(err, ErrRefundNotPending) {
		t.Errorf("second Process() = %v, want ErrRefundNotPending", err)
	}

	// An approved refund re-opens the course for purchase
	if _, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	}); err != nil {
		t.Errorf("repurchase after refund = %v, want success", err)
	}
}

func TestRefundClawbackMayOverdraw(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	refunds := NewRefundService(db, stack.wallet)
	ctx := context.Background()

	admin := createUser(t, db, model.RoleAdmin)
	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)
	line := order.Courses[0]

	// The instructor already withdrew the commission; the clawback must
	// still land, leaving the wallet negative
	request, err := stack.wallet.RequestWithdrawal(ctx, instructor.ID, 70, "")
	if err != nil {
		t.Fatalf("RequestWithdrawal() = %v", err)
	}
	if _, err := stack.wallet.ProcessWithdrawal(ctx, request.ID, admin.ID, true, ""); err != nil {
		t.Fatalf("ProcessWithdrawal() = %v", err)
	}

	refund, err := refunds.Request(ctx, buyer.ID, line.ID, "refund please")
	if err != nil {
		t.Fatalf("Request() = %v", err)
	}
	if _, err := refunds.Process(ctx, refund.ID, admin.ID, true); err != nil {
		t.Fatalf("Process() = %v", err)
	}

	balance, _ := stack.wallet.Balance(ctx, instructor.ID)
	if balance != -70 {
		t.Errorf("instructor balance = %v, want -70", balance)
	}
}

func TestRefundRejectionMovesNoMoney(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	refunds := NewRefundService(db, stack.wallet)
	ctx := context.Background()

	admin := createUser(t, db, model.RoleAdmin)
	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 60)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)
	line := order.Courses[0]

	refund, err := refunds.Request(ctx, buyer.ID, line.ID, "no reason")
	if err != nil {
		t.Fatalf("Request() = %v", err)
	}
	processed, err := refunds.Process(ctx, refund.ID, admin.ID, false)
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}
	if processed.Status != model.RefundStatusRejected {
		t.Errorf("status = %q, want rejected", processed.Status)
	}

	buyerBalance, _ := stack.wallet.Balance(ctx, buyer.ID)
	if buyerBalance != 0 {
		t.Errorf("buyer balance = %v, want 0", buyerBalance)
	}
	instructorBalance, _ := stack.wallet.Balance(ctx, instructor.ID)
	if instructorBalance != 42 {
		t.Errorf("instructor balance = %v, want 42 (70%% of 60 untouched)", instructorBalance)
	}

	// A rejected request does not block a fresh one
	if _, err := refunds.Request(ctx, buyer.ID, line.ID, "try again"); err != nil {
		t.Errorf("Request() after rejection = %v, want success", err)
	}
}
