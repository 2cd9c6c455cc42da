package services

import (
	"context"
	"errors"
	"testing"

	"github.com/learnora/academy-api/model"
)

func TestPlaceOrderPaid(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	seedTaxRule(t, db, "GST", "IN", 18, true)

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "IN")
	course := createCourse(t, db, instructor.ID, 100)

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	if order.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want pending", order.Status)
	}
	if order.TotalPrice != 100 {
		t.Errorf("total = %v, want 100", order.TotalPrice)
	}
	if order.TaxPrice != 18 {
		t.Errorf("tax = %v, want 18", order.TaxPrice)
	}
	if order.FinalPrice != 118 {
		t.Errorf("final = %v, want 118", order.FinalPrice)
	}
	if len(order.Courses) != 1 {
		t.Fatalf("lines = %d, want 1", len(order.Courses))
	}
	if order.Courses[0].Price != 100 || order.Courses[0].TaxPrice != 18 {
		t.Errorf("line = %+v, want price 100 tax 18", order.Courses[0])
	}

	// Pending orders record no transaction and settle nothing
	var txnCount int64
	db.Model(&model.Transaction{}).Where("order_id = ?", order.ID).Count(&txnCount)
	if txnCount != 0 {
		t.Errorf("transactions = %d, want 0 while pending", txnCount)
	}
	var commissionCount int64
	db.Model(&model.Commission{}).Count(&commissionCount)
	if commissionCount != 0 {
		t.Errorf("commissions = %d, want 0 while pending", commissionCount)
	}
}

func TestPlaceOrderWithCertificate(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	seedTaxRule(t, db, "VAT", "", 10, true)

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:          buyer.ID,
		CourseID:        &course.ID,
		PaymentMethod:   model.PaymentMethodStripe,
		WithCertificate: true,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	// Default certificate fee is 10; tax applies to price plus fee
	if order.TotalPrice != 110 {
		t.Errorf("total = %v, want 110", order.TotalPrice)
	}
	if order.TaxPrice != 11 {
		t.Errorf("tax = %v, want 11", order.TaxPrice)
	}
	if order.FinalPrice != 121 {
		t.Errorf("final = %v, want 121", order.FinalPrice)
	}
	if !order.Courses[0].WithCertificate || order.Courses[0].CertificateFee != 10 {
		t.Errorf("line = %+v, want certificate fee 10", order.Courses[0])
	}
}

func TestPlaceOrderPromoThenTax(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	seedTaxRule(t, db, "VAT", "", 10, true)

	admin := createUser(t, db, model.RoleAdmin)
	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	start, end := activeWindow()
	promo := &model.PromoCode{
		Code:          "SAVE20",
		OwnerID:       admin.ID,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 20,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
		PromoCode:     "SAVE20",
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	// Tax is computed on the discounted base, not the sticker price
	line := order.Courses[0]
	if line.DiscountAmount != 20 || line.Price != 80 || line.TaxPrice != 8 {
		t.Errorf("line = %+v, want discount 20, price 80, tax 8", line)
	}
	if order.FinalPrice != 88 {
		t.Errorf("final = %v, want 88", order.FinalPrice)
	}
	if order.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want pending (money still owed)", order.Status)
	}
	if order.PromoCodeID == nil || *order.PromoCodeID != promo.ID {
		t.Errorf("order promo id = %v, want %d", order.PromoCodeID, promo.ID)
	}
}

func TestPlaceOrderFreeCourse(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, instructor.ID, 0)
	lessons := withLessons(t, db, course, 3)

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	if order.Status != model.OrderStatusCompleted {
		t.Errorf("status = %q, want completed", order.Status)
	}
	if order.PaymentMethod != model.PaymentMethodFree {
		t.Errorf("method = %q, want free", order.PaymentMethod)
	}
	if order.FinalPrice != 0 {
		t.Errorf("final = %v, want 0", order.FinalPrice)
	}

	// A genuinely free order records no transaction at all
	var txnCount int64
	db.Model(&model.Transaction{}).Where("order_id = ?", order.ID).Count(&txnCount)
	if txnCount != 0 {
		t.Errorf("transactions = %d, want 0 for free order", txnCount)
	}

	// Settlement still seeds lesson progress
	var trackCount int64
	db.Model(&model.LessonTrack{}).Where("user_id = ?", buyer.ID).Count(&trackCount)
	if trackCount != int64(len(lessons)) {
		t.Errorf("lesson tracks = %d, want %d", trackCount, len(lessons))
	}

	// Free lines settle no money
	var commissionCount int64
	db.Model(&model.Commission{}).Count(&commissionCount)
	if commissionCount != 0 {
		t.Errorf("commissions = %d, want 0 for free order", commissionCount)
	}
}

func TestPlaceOrderDiscountedToZero(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	admin := createUser(t, db, model.RoleAdmin)
	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 50)

	start, end := activeWindow()
	quota := 3
	promo := &model.PromoCode{
		Code:          "ALLFREE",
		OwnerID:       admin.ID,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 100,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
		Quota:         &quota,
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
		PromoCode:     "allfree",
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	if order.Status != model.OrderStatusCompleted {
		t.Errorf("status = %q, want completed", order.Status)
	}
	if order.DiscountAmount != 50 || order.FinalPrice != 0 {
		t.Errorf("discount = %v final = %v, want 50 and 0", order.DiscountAmount, order.FinalPrice)
	}
	if order.PaymentMethod != model.PaymentMethodFree {
		t.Errorf("method = %q, want free", order.PaymentMethod)
	}

	// A discounted-to-zero order still records a zero-amount transaction
	var txns []model.Transaction
	if err := db.Where("order_id = ?", order.ID).Find(&txns).Error; err != nil {
		t.Fatalf("failed to load transactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txns))
	}
	if txns[0].Amount != 0 || txns[0].Status != model.TransactionStatusSuccess || txns[0].TxnID == "" {
		t.Errorf("transaction = %+v, want zero-amount success with synthetic id", txns[0])
	}

	// Completion consumes exactly one quota slot
	var reloaded model.PromoCode
	if err := db.First(&reloaded, promo.ID).Error; err != nil {
		t.Fatalf("failed to reload promo: %v", err)
	}
	if reloaded.Quota == nil || *reloaded.Quota != 2 {
		t.Errorf("quota = %v, want 2", reloaded.Quota)
	}
}

func TestPlaceOrderInstructorPromoOutOfScope(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	attached := createCourse(t, db, instructor.ID, 80)
	unattached := createCourse(t, db, instructor.ID, 80)

	start, end := activeWindow()
	promo := &model.PromoCode{
		Code:          "MINE50",
		OwnerID:       instructor.ID,
		OwnerRole:     model.PromoOwnerInstructor,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 50,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
		Courses:       []model.Course{*attached},
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}

	// The code is valid but not attached to this course: the order goes
	// through at full price with no discount and no error
	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &unattached.ID,
		PaymentMethod: model.PaymentMethodStripe,
		PromoCode:     "MINE50",
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}
	if order.DiscountAmount != 0 {
		t.Errorf("discount = %v, want 0", order.DiscountAmount)
	}
	if order.FinalPrice != 80 {
		t.Errorf("final = %v, want 80", order.FinalPrice)
	}
	if order.PromoCodeID != nil {
		t.Errorf("order promo id = %v, want nil when nothing discounted", *order.PromoCodeID)
	}
}

func TestPlaceOrderBillingRequired(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, instructor.ID, 40)

	_, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if !errors.Is(err, ErrBillingRequired) {
		t.Errorf("PlaceOrder() without billing = %v, want ErrBillingRequired", err)
	}
}

func TestPlaceOrderAlreadyPurchased(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, instructor.ID, 0)

	if _, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	}); err != nil {
		t.Fatalf("first PlaceOrder() = %v", err)
	}

	_, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if !errors.Is(err, ErrAlreadyPurchased) {
		t.Errorf("second PlaceOrder() = %v, want ErrAlreadyPurchased", err)
	}
}

func TestPlaceOrderCourseNotAvailable(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)

	draft := createCourse(t, db, instructor.ID, 10)
	draft.Status = model.CourseStatusDraft
	if err := db.Save(draft).Error; err != nil {
		t.Fatalf("failed to update course: %v", err)
	}

	_, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &draft.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if !errors.Is(err, ErrCourseNotAvailable) {
		t.Errorf("PlaceOrder(draft) = %v, want ErrCourseNotAvailable", err)
	}

	missing := uint(99999)
	_, err = stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &missing,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if !errors.Is(err, ErrCourseNotAvailable) {
		t.Errorf("PlaceOrder(missing) = %v, want ErrCourseNotAvailable", err)
	}
}

func TestPlaceOrderFromCart(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	first := createCourse(t, db, instructor.ID, 30)
	second := createCourse(t, db, instructor.ID, 20)

	for _, course := range []*model.Course{first, second} {
		item := &model.CartItem{UserID: buyer.ID, CourseID: course.ID}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("failed to add cart item: %v", err)
		}
	}

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		FromCart:      true,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}
	if len(order.Courses) != 2 {
		t.Fatalf("lines = %d, want 2", len(order.Courses))
	}
	if order.TotalPrice != 50 {
		t.Errorf("total = %v, want 50", order.TotalPrice)
	}

	// Cart survives until the order actually completes
	var cartCount int64
	db.Model(&model.CartItem{}).Where("user_id = ?", buyer.ID).Count(&cartCount)
	if cartCount != 2 {
		t.Errorf("cart items while pending = %d, want 2", cartCount)
	}

	txn := &model.Transaction{
		TxnID:         "pi_test_cart",
		Amount:        order.FinalPrice,
		PaymentMethod: model.PaymentMethodStripe,
		Status:        model.TransactionStatusSuccess,
	}
	if _, err := stack.orders.Complete(ctx, order.ID, txn); err != nil {
		t.Fatalf("Complete() = %v", err)
	}

	db.Model(&model.CartItem{}).Where("user_id = ?", buyer.ID).Count(&cartCount)
	if cartCount != 0 {
		t.Errorf("cart items after completion = %d, want 0", cartCount)
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)

	buyer := createUser(t, db, model.RoleStudent)

	_, err := stack.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        buyer.ID,
		FromCart:      true,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if !errors.Is(err, ErrEmptyOrder) {
		t.Errorf("PlaceOrder(empty cart) = %v, want ErrEmptyOrder", err)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 60)

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	txn := &model.Transaction{
		TxnID:         "pi_test_once",
		Amount:        order.FinalPrice,
		PaymentMethod: model.PaymentMethodStripe,
		Status:        model.TransactionStatusSuccess,
	}
	completed, err := stack.orders.Complete(ctx, order.ID, txn)
	if err != nil {
		t.Fatalf("Complete() = %v", err)
	}
	if completed.Status != model.OrderStatusCompleted || completed.CompletedAt == nil {
		t.Errorf("order = %+v, want completed with timestamp", completed)
	}
	if completed.TransactionID != "pi_test_once" {
		t.Errorf("transaction id = %q, want pi_test_once", completed.TransactionID)
	}

	// A duplicate webhook delivery must not complete twice
	dup := &model.Transaction{
		TxnID:         "pi_test_twice",
		Amount:        order.FinalPrice,
		PaymentMethod: model.PaymentMethodStripe,
		Status:        model.TransactionStatusSuccess,
	}
	if _, err := stack.orders.Complete(ctx, order.ID, dup); !errors.Is(err, ErrOrderNotPending) {
		t.Errorf("second Complete() = %v, want ErrOrderNotPending", err)
	}

	var commissionCount int64
	db.Model(&model.Commission{}).Count(&commissionCount)
	if commissionCount != 1 {
		t.Errorf("commissions = %d, want 1", commissionCount)
	}
}

func TestFindByOrderNumber(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, instructor.ID, 0)

	order, err := stack.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        buyer.ID,
		CourseID:      &course.ID,
		PaymentMethod: model.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}

	found, err := stack.orders.FindByOrderNumber(ctx, order.OrderNumber)
	if err != nil {
		t.Fatalf("FindByOrderNumber() = %v", err)
	}
	if found.ID != order.ID {
		t.Errorf("found order %d, want %d", found.ID, order.ID)
	}

	if _, err := stack.orders.FindByOrderNumber(ctx, "ORD-NOPE"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("FindByOrderNumber(unknown) = %v, want ErrOrderNotFound", err)
	}
}
