package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services/payment"
	"gorm.io/gorm"
)

const testRazorpayWebhookSecret = "whsecret"

func newPaymentStack(db *gorm.DB) (*checkoutStack, *PaymentService) {
	stack := newCheckoutStack(db)
	registry := payment.NewRegistry(
		payment.NewRazorpayGateway("rzp_test", "secret", testRazorpayWebhookSecret),
	)
	payments := NewPaymentService(db, stack.orders, stack.wallet, stack.settings,
		registry, nil, PaymentConfig{ReturnURL: "https://app.test/done", CancelURL: "https://app.test/cancel"})
	return stack, payments
}

func placePendingOrder(t *testing.T, stack *checkoutStack, buyerID, courseID uint, method string) *model.Order {
	t.Helper()
	order, err := stack.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        buyerID,
		CourseID:      &courseID,
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() = %v", err)
	}
	return order
}

func TestDispatchWalletPayment(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 50)

	if err := stack.wallet.Credit(ctx, nil, buyer.ID, 200, model.WalletTypeTopUp, "", 0, ""); err != nil {
		t.Fatalf("Credit() = %v", err)
	}

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodWallet)

	result, err := payments.Dispatch(ctx, order, buyer)
	if err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if result.Order.Status != model.OrderStatusCompleted {
		t.Errorf("status = %q, want completed", result.Order.Status)
	}
	if result.Session != nil {
		t.Error("wallet payment returned a gateway session")
	}

	balance, _ := stack.wallet.Balance(ctx, buyer.ID)
	if balance != 150 {
		t.Errorf("buyer balance = %v, want 150", balance)
	}

	var txn model.Transaction
	if err := db.Where("order_id = ?", order.ID).First(&txn).Error; err != nil {
		t.Fatalf("failed to load transaction: %v", err)
	}
	if txn.Amount != 50 || txn.Status != model.TransactionStatusSuccess || txn.PaymentMethod != model.PaymentMethodWallet {
		t.Errorf("transaction = %+v, want 50 success wallet", txn)
	}
}

func TestDispatchWalletInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 50)

	if err := stack.wallet.Credit(ctx, nil, buyer.ID, 30, model.WalletTypeTopUp, "", 0, ""); err != nil {
		t.Fatalf("Credit() = %v", err)
	}

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodWallet)

	_, err := payments.Dispatch(ctx, order, buyer)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Dispatch() = %v, want ErrInsufficientBalance", err)
	}

	// Nothing moved: the order stays pending and the ledger has only the
	// original top-up
	var reloaded model.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	if reloaded.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want pending", reloaded.Status)
	}
	var ledgerCount int64
	db.Model(&model.WalletHistory{}).Where("user_id = ?", buyer.ID).Count(&ledgerCount)
	if ledgerCount != 1 {
		t.Errorf("ledger entries = %d, want 1", ledgerCount)
	}
	var txnCount int64
	db.Model(&model.Transaction{}).Where("order_id = ?", order.ID).Count(&txnCount)
	if txnCount != 0 {
		t.Errorf("transactions = %d, want 0", txnCount)
	}
}

func TestDispatchRejectsUnknownMethod(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 25)

	order := placePendingOrder(t, stack, buyer.ID, course.ID, "carrier_pigeon")

	if _, err := payments.Dispatch(ctx, order, buyer); !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("Dispatch() = %v, want ErrUnsupportedMethod", err)
	}
}

func TestDispatchBankTransferStaysPending(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 45)

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodBankTransfer)

	result, err := payments.Dispatch(ctx, order, buyer)
	if err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if result.Order.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want pending until receipt approval", result.Order.Status)
	}
	if result.Session != nil {
		t.Error("bank transfer returned a gateway session")
	}
}

func razorpayWebhookPayload(orderNumber, paymentID, event, status string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": %q,
		"payload": {"payment": {"entity": {
			"id": %q,
			"amount": %d,
			"status": %q,
			"notes": {"order_number": %q}
		}}}
	}`, event, paymentID, amount, status, orderNumber))
}

func razorpayWebhookHeader(payload []byte) http.Header {
	mac := hmac.New(sha256.New, []byte(testRazorpayWebhookSecret))
	mac.Write(payload)
	header := http.Header{}
	header.Set("X-Razorpay-Signature", hex.EncodeToString(mac.Sum(nil)))
	return header
}

func TestHandleWebhookCompletesOrder(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodRazorpay)

	payload := razorpayWebhookPayload(order.OrderNumber, "pay_hook1", "payment.captured", "captured", 10000)
	completed, err := payments.HandleWebhook(ctx, model.PaymentMethodRazorpay, payload, razorpayWebhookHeader(payload))
	if err != nil {
		t.Fatalf("HandleWebhook() = %v", err)
	}
	if completed.Status != model.OrderStatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}

	var txn model.Transaction
	if err := db.Where("order_id = ? AND status = ?", order.ID, model.TransactionStatusSuccess).First(&txn).Error; err != nil {
		t.Fatalf("failed to load transaction: %v", err)
	}
	if txn.TxnID != "pay_hook1" {
		t.Errorf("txn id = %q, want pay_hook1", txn.TxnID)
	}

	// Settlement ran: the instructor got their cut
	balance, _ := stack.wallet.Balance(ctx, instructor.ID)
	if balance != 70 {
		t.Errorf("instructor balance = %v, want 70", balance)
	}

	// A duplicate delivery resolves to a not-pending error, not a second payout
	if _, err := payments.HandleWebhook(ctx, model.PaymentMethodRazorpay, payload, razorpayWebhookHeader(payload)); !errors.Is(err, ErrOrderNotPending) {
		t.Errorf("duplicate HandleWebhook() = %v, want ErrOrderNotPending", err)
	}
	balance, _ = stack.wallet.Balance(ctx, instructor.ID)
	if balance != 70 {
		t.Errorf("instructor balance after duplicate = %v, want 70", balance)
	}
}

func TestHandleWebhookFailedPayment(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 70)

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodRazorpay)

	payload := razorpayWebhookPayload(order.OrderNumber, "pay_bad", "payment.failed", "failed", 7000)
	returned, err := payments.HandleWebhook(ctx, model.PaymentMethodRazorpay, payload, razorpayWebhookHeader(payload))
	if err != nil {
		t.Fatalf("HandleWebhook() = %v", err)
	}
	if returned.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want still pending after failed payment", returned.Status)
	}

	var txn model.Transaction
	if err := db.Where("order_id = ?", order.ID).First(&txn).Error; err != nil {
		t.Fatalf("failed to load transaction: %v", err)
	}
	if txn.Status != model.TransactionStatusFailed {
		t.Errorf("transaction status = %q, want failed", txn.Status)
	}
}

func TestHandleWebhookRefusesAmountMismatch(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 100)

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodRazorpay)

	// Captured 99.99 against a 100.00 order
	payload := razorpayWebhookPayload(order.OrderNumber, "pay_short", "payment.captured", "captured", 9999)
	if _, err := payments.HandleWebhook(ctx, model.PaymentMethodRazorpay, payload, razorpayWebhookHeader(payload)); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("HandleWebhook() = %v, want ErrAmountMismatch", err)
	}

	// The order stays pending and no settlement ran
	reloaded, err := stack.orders.GetOrder(ctx, buyer.ID, order.ID)
	if err != nil {
		t.Fatalf("GetOrder() = %v", err)
	}
	if reloaded.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want pending after mismatched payment", reloaded.Status)
	}
	balance, _ := stack.wallet.Balance(ctx, instructor.ID)
	if balance != 0 {
		t.Errorf("instructor balance = %v, want 0", balance)
	}

	// The mismatch is on record for reconciliation
	var txn model.Transaction
	if err := db.Where("order_id = ?", order.ID).First(&txn).Error; err != nil {
		t.Fatalf("failed to load transaction: %v", err)
	}
	if txn.Status != model.TransactionStatusFailed {
		t.Errorf("transaction status = %q, want failed", txn.Status)
	}
}

func TestAttachReceiptWithoutStorage(t *testing.T) {
	db := newTestDB(t)
	stack, payments := newPaymentStack(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 45)

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodBankTransfer)

	if _, err := payments.AttachReceipt(ctx, buyer.ID, order.ID, []byte("%PDF-1.4")); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("AttachReceipt() = %v, want ErrStorageUnavailable", err)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	db := newTestDB(t)
	_, payments := newPaymentStack(db)

	payload := []byte(`{"event": "payment.captured"}`)
	header := http.Header{}
	header.Set("X-Razorpay-Signature", "forged")

	if _, err := payments.HandleWebhook(context.Background(), model.PaymentMethodRazorpay, payload, header); !errors.Is(err, payment.ErrInvalidSignature) {
		t.Errorf("HandleWebhook() = %v, want ErrInvalidSignature", err)
	}
}
