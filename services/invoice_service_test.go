package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/learnora/academy-api/model"
)

func TestInvoiceDownloadWithoutStorage(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	invoices := NewInvoiceService(db, nil, stack.settings)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "US")
	course := createCourse(t, db, instructor.ID, 60)

	order := placeCompletedOrder(t, stack, buyer.ID, course.ID)

	// No object storage configured: the invoice is rendered fresh each time
	doc, key, err := invoices.Download(ctx, buyer.ID, order.ID)
	if err != nil {
		t.Fatalf("Download() = %v", err)
	}
	if !strings.Contains(string(doc), order.OrderNumber) {
		t.Errorf("invoice does not mention order number %s", order.OrderNumber)
	}
	if key != invoiceKey(order.OrderNumber) {
		t.Errorf("key = %q, want %q", key, invoiceKey(order.OrderNumber))
	}
}

func TestInvoiceUnavailableForPendingOrder(t *testing.T) {
	db := newTestDB(t)
	stack := newCheckoutStack(db)
	invoices := NewInvoiceService(db, nil, stack.settings)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	buyer := createUser(t, db, model.RoleStudent)
	withBilling(t, db, buyer, "")
	course := createCourse(t, db, instructor.ID, 60)

	order := placePendingOrder(t, stack, buyer.ID, course.ID, model.PaymentMethodBankTransfer)

	if _, _, err := invoices.Download(ctx, buyer.ID, order.ID); !errors.Is(err, ErrInvoiceUnavailable) {
		t.Errorf("Download() = %v, want ErrInvoiceUnavailable", err)
	}
}
