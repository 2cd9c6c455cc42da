package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services/storage"
	"gorm.io/gorm"
)

// ErrInvoiceUnavailable is returned when asking for an invoice on an order
// that has not completed
var ErrInvoiceUnavailable = fmt.Errorf("invoice is only available for completed orders")

// InvoiceService renders HTML invoices for completed orders and keeps them
// in object storage. Rendering is lazy: the first download generates and
// uploads the document, later downloads serve the stored copy.
type InvoiceService struct {
	db       *gorm.DB
	spaces   *storage.SpacesClient
	settings *SettingsService
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(db *gorm.DB, spaces *storage.SpacesClient, settings *SettingsService) *InvoiceService {
	return &InvoiceService{db: db, spaces: spaces, settings: settings}
}

func invoiceKey(orderNumber string) string {
	return fmt.Sprintf("invoices/%s.html", orderNumber)
}

// Download returns the invoice document for one of the user's completed
// orders, generating it on first access.
func (s *InvoiceService) Download(ctx context.Context, userID, orderID uint) ([]byte, string, error) {
	var order model.Order
	err := s.db.WithContext(ctx).
		Preload("Courses").Preload("Courses.Course").
		Preload("User").Preload("User.BillingDetail").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, "", ErrOrderNotFound
	}
	if !order.IsCompleted() {
		return nil, "", ErrInvoiceUnavailable
	}

	// Storage is a cache here: without it (or on any storage error) the
	// invoice is rendered fresh and served directly
	key := invoiceKey(order.OrderNumber)
	if s.spaces != nil {
		exists, err := s.spaces.Exists(ctx, key)
		if err == nil && exists {
			doc, err := s.spaces.DownloadFile(ctx, key)
			if err == nil {
				return doc, key, nil
			}
		}
	}

	doc := []byte(s.render(ctx, &order))
	if s.spaces != nil {
		if _, err := s.spaces.UploadBytes(ctx, key, doc, "text/html"); err != nil {
			log.Printf("Invoice: failed to cache %s: %v", key, err)
		}
	}
	return doc, key, nil
}

// render produces the invoice HTML
func (s *InvoiceService) render(ctx context.Context, order *model.Order) string {
	currency := s.settings.Currency(ctx)

	var rows strings.Builder
	for _, line := range order.Courses {
		title := line.Course.Title
		if title == "" {
			title = fmt.Sprintf("Course #%d", line.CourseID)
		}
		rows.WriteString(fmt.Sprintf(
			"<tr><td>%s</td><td>%s %.2f</td><td>%s %.2f</td><td>%s %.2f</td></tr>\n",
			title,
			currency, line.Price+line.DiscountAmount,
			currency, line.DiscountAmount,
			currency, line.Price+line.CertificateFee))
	}

	address := ""
	if order.User.BillingDetail != nil {
		b := order.User.BillingDetail
		parts := []string{b.AddressOne, b.AddressTwo, b.City, b.State, b.PostalCode, b.Country}
		var kept []string
		for _, p := range parts {
			if p != "" {
				kept = append(kept, p)
			}
		}
		address = strings.Join(kept, ", ")
	}

	completedAt := ""
	if order.CompletedAt != nil {
		completedAt = order.CompletedAt.Format("January 2, 2006")
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Invoice %s</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 700px; margin: 0 auto; padding: 40px 20px; }
h1 { color: #1a3c6e; }
table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #eee; }
.totals td { border: none; }
.totals .grand { font-weight: 700; border-top: 2px solid #1a3c6e; }
</style>
</head>
<body>
<h1>Learnora Academy</h1>
<p><strong>Invoice %s</strong><br>Date: %s<br>Payment method: %s</p>
<p><strong>Billed to</strong><br>%s<br>%s<br>%s</p>
<table>
<thead><tr><th>Course</th><th>Price</th><th>Discount</th><th>Line total</th></tr></thead>
<tbody>
%s
</tbody>
</table>
<table class="totals">
<tr><td>Subtotal</td><td>%s %.2f</td></tr>
<tr><td>Tax</td><td>%s %.2f</td></tr>
<tr class="grand"><td>Total paid</td><td>%s %.2f</td></tr>
</table>
<p>Thank you for learning with Learnora Academy.</p>
</body>
</html>`,
		order.OrderNumber, order.OrderNumber, completedAt, order.PaymentMethod,
		order.User.Name, order.User.Email, address,
		rows.String(),
		currency, order.TotalPrice, currency, order.TaxPrice, currency, order.FinalPrice)
}
