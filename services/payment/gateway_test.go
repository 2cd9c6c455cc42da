package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	stripe := NewStripeGateway("sk_test", "whsec_test")
	razorpay := NewRazorpayGateway("rzp_test", "secret", "whsecret")
	registry := NewRegistry(stripe, razorpay)

	g, err := registry.Get("stripe")
	if err != nil {
		t.Fatalf("Get(stripe) = %v", err)
	}
	if g.Name() != "stripe" {
		t.Errorf("Name() = %q, want stripe", g.Name())
	}

	if _, err := registry.Get("paypal"); !errors.Is(err, ErrUnknownGateway) {
		t.Errorf("Get(paypal) = %v, want ErrUnknownGateway", err)
	}
}

func TestMinorUnits(t *testing.T) {
	if got := toMinorUnits(19.99); got != 1999 {
		t.Errorf("toMinorUnits(19.99) = %d, want 1999", got)
	}
	if got := toMinorUnits(0.1 + 0.2); got != 30 {
		t.Errorf("toMinorUnits(0.3) = %d, want 30", got)
	}
	if got := fromMinorUnits(1999); got != 19.99 {
		t.Errorf("fromMinorUnits(1999) = %v, want 19.99", got)
	}
}

func stripeSign(secret string, ts time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeParseWebhook(t *testing.T) {
	g := NewStripeGateway("sk_test", "whsec_test")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_123",
			"payment_status": "paid",
			"amount_total": 11800,
			"currency": "usd",
			"client_reference_id": "ORD-ABC",
			"payment_intent": "pi_test_123"
		}}
	}`)

	header := http.Header{}
	header.Set("Stripe-Signature", stripeSign("whsec_test", now, payload))

	event, err := g.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook() = %v", err)
	}
	if event.OrderNumber != "ORD-ABC" {
		t.Errorf("order number = %q, want ORD-ABC", event.OrderNumber)
	}
	if event.TxnID != "pi_test_123" {
		t.Errorf("txn id = %q, want pi_test_123", event.TxnID)
	}
	if event.Amount != 118 {
		t.Errorf("amount = %v, want 118", event.Amount)
	}
	if !event.Succeeded {
		t.Error("event not marked succeeded")
	}
}

func TestStripeParseWebhookRejections(t *testing.T) {
	g := NewStripeGateway("sk_test", "whsec_test")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	payload := []byte(`{"type": "checkout.session.completed", "data": {"object": {"id": "cs_1"}}}`)

	cases := []struct {
		name      string
		signature string
	}{
		{"missing header", ""},
		{"garbage header", "not-a-signature"},
		{"wrong secret", stripeSign("whsec_other", now, payload)},
		{"tampered payload", stripeSign("whsec_test", now, []byte(`{"type":"x"}`))},
		{"stale timestamp", stripeSign("whsec_test", now.Add(-6*time.Minute), payload)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.signature != "" {
				header.Set("Stripe-Signature", tc.signature)
			}
			if _, err := g.ParseWebhook(payload, header); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("ParseWebhook() = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestStripeParseWebhookIgnoresOtherEvents(t *testing.T) {
	g := NewStripeGateway("sk_test", "whsec_test")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	payload := []byte(`{"type": "invoice.paid", "data": {"object": {}}}`)
	header := http.Header{}
	header.Set("Stripe-Signature", stripeSign("whsec_test", now, payload))

	if _, err := g.ParseWebhook(payload, header); !errors.Is(err, ErrIgnoredEvent) {
		t.Errorf("ParseWebhook(invoice.paid) = %v, want ErrIgnoredEvent", err)
	}
}

func TestStripeUnpaidSessionNotSucceeded(t *testing.T) {
	g := NewStripeGateway("sk_test", "whsec_test")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "payment_status": "unpaid", "client_reference_id": "ORD-X"}}
	}`)
	header := http.Header{}
	header.Set("Stripe-Signature", stripeSign("whsec_test", now, payload))

	event, err := g.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook() = %v", err)
	}
	if event.Succeeded {
		t.Error("unpaid session marked succeeded")
	}
	// No payment intent yet; the session id stands in as transaction id
	if event.TxnID != "cs_2" {
		t.Errorf("txn id = %q, want cs_2", event.TxnID)
	}
}

func razorpaySign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayParseWebhook(t *testing.T) {
	g := NewRazorpayGateway("rzp_test", "secret", "whsecret")

	payload := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_abc",
			"amount": 50000,
			"status": "captured",
			"notes": {"order_number": "ORD-RZP"}
		}}}
	}`)
	header := http.Header{}
	header.Set("X-Razorpay-Signature", razorpaySign("whsecret", payload))

	event, err := g.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook() = %v", err)
	}
	if event.OrderNumber != "ORD-RZP" || event.TxnID != "pay_abc" {
		t.Errorf("event = %+v, want order ORD-RZP txn pay_abc", event)
	}
	if event.Amount != 500 {
		t.Errorf("amount = %v, want 500", event.Amount)
	}
	if !event.Succeeded {
		t.Error("captured payment not marked succeeded")
	}
}

func TestRazorpayParseWebhookFailedPayment(t *testing.T) {
	g := NewRazorpayGateway("rzp_test", "secret", "whsecret")

	payload := []byte(`{
		"event": "payment.failed",
		"payload": {"payment": {"entity": {
			"id": "pay_bad",
			"amount": 50000,
			"status": "failed",
			"notes": {"order_number": "ORD-RZP"}
		}}}
	}`)
	header := http.Header{}
	header.Set("X-Razorpay-Signature", razorpaySign("whsecret", payload))

	event, err := g.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook() = %v", err)
	}
	if event.Succeeded {
		t.Error("failed payment marked succeeded")
	}
}

func TestRazorpayParseWebhookRejectsBadSignature(t *testing.T) {
	g := NewRazorpayGateway("rzp_test", "secret", "whsecret")

	payload := []byte(`{"event": "payment.captured"}`)
	header := http.Header{}
	header.Set("X-Razorpay-Signature", razorpaySign("wrong", payload))

	if _, err := g.ParseWebhook(payload, header); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("ParseWebhook() = %v, want ErrInvalidSignature", err)
	}

	header.Del("X-Razorpay-Signature")
	if _, err := g.ParseWebhook(payload, header); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("ParseWebhook() without header = %v, want ErrInvalidSignature", err)
	}
}

func TestFlutterwaveParseWebhook(t *testing.T) {
	g := NewFlutterwaveGateway("sk_flw", "hash123")

	payload := []byte(`{
		"event": "charge.completed",
		"data": {"id": 4242, "tx_ref": "ORD-FLW", "amount": 75.5, "status": "successful"}
	}`)
	header := http.Header{}
	header.Set("verif-hash", "hash123")

	event, err := g.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook() = %v", err)
	}
	if event.OrderNumber != "ORD-FLW" || event.TxnID != "4242" {
		t.Errorf("event = %+v, want order ORD-FLW txn 4242", event)
	}
	if event.Amount != 75.5 {
		t.Errorf("amount = %v, want 75.5", event.Amount)
	}
	if !event.Succeeded {
		t.Error("successful charge not marked succeeded")
	}
}

func TestFlutterwaveParseWebhookRejections(t *testing.T) {
	g := NewFlutterwaveGateway("sk_flw", "hash123")
	payload := []byte(`{"event": "charge.completed", "data": {"status": "successful"}}`)

	header := http.Header{}
	header.Set("verif-hash", "wrong")
	if _, err := g.ParseWebhook(payload, header); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("ParseWebhook(wrong hash) = %v, want ErrInvalidSignature", err)
	}

	header.Set("verif-hash", "hash123")
	other := []byte(`{"event": "transfer.completed", "data": {}}`)
	if _, err := g.ParseWebhook(other, header); !errors.Is(err, ErrIgnoredEvent) {
		t.Errorf("ParseWebhook(transfer.completed) = %v, want ErrIgnoredEvent", err)
	}
}
