package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const razorpayBaseURL = "https://api.razorpay.com"

// RazorpayGateway drives Razorpay Orders. The buyer completes payment in
// the Razorpay checkout widget against the returned order id; confirmation
// arrives via webhook.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

// NewRazorpayGateway creates a Razorpay gateway client
func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       razorpayBaseURL,
		httpClient:    newHTTPClient(),
	}
}

// Name returns the payment method identifier
func (g *RazorpayGateway) Name() string {
	return "razorpay"
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"` // Paise
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateSession creates a Razorpay order. The receipt field carries the
// order number and comes back in webhook payloads.
func (g *RazorpayGateway) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	payload := razorpayOrderRequest{
		Amount:   toMinorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  req.OrderNumber,
		Notes:    map[string]string{"order_number": req.OrderNumber},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode razorpay order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build razorpay request: %w", err)
	}
	httpReq.SetBasicAuth(g.keyID, g.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read razorpay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay returned status %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var order razorpayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay order: %w", err)
	}

	return &Session{
		Provider:  g.Name(),
		SessionID: order.ID,
		// Razorpay has no hosted payment URL; the frontend opens the
		// checkout widget with this order id
		PaymentURL: "",
		Raw:        respBody,
	}, nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID     string            `json:"id"`
				Amount int64             `json:"amount"`
				Status string            `json:"status"`
				Notes  map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook verifies X-Razorpay-Signature (HMAC-SHA256 of the raw body)
// and normalizes payment.captured / payment.failed events.
func (g *RazorpayGateway) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	signature := header.Get("X-Razorpay-Signature")
	if signature == "" {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	var event razorpayWebhook
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay event: %w", err)
	}

	if event.Event != "payment.captured" && event.Event != "payment.failed" {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.Event)
	}

	entity := event.Payload.Payment.Entity
	return &WebhookEvent{
		Provider:    g.Name(),
		OrderNumber: entity.Notes["order_number"],
		TxnID:       entity.ID,
		Amount:      fromMinorUnits(entity.Amount),
		Succeeded:   event.Event == "payment.captured" && entity.Status == "captured",
		Message:     event.Event,
		Raw:         payload,
	}, nil
}
