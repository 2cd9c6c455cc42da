package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const stripeBaseURL = "https://api.stripe.com"

// stripe webhook signatures are rejected when older than this
const stripeSignatureTolerance = 5 * time.Minute

// StripeGateway drives Stripe Checkout Sessions over the form-encoded
// REST API.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
	now           func() time.Time
}

// NewStripeGateway creates a Stripe gateway client
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       stripeBaseURL,
		httpClient:    newHTTPClient(),
		now:           time.Now,
	}
}

// Name returns the payment method identifier
func (g *StripeGateway) Name() string {
	return "stripe"
}

type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	ClientRefID   string `json:"client_reference_id"`
	PaymentIntent string `json:"payment_intent"`
}

// CreateSession opens a Stripe Checkout Session. The order number travels
// as client_reference_id and comes back on the webhook.
func (g *StripeGateway) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.OrderNumber)
	form.Set("success_url", req.ReturnURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("customer_email", req.CustomerEmail)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	form.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", toMinorUnits(req.Amount)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build stripe request: %w", err)
	}
	httpReq.SetBasicAuth(g.secretKey, "")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stripe returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode stripe session: %w", err)
	}

	return &Session{
		Provider:   g.Name(),
		SessionID:  session.ID,
		PaymentURL: session.URL,
		Raw:        body,
	}, nil
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object stripeSession `json:"object"`
	} `json:"data"`
}

// ParseWebhook verifies the Stripe-Signature header (HMAC-SHA256 over
// "timestamp.payload") and normalizes checkout.session.completed events.
func (g *StripeGateway) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	if err := g.verifySignature(payload, header.Get("Stripe-Signature")); err != nil {
		return nil, err
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode stripe event: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.Type)
	}

	session := event.Data.Object
	txnID := session.PaymentIntent
	if txnID == "" {
		txnID = session.ID
	}

	return &WebhookEvent{
		Provider:    g.Name(),
		OrderNumber: session.ClientRefID,
		TxnID:       txnID,
		Amount:      fromMinorUnits(session.AmountTotal),
		Succeeded:   session.PaymentStatus == "paid",
		Message:     event.Type,
		Raw:         payload,
	}, nil
}

func (g *StripeGateway) verifySignature(payload []byte, sigHeader string) error {
	if sigHeader == "" {
		return ErrInvalidSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	var ts int64
	if _, err := fmt.Sscanf(timestamp, "%d", &ts); err != nil {
		return ErrInvalidSignature
	}
	if g.now().Sub(time.Unix(ts, 0)) > stripeSignatureTolerance {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// toMinorUnits converts a major-unit amount to cents
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// fromMinorUnits converts cents back to a major-unit amount
func fromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
