package payment

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const flutterwaveBaseURL = "https://api.flutterwave.com"

// FlutterwaveGateway drives Flutterwave hosted payments (v3 API)
type FlutterwaveGateway struct {
	secretKey  string
	secretHash string
	baseURL    string
	httpClient *http.Client
}

// NewFlutterwaveGateway creates a Flutterwave gateway client. secretHash is
// the webhook verification value configured in the Flutterwave dashboard.
func NewFlutterwaveGateway(secretKey, secretHash string) *FlutterwaveGateway {
	return &FlutterwaveGateway{
		secretKey:  secretKey,
		secretHash: secretHash,
		baseURL:    flutterwaveBaseURL,
		httpClient: newHTTPClient(),
	}
}

// Name returns the payment method identifier
func (g *FlutterwaveGateway) Name() string {
	return "flutterwave"
}

type flutterwavePaymentRequest struct {
	TxRef       string `json:"tx_ref"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	RedirectURL string `json:"redirect_url"`
	Customer    struct {
		Email string `json:"email"`
	} `json:"customer"`
	Customizations struct {
		Title string `json:"title"`
	} `json:"customizations"`
}

type flutterwavePaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// CreateSession opens a hosted payment page. The order number is the
// tx_ref and round-trips through the webhook.
func (g *FlutterwaveGateway) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	payload := flutterwavePaymentRequest{
		TxRef:       req.OrderNumber,
		Amount:      fmt.Sprintf("%.2f", req.Amount),
		Currency:    req.Currency,
		RedirectURL: req.ReturnURL,
	}
	payload.Customer.Email = req.CustomerEmail
	payload.Customizations.Title = req.Description

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flutterwave payment: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v3/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build flutterwave request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("flutterwave request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read flutterwave response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flutterwave returned status %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var payment flutterwavePaymentResponse
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode flutterwave response: %w", err)
	}
	if payment.Status != "success" {
		return nil, fmt.Errorf("flutterwave payment creation failed: %s", payment.Message)
	}

	return &Session{
		Provider:   g.Name(),
		SessionID:  req.OrderNumber,
		PaymentURL: payment.Data.Link,
		Raw:        respBody,
	}, nil
}

type flutterwaveWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID     int64   `json:"id"`
		TxRef  string  `json:"tx_ref"`
		Amount float64 `json:"amount"`
		Status string  `json:"status"`
	} `json:"data"`
}

// ParseWebhook checks the verif-hash header against the configured secret
// hash and normalizes charge.completed events.
func (g *FlutterwaveGateway) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	hash := header.Get("verif-hash")
	if hash == "" || subtle.ConstantTimeCompare([]byte(hash), []byte(g.secretHash)) != 1 {
		return nil, ErrInvalidSignature
	}

	var event flutterwaveWebhook
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode flutterwave event: %w", err)
	}

	if event.Event != "charge.completed" {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.Event)
	}

	return &WebhookEvent{
		Provider:    g.Name(),
		OrderNumber: event.Data.TxRef,
		TxnID:       fmt.Sprintf("%d", event.Data.ID),
		Amount:      event.Data.Amount,
		Succeeded:   event.Data.Status == "successful",
		Message:     event.Event,
		Raw:         payload,
	}, nil
}
