package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the HTTP client timeout for gateway API calls
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrUnknownGateway is returned when no gateway matches the payment method
	ErrUnknownGateway = errors.New("unknown payment gateway")
	// ErrInvalidSignature is returned when a webhook fails verification
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrIgnoredEvent is returned for webhook events that carry no payment outcome
	ErrIgnoredEvent = errors.New("webhook event ignored")
)

// CheckoutRequest describes one payment session to open at a gateway.
// Amount is in major currency units; each gateway converts to its own
// minor-unit convention.
type CheckoutRequest struct {
	OrderNumber   string
	Amount        float64
	Currency      string
	CustomerEmail string
	Description   string
	ReturnURL     string
	CancelURL     string
}

// Session is a newly created gateway checkout session. PaymentURL is where
// the buyer is redirected to pay; SessionID is the gateway's reference.
type Session struct {
	Provider   string          `json:"provider"`
	SessionID  string          `json:"session_id"`
	PaymentURL string          `json:"payment_url"`
	Raw        json.RawMessage `json:"-"`
}

// WebhookEvent is a verified, normalized gateway callback. OrderNumber is
// recovered from the metadata planted at session creation.
type WebhookEvent struct {
	Provider    string
	OrderNumber string
	TxnID       string
	Amount      float64
	Succeeded   bool
	Message     string
	Raw         json.RawMessage
}

// Gateway abstracts one external payment provider. Implementations are
// stateless REST clients; verification of inbound webhooks happens before
// any order state is touched.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error)
}

// Registry resolves gateways by payment method name
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry creates a registry over the given gateways
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

// Get returns the gateway for a payment method
func (r *Registry) Get(method string) (Gateway, error) {
	g, ok := r.gateways[method]
	if !ok {
		return nil, ErrUnknownGateway
	}
	return g, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}
