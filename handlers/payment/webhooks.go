package payment

import (
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/services"
	gateway "github.com/learnora/academy-api/services/payment"
	"github.com/learnora/academy-api/utils/response"
)

// WebhookHandler receives gateway callbacks. The routes carry no user auth;
// every payload is verified against the gateway's signature scheme before any
// order state changes.
type WebhookHandler struct {
	payments *services.PaymentService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(payments *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// Handle processes POST /api/v1/webhooks/:provider
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	provider := c.Params("provider")
	payload := c.Body()

	// fasthttp headers are not a http.Header; copy what verification needs
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	order, err := h.payments.HandleWebhook(c.Context(), provider, payload, header)
	switch {
	case err == nil:
		return response.Success(c, fiber.Map{"order_number": order.OrderNumber, "status": order.Status})
	case errors.Is(err, services.ErrOrderNotPending):
		// Duplicate delivery; acknowledge so the gateway stops retrying
		return response.SuccessWithMessage(c, "Already processed", nil)
	case errors.Is(err, gateway.ErrIgnoredEvent):
		return response.SuccessWithMessage(c, "Event ignored", nil)
	case errors.Is(err, gateway.ErrInvalidSignature):
		log.Printf("Webhook: rejected %s callback with bad signature", provider)
		return response.Unauthorized(c, "Invalid signature")
	case errors.Is(err, services.ErrUnsupportedMethod):
		return response.NotFound(c, "Unknown payment provider")
	case errors.Is(err, services.ErrOrderNotFound):
		return response.NotFound(c, "Order not found")
	case errors.Is(err, services.ErrAmountMismatch):
		return response.BadRequest(c, "Payment amount does not match the order")
	default:
		log.Printf("Webhook: %s processing failed: %v", provider, err)
		return response.InternalServerError(c, "Webhook processing failed")
	}
}
