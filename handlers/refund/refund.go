package refund

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
)

// RefundHandler handles refund requests
type RefundHandler struct {
	refunds *services.RefundService
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(refunds *services.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// RequestRefundRequest represents the refund request payload
type RequestRefundRequest struct {
	OrderCourseID uint   `json:"order_course_id" validate:"required,min=1"`
	Reason        string `json:"reason,omitempty"`
}

// RequestRefund handles POST /api/v1/refunds
func (h *RefundHandler) RequestRefund(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req RequestRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.OrderCourseID == 0 {
		return response.BadRequest(c, "order_course_id is required")
	}

	refund, err := h.refunds.Request(c.Context(), userID, req.OrderCourseID, req.Reason)
	switch {
	case err == nil:
		return response.Created(c, refund)
	case errors.Is(err, services.ErrRefundNotFound):
		return response.NotFound(c, "Purchase not found")
	case errors.Is(err, services.ErrLineNotRefundable):
		return response.BadRequest(c, "Only completed purchases can be refunded")
	case errors.Is(err, services.ErrRefundAlreadyRequested):
		return response.Conflict(c, "A refund was already requested for this purchase")
	default:
		return response.InternalServerError(c, "Failed to create refund request")
	}
}

// ListMyRefunds handles GET /api/v1/refunds
func (h *RefundHandler) ListMyRefunds(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	refunds, err := h.refunds.ListForUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load refunds")
	}

	return response.Success(c, refunds)
}

// ProcessRefundRequest represents the admin decision payload
type ProcessRefundRequest struct {
	Approve bool `json:"approve"`
}

// ProcessRefund handles POST /api/v1/admin/refunds/:id, admin only
func (h *RefundHandler) ProcessRefund(c *fiber.Ctx) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	refundID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid refund ID")
	}

	var req ProcessRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	refund, err := h.refunds.Process(c.Context(), uint(refundID), adminID, req.Approve)
	switch {
	case err == nil:
		return response.Success(c, refund)
	case errors.Is(err, services.ErrRefundNotFound):
		return response.NotFound(c, "Refund request not found")
	case errors.Is(err, services.ErrRefundNotPending):
		return response.Conflict(c, "Refund request was already processed")
	default:
		return response.InternalServerError(c, "Failed to process refund")
	}
}

// ListPendingRefunds handles GET /api/v1/admin/refunds, admin only
func (h *RefundHandler) ListPendingRefunds(c *fiber.Ctx) error {
	refunds, err := h.refunds.ListPending(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load pending refunds")
	}

	return response.Success(c, refunds)
}
