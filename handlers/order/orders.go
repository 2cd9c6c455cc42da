package order

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
	"gorm.io/gorm"
)

// OrderHandler handles checkout and order history requests
type OrderHandler struct {
	db       *gorm.DB
	orders   *services.OrderService
	payments *services.PaymentService
	invoices *services.InvoiceService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, orders *services.OrderService, payments *services.PaymentService, invoices *services.InvoiceService) *OrderHandler {
	return &OrderHandler{
		db:       db,
		orders:   orders,
		payments: payments,
		invoices: invoices,
	}
}

// PlaceOrderRequest represents one checkout request. Either course_id
// (buy now) or from_cart must be set.
type PlaceOrderRequest struct {
	CourseID        *uint  `json:"course_id,omitempty"`
	FromCart        bool   `json:"from_cart,omitempty"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
	PromoCode       string `json:"promo_code,omitempty"`
	WithCertificate bool   `json:"with_certificate,omitempty"`
}

// PlaceOrder handles POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CourseID == nil && !req.FromCart {
		return response.BadRequest(c, "Provide course_id or set from_cart")
	}
	if req.CourseID != nil && req.FromCart {
		return response.BadRequest(c, "course_id and from_cart are mutually exclusive")
	}
	if req.PaymentMethod == "" {
		return response.BadRequest(c, "payment_method is required")
	}
	if !validPaymentMethod(req.PaymentMethod) {
		return response.BadRequest(c, "Unknown payment method")
	}

	order, err := h.orders.PlaceOrder(c.Context(), services.PlaceOrderInput{
		UserID:          userID,
		CourseID:        req.CourseID,
		FromCart:        req.FromCart,
		PaymentMethod:   req.PaymentMethod,
		PromoCode:       req.PromoCode,
		WithCertificate: req.WithCertificate,
		ClientIP:        c.IP(),
	})
	if err != nil {
		return h.mapOrderError(c, err)
	}

	buyer, _ := middleware.GetUser(c)
	result, err := h.payments.Dispatch(c.Context(), order, buyer)
	if err != nil {
		return h.mapOrderError(c, err)
	}

	return response.Created(c, result)
}

func validPaymentMethod(method string) bool {
	switch method {
	case model.PaymentMethodFree, model.PaymentMethodWallet, model.PaymentMethodBankTransfer:
		return true
	}
	return model.IsGatewayMethod(method)
}

func (h *OrderHandler) mapOrderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEmptyOrder):
		return response.BadRequest(c, "There is nothing to buy")
	case errors.Is(err, services.ErrCourseNotAvailable):
		return response.NotFound(c, "Course is not available for purchase")
	case errors.Is(err, services.ErrAlreadyPurchased):
		return response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrBillingRequired):
		return response.BadRequest(c, "Add billing details before a paid checkout")
	case errors.Is(err, services.ErrPromoNotFound),
		errors.Is(err, services.ErrPromoInactive),
		errors.Is(err, services.ErrPromoOutsideWindow),
		errors.Is(err, services.ErrPromoExhausted):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		return response.BadRequest(c, "Insufficient wallet balance")
	case errors.Is(err, services.ErrUnsupportedMethod):
		return response.BadRequest(c, "Unsupported payment method")
	default:
		return response.InternalServerError(c, "Checkout failed")
	}
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}

	orders, total, err := h.orders.ListOrders(c.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load orders")
	}

	return response.Paginated(c, orders, response.CalculatePagination(page, limit, total))
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid order ID")
	}

	order, err := h.orders.GetOrder(c.Context(), userID, uint(orderID))
	if errors.Is(err, services.ErrOrderNotFound) {
		return response.NotFound(c, "Order not found")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to load order")
	}

	return response.Success(c, order)
}

// DownloadInvoice handles GET /api/v1/orders/:id/invoice
func (h *OrderHandler) DownloadInvoice(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid order ID")
	}

	doc, _, err := h.invoices.Download(c.Context(), userID, uint(orderID))
	if errors.Is(err, services.ErrOrderNotFound) {
		return response.NotFound(c, "Order not found")
	}
	if err != nil {
		return response.BadRequest(c, "Invoice is only available for completed orders")
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(doc)
}

// UploadReceipt handles POST /api/v1/orders/:id/receipt for bank-transfer
// orders
func (h *OrderHandler) UploadReceipt(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid order ID")
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		return response.BadRequest(c, "Attach the receipt as a 'receipt' file field")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read receipt")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return response.BadRequest(c, "Failed to read receipt")
	}

	txn, err := h.payments.AttachReceipt(c.Context(), userID, uint(orderID), content)
	switch {
	case err == nil:
		return response.SuccessWithMessage(c, "Receipt uploaded, pending review", txn)
	case errors.Is(err, services.ErrOrderNotFound):
		return response.NotFound(c, "Order not found")
	case errors.Is(err, services.ErrOrderNotPending):
		return response.Conflict(c, "Order is already completed")
	case errors.Is(err, services.ErrInvalidReceipt):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUnsupportedMethod):
		return response.BadRequest(c, "This order is not a bank transfer")
	case errors.Is(err, services.ErrStorageUnavailable):
		return response.ServiceUnavailable(c, "Receipt uploads are temporarily unavailable")
	default:
		return response.InternalServerError(c, "Failed to store receipt")
	}
}
