package admin

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
	"gorm.io/gorm"
)

// recordAudit appends an admin action to the audit trail. Audit failures are
// swallowed so they never block the action itself.
func recordAudit(db *gorm.DB, c *fiber.Ctx, adminID uint, action, resource string, resourceID uint, description string) {
	entry := model.AdminAuditLog{
		AdminID:     adminID,
		Action:      action,
		Resource:    resource,
		ResourceID:  resourceID,
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
		Description: description,
	}
	_ = db.Create(&entry).Error
}

// OpsHandler exposes the admin money-movement endpoints: withdrawal
// approval, bank transfer verification and payout account reveal.
type OpsHandler struct {
	db      *gorm.DB
	wallet  *services.WalletService
	payment *services.PaymentService
	payouts *services.PayoutAccountService
}

// NewOpsHandler creates a new admin operations handler
func NewOpsHandler(db *gorm.DB, wallet *services.WalletService, payment *services.PaymentService, payouts *services.PayoutAccountService) *OpsHandler {
	return &OpsHandler{db: db, wallet: wallet, payment: payment, payouts: payouts}
}

// ListWithdrawals handles GET /api/v1/admin/withdrawals
func (h *OpsHandler) ListWithdrawals(c *fiber.Ctx) error {
	status := c.Query("status", model.WithdrawalStatusPending)

	var requests []model.WithdrawalRequest
	query := h.db.WithContext(c.Context()).Preload("User")
	if status != "all" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at ASC").Find(&requests).Error; err != nil {
		return response.InternalServerError(c, "Failed to load withdrawal requests")
	}

	return response.Success(c, requests)
}

// ProcessWithdrawalRequest represents the admin decision payload
type ProcessWithdrawalRequest struct {
	Approve   bool   `json:"approve"`
	AdminNote string `json:"admin_note,omitempty"`
}

// ProcessWithdrawal handles POST /api/v1/admin/withdrawals/:id
func (h *OpsHandler) ProcessWithdrawal(c *fiber.Ctx) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	requestID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid withdrawal request ID")
	}

	var req ProcessWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	request, err := h.wallet.ProcessWithdrawal(c.Context(), uint(requestID), adminID, req.Approve, req.AdminNote)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrWithdrawalNotFound):
		return response.NotFound(c, "Withdrawal request not found")
	case errors.Is(err, services.ErrWithdrawalNotPending):
		return response.Conflict(c, "Withdrawal request was already processed")
	case errors.Is(err, services.ErrInsufficientBalance):
		return response.BadRequest(c, "Instructor balance no longer covers this withdrawal")
	default:
		return response.InternalServerError(c, "Failed to process withdrawal")
	}

	action := "withdrawal_reject"
	if req.Approve {
		action = "withdrawal_approve"
	}
	recordAudit(h.db, c, adminID, action, "withdrawal_requests", request.ID,
		fmt.Sprintf("Withdrawal of %.2f for user %d", request.Amount, request.UserID))

	return response.Success(c, request)
}

// ListPendingBankTransfers handles GET /api/v1/admin/bank-transfers
// Returns pending orders paid by bank transfer that have a receipt attached.
func (h *OpsHandler) ListPendingBankTransfers(c *fiber.Ctx) error {
	var orders []model.Order
	err := h.db.WithContext(c.Context()).
		Preload("User").
		Joins("JOIN transactions ON transactions.order_id = orders.id AND transactions.receipt_key <> ''").
		Where("orders.payment_method = ? AND orders.status = ?", model.PaymentMethodBankTransfer, model.OrderStatusPending).
		Group("orders.id").
		Order("orders.created_at ASC").
		Find(&orders).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to load pending bank transfers")
	}

	return response.Success(c, orders)
}

// ProcessBankTransferRequest represents the admin decision payload
type ProcessBankTransferRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

// ProcessBankTransfer handles POST /api/v1/admin/bank-transfers/:orderId
func (h *OpsHandler) ProcessBankTransfer(c *fiber.Ctx) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	orderID, err := strconv.Atoi(c.Params("orderId"))
	if err != nil {
		return response.BadRequest(c, "Invalid order ID")
	}

	var req ProcessBankTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	order, err := h.payment.ApproveBankTransfer(c.Context(), uint(orderID), req.Approve, req.Note)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrOrderNotFound):
		return response.NotFound(c, "Order not found")
	case errors.Is(err, services.ErrOrderNotPending):
		return response.Conflict(c, "Order is no longer pending")
	case errors.Is(err, services.ErrNoReceipt):
		return response.BadRequest(c, "No payment receipt attached to this order")
	default:
		return response.InternalServerError(c, "Failed to process bank transfer")
	}

	action := "bank_transfer_reject"
	if req.Approve {
		action = "bank_transfer_approve"
	}
	recordAudit(h.db, c, adminID, action, "orders", order.ID, "Bank transfer for order "+order.OrderNumber)

	return response.Success(c, order)
}

// RevealPayoutAccount handles GET /api/v1/admin/users/:id/payout-account
// Decrypts and returns an instructor's bank details for payout execution.
// Every reveal is audited.
func (h *OpsHandler) RevealPayoutAccount(c *fiber.Ctx) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	accountNumber, holderName, err := h.payouts.Reveal(c.Context(), uint(userID))
	if err != nil {
		if errors.Is(err, services.ErrNoPayoutAccount) {
			return response.NotFound(c, "User has no payout account on file")
		}
		return response.InternalServerError(c, "Failed to decrypt payout account")
	}

	recordAudit(h.db, c, adminID, "payout_account_reveal", "payout_accounts", uint(userID),
		"Decrypted payout details for user "+strconv.Itoa(userID))

	return response.Success(c, fiber.Map{
		"account_number": accountNumber,
		"holder_name":    holderName,
	})
}
