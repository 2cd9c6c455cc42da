package wallet

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
)

// WalletHandler handles wallet balance, history and payout requests
type WalletHandler struct {
	wallet  *services.WalletService
	payouts *services.PayoutAccountService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(wallet *services.WalletService, payouts *services.PayoutAccountService) *WalletHandler {
	return &WalletHandler{wallet: wallet, payouts: payouts}
}

// GetBalance handles GET /api/v1/wallet
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	balance, err := h.wallet.Balance(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load balance")
	}

	return response.Success(c, fiber.Map{"balance": balance})
}

// GetHistory handles GET /api/v1/wallet/history
func (h *WalletHandler) GetHistory(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}

	entries, total, err := h.wallet.History(c.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load wallet history")
	}

	return response.Paginated(c, entries, response.CalculatePagination(page, limit, total))
}

// WithdrawRequest represents a payout request payload
type WithdrawRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Note   string  `json:"note,omitempty"`
}

// RequestWithdrawal handles POST /api/v1/wallet/withdrawals
func (h *WalletHandler) RequestWithdrawal(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	if !user.IsInstructor() {
		return response.Forbidden(c, "Only instructors can withdraw earnings")
	}

	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Amount <= 0 {
		return response.BadRequest(c, "Amount must be positive")
	}

	// A payout account must be on file before requesting
	if _, err := h.payouts.Get(c.Context(), user.ID); err != nil {
		if errors.Is(err, services.ErrNoPayoutAccount) {
			return response.BadRequest(c, "Add a payout account before requesting a withdrawal")
		}
		return response.InternalServerError(c, "Failed to check payout account")
	}

	request, err := h.wallet.RequestWithdrawal(c.Context(), user.ID, req.Amount, req.Note)
	if errors.Is(err, services.ErrInsufficientBalance) {
		return response.BadRequest(c, "Insufficient wallet balance")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to create withdrawal request")
	}

	return response.Created(c, request)
}

// PayoutAccountRequest represents the bank account payload
type PayoutAccountRequest struct {
	BankName      string `json:"bank_name" validate:"required,min=2,max=100"`
	AccountNumber string `json:"account_number" validate:"required,min=6,max=34"`
	HolderName    string `json:"holder_name" validate:"required,min=2,max=100"`
}

// SavePayoutAccount handles PUT /api/v1/wallet/payout-account
func (h *WalletHandler) SavePayoutAccount(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	if !user.IsInstructor() {
		return response.Forbidden(c, "Only instructors keep payout accounts")
	}

	var req PayoutAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BankName == "" || len(req.AccountNumber) < 6 || req.HolderName == "" {
		return response.BadRequest(c, "Bank name, account number and holder name are required")
	}

	account, err := h.payouts.Save(c.Context(), user.ID, req.BankName, req.AccountNumber, req.HolderName)
	if err != nil {
		return response.InternalServerError(c, "Failed to save payout account")
	}

	return response.Success(c, account)
}

// GetPayoutAccount handles GET /api/v1/wallet/payout-account
func (h *WalletHandler) GetPayoutAccount(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	account, err := h.payouts.Get(c.Context(), userID)
	if errors.Is(err, services.ErrNoPayoutAccount) {
		return response.NotFound(c, "No payout account on file")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to load payout account")
	}

	return response.Success(c, account)
}

// DeletePayoutAccount handles DELETE /api/v1/wallet/payout-account
func (h *WalletHandler) DeletePayoutAccount(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	err := h.payouts.Delete(c.Context(), userID)
	if errors.Is(err, services.ErrNoPayoutAccount) {
		return response.NotFound(c, "No payout account on file")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to delete payout account")
	}

	return response.NoContent(c)
}
