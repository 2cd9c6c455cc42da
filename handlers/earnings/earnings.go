package earnings

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
)

// EarningsHandler serves the instructor earnings dashboard
type EarningsHandler struct {
	earnings *services.EarningsService
}

// NewEarningsHandler creates a new earnings handler
func NewEarningsHandler(earnings *services.EarningsService) *EarningsHandler {
	return &EarningsHandler{earnings: earnings}
}

// GetDashboard handles GET /api/v1/earnings
func (h *EarningsHandler) GetDashboard(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	if !user.IsInstructor() {
		return response.Forbidden(c, "Earnings are for instructors only")
	}

	months, _ := strconv.Atoi(c.Query("months", "12"))
	dashboard, err := h.earnings.GetDashboard(c.Context(), user.ID, months)
	if err != nil {
		return response.InternalServerError(c, "Failed to load earnings")
	}

	return response.Success(c, dashboard)
}

// ListCommissions handles GET /api/v1/earnings/commissions
func (h *EarningsHandler) ListCommissions(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	if !user.IsInstructor() {
		return response.Forbidden(c, "Earnings are for instructors only")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}

	commissions, total, err := h.earnings.ListCommissions(c.Context(), user.ID, limit, (page-1)*limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load commissions")
	}

	return response.Paginated(c, commissions, response.CalculatePagination(page, limit, total))
}
