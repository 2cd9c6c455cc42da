package admin

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/database"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/auth"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
	"gorm.io/gorm"
)

// ListUsersRequest represents the query parameters for listing users
type ListUsersRequest struct {
	Page    int    `query:"page"`
	Limit   int    `query:"limit"`
	Role    string `query:"role"`
	Search  string `query:"search"`
	Sort    string `query:"sort"`
	SortDir string `query:"sort_dir"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Country string `json:"country"`
}

// ResetPasswordRequest represents the request for admin password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ListUsers retrieves all users with pagination and filters
// GET /admin/users
func ListUsers(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var req ListUsersRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}

	// Default pagination
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Sort == "" {
		req.Sort = "created_at"
	}
	if req.SortDir != "asc" && req.SortDir != "desc" {
		req.SortDir = "desc"
	}

	query := db.Model(&model.User{})

	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}

	// Search by name or email
	if req.Search != "" {
		searchTerm := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	var users []model.User
	offset := (req.Page - 1) * req.Limit
	orderBy := req.Sort + " " + req.SortDir

	if err := query.Offset(offset).Limit(req.Limit).Order(orderBy).Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	// Remove sensitive data
	for i := range users {
		users[i].PasswordHash = ""
	}

	return response.SuccessWithMessage(c, "Users retrieved successfully", fiber.Map{
		"users": users,
		"pagination": fiber.Map{
			"page":        req.Page,
			"limit":       req.Limit,
			"total":       total,
			"total_pages": (total + int64(req.Limit) - 1) / int64(req.Limit),
		},
	})
}

// GetUser retrieves a specific user by ID
// GET /admin/users/:id
func GetUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var user model.User
	if err := db.Preload("BillingDetail").
		First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	// Purchase and teaching activity
	var stats struct {
		TotalOrders       int64   `json:"total_orders"`
		CompletedOrders   int64   `json:"completed_orders"`
		TotalSpent        float64 `json:"total_spent"`
		CoursesOwned      int64   `json:"courses_owned"`
		CoursesPublished  int64   `json:"courses_published"`
		TotalCommissions  float64 `json:"total_commissions"`
		WalletBalance     float64 `json:"wallet_balance"`
		OpenRefunds       int64   `json:"open_refunds"`
		PendingWithdrawal int64   `json:"pending_withdrawals"`
	}

	db.Model(&model.Order{}).Where("user_id = ?", userID).Count(&stats.TotalOrders)
	db.Model(&model.Order{}).Where("user_id = ? AND status = ?", userID, model.OrderStatusCompleted).
		Count(&stats.CompletedOrders)
	db.Model(&model.Order{}).Where("user_id = ? AND status = ?", userID, model.OrderStatusCompleted).
		Select("COALESCE(SUM(final_price), 0)").Scan(&stats.TotalSpent)
	db.Model(&model.OrderCourse{}).
		Joins("JOIN orders ON orders.id = order_courses.order_id").
		Where("orders.user_id = ? AND orders.status = ?", userID, model.OrderStatusCompleted).
		Count(&stats.CoursesOwned)
	db.Model(&model.Course{}).Where("instructor_id = ? AND status = ?", userID, model.CourseStatusPublished).
		Count(&stats.CoursesPublished)
	db.Model(&model.Commission{}).Where("instructor_id = ? AND status = ?", userID, model.CommissionStatusPaid).
		Select("COALESCE(SUM(instructor_share), 0)").Scan(&stats.TotalCommissions)
	db.Model(&model.WalletHistory{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.WalletBalance)
	db.Model(&model.Refund{}).Where("user_id = ? AND status = ?", userID, model.RefundStatusPending).
		Count(&stats.OpenRefunds)
	db.Model(&model.WithdrawalRequest{}).Where("user_id = ? AND status = ?", userID, model.WithdrawalStatusPending).
		Count(&stats.PendingWithdrawal)

	user.PasswordHash = ""

	return response.SuccessWithMessage(c, "User retrieved successfully", fiber.Map{
		"user":  user,
		"stats": stats,
	})
}

// UpdateUser updates a user's information
// PUT /admin/users/:id
func UpdateUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	updates := make(map[string]interface{})

	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		// Check if email is already taken by another user
		var existingUser model.User
		if err := db.Where("email = ? AND id != ?", req.Email, userID).First(&existingUser).Error; err == nil {
			return response.BadRequest(c, "Email already in use")
		}
		updates["email"] = req.Email
	}
	if req.Role != "" {
		if req.Role != model.RoleStudent && req.Role != model.RoleInstructor && req.Role != model.RoleAdmin {
			return response.BadRequest(c, "Invalid role")
		}
		updates["role"] = req.Role
	}
	if req.Country != "" {
		if len(req.Country) != 2 {
			return response.BadRequest(c, "Country must be an ISO 3166-1 alpha-2 code")
		}
		updates["country"] = strings.ToUpper(req.Country)
	}

	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update user")
		}
		if adminID, ok := middleware.GetUserID(c); ok {
			recordAudit(db, c, adminID, "user_update", "users", user.ID, "Updated user profile fields")
		}
	}

	db.First(&user, userID)
	user.PasswordHash = ""

	return response.SuccessWithMessage(c, "User updated successfully", fiber.Map{
		"user": user,
	})
}

// DeleteUser soft deletes a user
// DELETE /admin/users/:id
func DeleteUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	// Prevent self-deletion
	adminID, ok := middleware.GetUserID(c)
	if ok && adminID == uint(userID) {
		return response.BadRequest(c, "Cannot delete your own account")
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	// Soft delete only. Orders, commissions and the wallet ledger reference
	// the user and must survive as financial records.
	if err := db.Delete(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete user")
	}

	recordAudit(db, c, adminID, "user_delete", "users", user.ID, "Soft-deleted user "+user.Email)

	return response.SuccessWithMessage(c, "User deleted successfully", fiber.Map{
		"user_id": userID,
	})
}

// ResetUserPassword allows admin to reset a user's password
// POST /admin/users/:id/reset-password
func ResetUserPassword(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if len(req.NewPassword) < 8 {
		return response.BadRequest(c, "Password must be at least 8 characters")
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to hash password")
	}

	// Update password and increment token version (invalidate all tokens)
	if err := db.Model(&user).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": user.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	if adminID, ok := middleware.GetUserID(c); ok {
		recordAudit(db, c, adminID, "user_password_reset", "users", user.ID, "Admin password reset, sessions invalidated")
	}

	return response.SuccessWithMessage(c, "Password reset successfully", fiber.Map{
		"user_id": userID,
		"message": "All user sessions have been invalidated",
	})
}

// GetUserStats retrieves overall user statistics
// GET /admin/users/stats
func GetUserStats(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var stats struct {
		TotalUsers      int64 `json:"total_users"`
		Students        int64 `json:"students"`
		Instructors     int64 `json:"instructors"`
		Admins          int64 `json:"admins"`
		BuyersThisWeek  int64 `json:"buyers_this_week"`
		BuyersThisMonth int64 `json:"buyers_this_month"`
	}

	db.Model(&model.User{}).Count(&stats.TotalUsers)
	db.Model(&model.User{}).Where("role = ?", model.RoleStudent).Count(&stats.Students)
	db.Model(&model.User{}).Where("role = ?", model.RoleInstructor).Count(&stats.Instructors)
	db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&stats.Admins)

	// Distinct buyers with a completed order in the window
	db.Model(&model.Order{}).
		Where("status = ? AND completed_at >= NOW() - INTERVAL '7 days'", model.OrderStatusCompleted).
		Distinct("user_id").
		Count(&stats.BuyersThisWeek)
	db.Model(&model.Order{}).
		Where("status = ? AND completed_at >= NOW() - INTERVAL '30 days'", model.OrderStatusCompleted).
		Distinct("user_id").
		Count(&stats.BuyersThisMonth)

	return response.SuccessWithMessage(c, "User statistics retrieved successfully", stats)
}
