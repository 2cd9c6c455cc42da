package cart

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
	"gorm.io/gorm"
)

// CartHandler handles shopping cart requests
type CartHandler struct {
	db *gorm.DB
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{db: db}
}

// AddItemRequest represents the add-to-cart payload
type AddItemRequest struct {
	CourseID uint `json:"course_id" validate:"required,min=1"`
}

// ListItems handles GET /api/v1/cart
func (h *CartHandler) ListItems(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var items []model.CartItem
	err := h.db.Preload("Course").Preload("Course.Instructor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to load cart")
	}

	// Subtotal uses effective base prices; promo and tax resolve at checkout
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.Course.BasePrice()
	}

	return response.Success(c, fiber.Map{
		"items":    items,
		"subtotal": subtotal,
	})
}

// AddItem handles POST /api/v1/cart
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CourseID == 0 {
		return response.BadRequest(c, "course_id is required")
	}

	var course model.Course
	err := h.db.Where("id = ? AND status = ?", req.CourseID, model.CourseStatusPublished).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NotFound(c, "Course not found")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to load course")
	}

	if course.InstructorID == userID {
		return response.BadRequest(c, "You cannot buy your own course")
	}

	item := model.CartItem{UserID: userID, CourseID: course.ID}
	if err := h.db.Create(&item).Error; err != nil {
		// The unique index makes double-adds a conflict
		return response.Conflict(c, "Course is already in your cart")
	}

	return response.Created(c, item)
}

// RemoveItem handles DELETE /api/v1/cart/:courseId
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	courseID, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	result := h.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to remove item")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Course is not in your cart")
	}

	return response.NoContent(c)
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	if err := h.db.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
		return response.InternalServerError(c, "Failed to clear cart")
	}

	return response.NoContent(c)
}
