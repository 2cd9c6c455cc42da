package promo

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
	"github.com/learnora/academy-api/utils/validation"
	"gorm.io/gorm"
)

// PromoHandler handles promo code management and validation
type PromoHandler struct {
	db        *gorm.DB
	promos    *services.PromoService
	validator *validation.Validator
}

// NewPromoHandler creates a new promo handler
func NewPromoHandler(db *gorm.DB, promos *services.PromoService) *PromoHandler {
	return &PromoHandler{
		db:        db,
		promos:    promos,
		validator: validation.NewValidator(),
	}
}

// CreatePromoRequest represents the promo creation payload
type CreatePromoRequest struct {
	Code          string    `json:"code" validate:"required,min=3,max=50"`
	DiscountType  string    `json:"discount_type" validate:"required,oneof=amount percentage"`
	DiscountValue float64   `json:"discount_value" validate:"required,gt=0"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	Quota         *int      `json:"quota,omitempty" validate:"omitempty,min=0"`
	CourseIDs     []uint    `json:"course_ids,omitempty"`
}

// CreatePromo handles POST /api/v1/promo-codes. Admins create global
// codes; instructors must attach at least one of their own courses.
func (h *PromoHandler) CreatePromo(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	if !user.IsInstructor() {
		return response.Forbidden(c, "Only instructors and admins can create promo codes")
	}

	var req CreatePromoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if !req.EndDate.After(req.StartDate) {
		return response.BadRequest(c, "end_date must be after start_date")
	}
	if model.DiscountType(req.DiscountType) == model.DiscountPercentage && req.DiscountValue > 100 {
		return response.BadRequest(c, "Percentage discount cannot exceed 100")
	}

	ownerRole := model.PromoOwnerInstructor
	if user.Role == model.RoleAdmin {
		ownerRole = model.PromoOwnerAdmin
	}

	var courses []model.Course
	if ownerRole == model.PromoOwnerInstructor {
		if len(req.CourseIDs) == 0 {
			return response.BadRequest(c, "Instructor codes must be attached to at least one course")
		}
		err := h.db.Where("id IN ? AND instructor_id = ?", req.CourseIDs, user.ID).Find(&courses).Error
		if err != nil {
			return response.InternalServerError(c, "Failed to load courses")
		}
		if len(courses) != len(req.CourseIDs) {
			return response.Forbidden(c, "You can only attach your own courses")
		}
	} else if len(req.CourseIDs) > 0 {
		if err := h.db.Where("id IN ?", req.CourseIDs).Find(&courses).Error; err != nil {
			return response.InternalServerError(c, "Failed to load courses")
		}
	}

	promo := model.PromoCode{
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		OwnerID:       user.ID,
		OwnerRole:     ownerRole,
		DiscountType:  model.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Quota:         req.Quota,
		Active:        true,
		Courses:       courses,
	}
	if err := h.db.Create(&promo).Error; err != nil {
		return response.Conflict(c, "A promo code with this code already exists")
	}

	return response.Created(c, promo)
}

// ListPromos handles GET /api/v1/promo-codes. Admins see all codes,
// instructors their own.
func (h *PromoHandler) ListPromos(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	query := h.db.Model(&model.PromoCode{}).Preload("Courses")
	if user.Role != model.RoleAdmin {
		query = query.Where("owner_id = ?", user.ID)
	}

	var promos []model.PromoCode
	if err := query.Order("created_at DESC").Find(&promos).Error; err != nil {
		return response.InternalServerError(c, "Failed to load promo codes")
	}

	return response.Success(c, promos)
}

// DeactivatePromo handles DELETE /api/v1/promo-codes/:id. Codes are
// deactivated, not deleted: completed orders reference them.
func (h *PromoHandler) DeactivatePromo(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid promo code ID")
	}

	var promo model.PromoCode
	if err := h.db.First(&promo, id).Error; err != nil {
		return response.NotFound(c, "Promo code not found")
	}
	if promo.OwnerID != user.ID && user.Role != model.RoleAdmin {
		return response.Forbidden(c, "You do not own this promo code")
	}

	promo.Active = false
	if err := h.db.Save(&promo).Error; err != nil {
		return response.InternalServerError(c, "Failed to deactivate promo code")
	}

	return response.SuccessWithMessage(c, "Promo code deactivated", promo)
}

// ValidatePromoRequest represents the pre-checkout validation payload
type ValidatePromoRequest struct {
	Code     string `json:"code" validate:"required"`
	CourseID uint   `json:"course_id" validate:"required,min=1"`
}

// ValidatePromo handles POST /api/v1/promo-codes/validate: a dry-run
// evaluation so the client can preview the discount before checkout.
func (h *PromoHandler) ValidatePromo(c *fiber.Ctx) error {
	if _, ok := middleware.GetUserID(c); !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ValidatePromoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Code == "" || req.CourseID == 0 {
		return response.BadRequest(c, "code and course_id are required")
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

	promo, err := h.promos.FindByCode(c.Context(), req.Code)
	if errors.Is(err, services.ErrPromoNotFound) {
		return response.NotFound(c, "Promo code not found")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to look up promo code")
	}

	discount, err := h.promos.Evaluate(c.Context(), promo, course.ID, course.BasePrice())
	switch {
	case err == nil:
	case errors.Is(err, services.ErrPromoInactive),
		errors.Is(err, services.ErrPromoOutsideWindow),
		errors.Is(err, services.ErrPromoExhausted):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, "Failed to evaluate promo code")
	}

	return response.Success(c, fiber.Map{
		"code":       promo.Code,
		"base_price": course.BasePrice(),
		"discount":   discount,
		"applies":    discount > 0,
	})
}
