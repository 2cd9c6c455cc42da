package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/response"
	"gorm.io/gorm"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Name      string `json:"name,omitempty"`
	Country   string `json:"country,omitempty" validate:"omitempty,len=2"`
	Title     string `json:"title,omitempty"`
	Biography string `json:"biography,omitempty"`
}

// BillingDetailRequest represents the billing address payload
type BillingDetailRequest struct {
	AddressOne string `json:"address_one" validate:"required"`
	AddressTwo string `json:"address_two,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country" validate:"required,len=2"`
	Phone      string `json:"phone,omitempty"`
}

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id")
	if userID == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var user model.User
	if err := h.db.First(&user, userID.(uint)).Error; err != nil {
		return response.NotFound(c, "User not found")
	}

	res := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Country:   user.Country,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	return response.Success(c, res)
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id")
	if userID == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var user model.User
	if err := h.db.First(&user, userID.(uint)).Error; err != nil {
		return response.NotFound(c, "User not found")
	}

	// Update fields if provided
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Country != "" {
		if len(req.Country) != 2 {
			return response.BadRequest(c, "Country must be an ISO 3166-1 alpha-2 code")
		}
		user.Country = req.Country
	}
	if req.Title != "" {
		user.Title = req.Title
	}
	if req.Biography != "" {
		user.Biography = req.Biography
	}

	if err := h.db.Save(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	res := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Country:   user.Country,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	return response.Success(c, res)
}

// GetBillingDetail retrieves the current user's billing address
func (h *AuthHandler) GetBillingDetail(c *fiber.Ctx) error {
	userID := c.Locals("user_id")
	if userID == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var billing model.BillingDetail
	err := h.db.Where("user_id = ?", userID.(uint)).First(&billing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NotFound(c, "No billing details on file")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to load billing details")
	}

	return response.Success(c, billing)
}

// UpsertBillingDetail creates or replaces the billing address required
// before paid checkout
func (h *AuthHandler) UpsertBillingDetail(c *fiber.Ctx) error {
	userID := c.Locals("user_id")
	if userID == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req BillingDetailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.AddressOne == "" || req.City == "" || len(req.Country) != 2 {
		return response.BadRequest(c, "Address, city and a 2-letter country code are required")
	}

	var billing model.BillingDetail
	err := h.db.Where("user_id = ?", userID.(uint)).First(&billing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return response.InternalServerError(c, "Failed to load billing details")
	}

	billing.UserID = userID.(uint)
	billing.AddressOne = req.AddressOne
	billing.AddressTwo = req.AddressTwo
	billing.City = req.City
	billing.State = req.State
	billing.PostalCode = req.PostalCode
	billing.Country = req.Country
	billing.Phone = req.Phone

	if err := h.db.Save(&billing).Error; err != nil {
		return response.InternalServerError(c, "Failed to save billing details")
	}

	return response.Success(c, billing)
}
