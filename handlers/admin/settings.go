package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/database"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
	"gorm.io/gorm"
)

// ListSettings retrieves all app settings
// GET /admin/settings
func ListSettings(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var settings []model.AppSetting
	if err := db.Find(&settings).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch settings")
	}

	return response.SuccessWithMessage(c, "Settings retrieved successfully", settings)
}

// GetSetting retrieves a specific setting by key
// GET /admin/settings/:key
func GetSetting(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	key := c.Params("key")
	var setting model.AppSetting
	if err := db.Where("key = ?", key).First(&setting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Setting not found")
		}
		return response.InternalServerError(c, "Failed to fetch setting")
	}

	return response.SuccessWithMessage(c, "Setting retrieved successfully", setting)
}

// UpdateSetting updates an existing setting
// PUT /admin/settings/:key
func UpdateSetting(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	key := c.Params("key")

	var req struct {
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var setting model.AppSetting
	if err := db.Where("key = ?", key).First(&setting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Setting not found")
		}
		return response.InternalServerError(c, "Failed to fetch setting")
	}

	if err := db.Model(&setting).Updates(req).Error; err != nil {
		return response.InternalServerError(c, "Failed to update setting")
	}

	return response.SuccessWithMessage(c, "Setting updated successfully", setting)
}

// CreateSettingRequest represents the payload for creating a setting
type CreateSettingRequest struct {
	Key         string `json:"key" validate:"required"`
	Value       string `json:"value" validate:"required"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPublic    bool   `json:"is_public"`
}

// CreateSetting creates a new app setting
// POST /admin/settings
func CreateSetting(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var req CreateSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Key == "" || req.Value == "" {
		return response.BadRequest(c, "Key and value are required")
	}
	if req.Type == "" {
		req.Type = "string"
	}

	setting := model.AppSetting{
		Key:         req.Key,
		Value:       req.Value,
		Type:        req.Type,
		Description: req.Description,
		Category:    req.Category,
		IsPublic:    req.IsPublic,
	}
	if err := db.Create(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "A setting with this key already exists")
		}
		return response.InternalServerError(c, "Failed to create setting")
	}

	if adminID, ok := middleware.GetUserID(c); ok {
		recordAudit(db, c, adminID, "settings_create", "app_settings", setting.ID, "Created setting "+setting.Key)
	}

	return response.Created(c, setting)
}

// DeleteSetting deletes a setting
// DELETE /admin/settings/:key
func DeleteSetting(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	key := c.Params("key")
	result := db.Where("key = ?", key).Delete(&model.AppSetting{})

	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete setting")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Setting not found")
	}

	return response.SuccessWithMessage(c, "Setting deleted successfully", fiber.Map{"key": key})
}

// TaxRuleRequest represents the payload for creating or updating a tax rule
type TaxRuleRequest struct {
	Name        string   `json:"name" validate:"required"`
	CountryCode string   `json:"country_code"` // Empty = global default
	Percentage  *float64 `json:"percentage" validate:"required"`
	Active      *bool    `json:"active"`
}

// ListTaxRules retrieves all tax rules
// GET /admin/tax-rules
func ListTaxRules(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var rules []model.TaxRule
	if err := db.Order("country_code ASC, name ASC").Find(&rules).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch tax rules")
	}

	return response.SuccessWithMessage(c, "Tax rules retrieved successfully", rules)
}

// CreateTaxRule creates a new tax rule
// POST /admin/tax-rules
func CreateTaxRule(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var req TaxRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" || req.Percentage == nil {
		return response.BadRequest(c, "Name and percentage are required")
	}
	if *req.Percentage < 0 || *req.Percentage > 100 {
		return response.BadRequest(c, "Percentage must be between 0 and 100")
	}
	if req.CountryCode != "" && len(req.CountryCode) != 2 {
		return response.BadRequest(c, "Country code must be ISO 3166-1 alpha-2 or empty for the global default")
	}

	rule := model.TaxRule{
		Name:        req.Name,
		CountryCode: strings.ToUpper(req.CountryCode),
		Percentage:  *req.Percentage,
		Active:      true,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := db.Create(&rule).Error; err != nil {
		return response.InternalServerError(c, "Failed to create tax rule")
	}

	if adminID, ok := middleware.GetUserID(c); ok {
		recordAudit(db, c, adminID, "tax_rule_create", "tax_rules", rule.ID, "Created tax rule "+rule.Name)
	}

	return response.Created(c, rule)
}

// UpdateTaxRule updates an existing tax rule
// PUT /admin/tax-rules/:id
func UpdateTaxRule(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	ruleID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid tax rule ID")
	}

	var req TaxRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var rule model.TaxRule
	if err := db.First(&rule, ruleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Tax rule not found")
		}
		return response.InternalServerError(c, "Failed to fetch tax rule")
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Percentage != nil {
		if *req.Percentage < 0 || *req.Percentage > 100 {
			return response.BadRequest(c, "Percentage must be between 0 and 100")
		}
		updates["percentage"] = *req.Percentage
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := db.Model(&rule).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update tax rule")
		}
		if adminID, ok := middleware.GetUserID(c); ok {
			recordAudit(db, c, adminID, "tax_rule_update", "tax_rules", rule.ID, "Updated tax rule "+rule.Name)
		}
	}

	db.First(&rule, ruleID)
	return response.SuccessWithMessage(c, "Tax rule updated successfully", rule)
}

// DeleteTaxRule soft deletes a tax rule
// DELETE /admin/tax-rules/:id
func DeleteTaxRule(c *fiber.Ctx, store database.Storage) error {
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	ruleID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid tax rule ID")
	}

	result := db.Delete(&model.TaxRule{}, ruleID)
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete tax rule")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Tax rule not found")
	}

	if adminID, ok := middleware.GetUserID(c); ok {
		recordAudit(db, c, adminID, "tax_rule_delete", "tax_rules", uint(ruleID), "Deleted tax rule")
	}

	return response.SuccessWithMessage(c, "Tax rule deleted successfully", fiber.Map{"id": ruleID})
}
