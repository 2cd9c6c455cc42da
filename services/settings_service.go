package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/learnora/academy-api/model"
	"gorm.io/gorm"
)

// Setting keys used by the checkout & settlement workflow
const (
	SettingInstructorCommissionRate = "instructor_commission_rate"
	SettingPlatformCurrency         = "platform_currency"
	SettingCertificateFee           = "certificate_fee"
)

// Fallbacks when a setting row is missing
const (
	defaultCommissionRate = 70.0
	defaultCurrency       = "USD"
	defaultCertificateFee = 10.0
)

// SettingsService reads and updates platform-wide settings
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the raw value for key, or "" when the setting is absent
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	var setting model.AppSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return setting.Value, nil
}

// GetFloat returns a numeric setting, falling back to fallback when the
// setting is absent or malformed
func (s *SettingsService) GetFloat(ctx context.Context, key string, fallback float64) float64 {
	value, err := s.Get(ctx, key)
	if err != nil || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// CommissionRate returns the instructor's share percentage (0-100)
func (s *SettingsService) CommissionRate(ctx context.Context) float64 {
	rate := s.GetFloat(ctx, SettingInstructorCommissionRate, defaultCommissionRate)
	if rate < 0 || rate > 100 {
		return defaultCommissionRate
	}
	return rate
}

// Currency returns the platform's ISO 4217 currency code
func (s *SettingsService) Currency(ctx context.Context) string {
	value, err := s.Get(ctx, SettingPlatformCurrency)
	if err != nil || value == "" {
		return defaultCurrency
	}
	return value
}

// CertificateFee returns the flat fee for an optional course certificate
func (s *SettingsService) CertificateFee(ctx context.Context) float64 {
	return s.GetFloat(ctx, SettingCertificateFee, defaultCertificateFee)
}

// Set upserts a setting value
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	var setting model.AppSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		setting = model.AppSetting{Key: key, Value: value}
		if createErr := s.db.WithContext(ctx).Create(&setting).Error; createErr != nil {
			return fmt.Errorf("failed to create setting %s: %w", key, createErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	if err := s.db.WithContext(ctx).Model(&setting).Update("value", value).Error; err != nil {
		return fmt.Errorf("failed to update setting %s: %w", key, err)
	}
	return nil
}
