package services

import (
	"context"
	"fmt"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/services/geo"
	"github.com/learnora/academy-api/utils/money"
	"gorm.io/gorm"
)

// PricingService resolves a course's base price and the tax percentage
// applicable to a buyer's country. It has no side effects beyond a tax-table
// read and the best-effort geolocation lookup.
type PricingService struct {
	db  *gorm.DB
	geo *geo.Client
}

// NewPricingService creates a new pricing service
func NewPricingService(db *gorm.DB, geoClient *geo.Client) *PricingService {
	return &PricingService{db: db, geo: geoClient}
}

// ResolveCountry determines the buyer's country for tax purposes:
// IP geolocation first, then the profile country, then the billing address
// country (mandatory for paid orders), "" when nothing resolves.
// Geolocation failures are swallowed; checkout must not fail because an
// external lookup timed out.
func (s *PricingService) ResolveCountry(ctx context.Context, buyer *model.User, clientIP string) string {
	if s.geo != nil {
		if country := s.geo.CountryForIP(ctx, clientIP); country != "" {
			return country
		}
	}
	if buyer == nil {
		return ""
	}
	if buyer.Country != "" {
		return buyer.Country
	}
	if buyer.BillingDetail != nil && buyer.BillingDetail.Country != "" {
		return buyer.BillingDetail.Country
	}
	return ""
}

// TaxPercent sums all active tax rules matching the country. When no
// country-specific rule matches, the global default rule (empty country
// code) applies; when none exists either, the rate is zero.
func (s *PricingService) TaxPercent(ctx context.Context, country string) (float64, error) {
	if country != "" {
		var percent float64
		err := s.db.WithContext(ctx).Model(&model.TaxRule{}).
			Where("country_code = ? AND active = ?", country, true).
			Select("COALESCE(SUM(percentage), 0)").
			Scan(&percent).Error
		if err != nil {
			return 0, fmt.Errorf("failed to sum tax rules for %s: %w", country, err)
		}
		if percent > 0 {
			return percent, nil
		}
	}

	// Global default rule
	var percent float64
	err := s.db.WithContext(ctx).Model(&model.TaxRule{}).
		Where("country_code = ? AND active = ?", "", true).
		Select("COALESCE(SUM(percentage), 0)").
		Scan(&percent).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read default tax rule: %w", err)
	}
	return percent, nil
}

// Quote is the resolved pricing for one course and one buyer country
type Quote struct {
	BasePrice  float64 // Discount price if set, else list price
	TaxPercent float64
}

// TaxOn computes the tax amount on a post-discount price. Tax is always
// exclusive: computed on top of the discounted base, never carved out of it.
func (q Quote) TaxOn(price float64) float64 {
	if price <= 0 {
		return 0
	}
	return money.Round(price * q.TaxPercent / 100)
}

// QuoteCourse resolves the base price and tax percentage for one course.
// Unlike geolocation, a tax-table read failure is a database error and
// propagates: the enclosing checkout transaction rolls back.
func (s *PricingService) QuoteCourse(ctx context.Context, course *model.Course, country string) (Quote, error) {
	percent, err := s.TaxPercent(ctx, country)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		BasePrice:  money.Round(course.BasePrice()),
		TaxPercent: percent,
	}, nil
}
