package services

import (
	"context"
	"testing"

	"github.com/learnora/academy-api/model"
	"gorm.io/gorm"
)

func seedTaxRule(t *testing.T, db *gorm.DB, name, country string, percentage float64, active bool) {
	t.Helper()
	rule := &model.TaxRule{Name: name, CountryCode: country, Percentage: percentage, Active: active}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to seed tax rule %s: %v", name, err)
	}
}

func TestTaxPercent(t *testing.T) {
	db := newTestDB(t)
	pricing := NewPricingService(db, nil)
	ctx := context.Background()

	seedTaxRule(t, db, "GST", "IN", 18, true)
	seedTaxRule(t, db, "Kerala cess", "IN", 1, true)
	seedTaxRule(t, db, "Old VAT", "IN", 5, false)
	seedTaxRule(t, db, "Default VAT", "", 10, true)

	// Country rules stack; inactive ones do not count
	percent, err := pricing.TaxPercent(ctx, "IN")
	if err != nil {
		t.Fatalf("TaxPercent(IN) = %v", err)
	}
	if percent != 19 {
		t.Errorf("TaxPercent(IN) = %v, want 19", percent)
	}

	// No rule for the country falls through to the global default
	percent, err = pricing.TaxPercent(ctx, "DE")
	if err != nil {
		t.Fatalf("TaxPercent(DE) = %v", err)
	}
	if percent != 10 {
		t.Errorf("TaxPercent(DE) = %v, want 10 (global default)", percent)
	}

	// Unknown buyer country also gets the default
	percent, err = pricing.TaxPercent(ctx, "")
	if err != nil {
		t.Fatalf("TaxPercent(\"\") = %v", err)
	}
	if percent != 10 {
		t.Errorf("TaxPercent(\"\") = %v, want 10", percent)
	}
}

func TestTaxRuleInactiveRoundTrip(t *testing.T) {
	db := newTestDB(t)

	// An admin can create a rule disabled up front; it must come back
	// disabled, not be flipped by a column default
	seedTaxRule(t, db, "Draft levy", "FR", 7, false)

	var rule model.TaxRule
	if err := db.Where("name = ?", "Draft levy").First(&rule).Error; err != nil {
		t.Fatalf("failed to reload rule: %v", err)
	}
	if rule.Active {
		t.Error("rule created with Active=false persisted as active")
	}

	percent, err := NewPricingService(db, nil).TaxPercent(context.Background(), "FR")
	if err != nil {
		t.Fatalf("TaxPercent(FR) = %v", err)
	}
	if percent != 0 {
		t.Errorf("TaxPercent(FR) = %v, want 0 with only an inactive rule", percent)
	}
}

func TestTaxPercentNoRules(t *testing.T) {
	db := newTestDB(t)
	pricing := NewPricingService(db, nil)

	percent, err := pricing.TaxPercent(context.Background(), "US")
	if err != nil {
		t.Fatalf("TaxPercent(US) = %v", err)
	}
	if percent != 0 {
		t.Errorf("TaxPercent(US) with empty table = %v, want 0", percent)
	}
}

func TestQuoteTaxOn(t *testing.T) {
	q := Quote{BasePrice: 100, TaxPercent: 18}

	if got := q.TaxOn(100); got != 18 {
		t.Errorf("TaxOn(100) = %v, want 18", got)
	}
	// Tax applies to the post-discount price, rounded to cents
	if got := q.TaxOn(99.99); got != 18.0 {
		t.Errorf("TaxOn(99.99) = %v, want 18.0", got)
	}
	if got := q.TaxOn(0); got != 0 {
		t.Errorf("TaxOn(0) = %v, want 0", got)
	}
	if got := q.TaxOn(-5); got != 0 {
		t.Errorf("TaxOn(-5) = %v, want 0", got)
	}
}

func TestResolveCountry(t *testing.T) {
	pricing := NewPricingService(nil, nil)
	ctx := context.Background()

	buyer := &model.User{Country: "FR"}
	if got := pricing.ResolveCountry(ctx, buyer, "203.0.113.7"); got != "FR" {
		t.Errorf("ResolveCountry() without geo = %q, want profile country FR", got)
	}

	// No profile country: the billing address decides, since paid orders
	// always carry one
	billed := &model.User{BillingDetail: &model.BillingDetail{Country: "IN"}}
	if got := pricing.ResolveCountry(ctx, billed, ""); got != "IN" {
		t.Errorf("ResolveCountry() with billing only = %q, want IN", got)
	}

	// The profile country wins over the billing address
	both := &model.User{Country: "FR", BillingDetail: &model.BillingDetail{Country: "IN"}}
	if got := pricing.ResolveCountry(ctx, both, ""); got != "FR" {
		t.Errorf("ResolveCountry() with both = %q, want FR", got)
	}

	if got := pricing.ResolveCountry(ctx, &model.User{}, ""); got != "" {
		t.Errorf("ResolveCountry() with nothing = %q, want empty", got)
	}
	if got := pricing.ResolveCountry(ctx, nil, ""); got != "" {
		t.Errorf("ResolveCountry(nil buyer) = %q, want empty", got)
	}
}

func TestQuoteCourseUsesDiscountPrice(t *testing.T) {
	db := newTestDB(t)
	pricing := NewPricingService(db, nil)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	course := createCourse(t, db, instructor.ID, 200)
	course.DiscountPrice = 149.99
	if err := db.Save(course).Error; err != nil {
		t.Fatalf("failed to update course: %v", err)
	}

	quote, err := pricing.QuoteCourse(ctx, course, "")
	if err != nil {
		t.Fatalf("QuoteCourse() = %v", err)
	}
	if quote.BasePrice != 149.99 {
		t.Errorf("BasePrice = %v, want discount price 149.99", quote.BasePrice)
	}
}
