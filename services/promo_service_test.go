package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/learnora/academy-api/model"
)

func activeWindow() (time.Time, time.Time) {
	now := time.Now()
	return now.Add(-24 * time.Hour), now.Add(24 * time.Hour)
}

func TestPromoValidate(t *testing.T) {
	db := newTestDB(t)
	promos := NewPromoService(db)

	start, end := activeWindow()
	quota := 5

	cases := []struct {
		name  string
		promo model.PromoCode
		want  error
	}{
		{
			name:  "valid",
			promo: model.PromoCode{Active: true, StartDate: start, EndDate: end, Quota: &quota},
			want:  nil,
		},
		{
			name:  "inactive",
			promo: model.PromoCode{Active: false, StartDate: start, EndDate: end},
			want:  ErrPromoInactive,
		},
		{
			name:  "not yet started",
			promo: model.PromoCode{Active: true, StartDate: end, EndDate: end.Add(time.Hour)},
			want:  ErrPromoOutsideWindow,
		},
		{
			name:  "expired",
			promo: model.PromoCode{Active: true, StartDate: start.Add(-time.Hour), EndDate: start},
			want:  ErrPromoOutsideWindow,
		},
		{
			name:  "exhausted",
			promo: model.PromoCode{Active: true, StartDate: start, EndDate: end, Quota: newInt(0)},
			want:  ErrPromoExhausted,
		},
		{
			name:  "unlimited quota",
			promo: model.PromoCode{Active: true, StartDate: start, EndDate: end, Quota: nil},
			want:  nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := promos.Validate(&tc.promo)
			if !errors.Is(err, tc.want) && err != tc.want {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func newInt(v int) *int { return &v }

func TestPromoInactiveRoundTrip(t *testing.T) {
	db := newTestDB(t)
	promos := NewPromoService(db)

	admin := createUser(t, db, model.RoleAdmin)
	start, end := activeWindow()
	promo := &model.PromoCode{
		Code:          "DISABLED",
		OwnerID:       admin.ID,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountAmount,
		DiscountValue: 5,
		StartDate:     start,
		EndDate:       end,
		Active:        false,
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}

	// The disabled flag must survive the insert; a column default would
	// silently activate the code
	found, err := promos.FindByCode(context.Background(), "DISABLED")
	if err != nil {
		t.Fatalf("FindByCode() = %v", err)
	}
	if found.Active {
		t.Error("promo created with Active=false persisted as active")
	}
	if err := promos.Validate(found); !errors.Is(err, ErrPromoInactive) {
		t.Errorf("Validate() = %v, want ErrPromoInactive", err)
	}
}

func TestPromoDiscountOn(t *testing.T) {
	cases := []struct {
		name  string
		promo model.PromoCode
		price float64
		want  float64
	}{
		{"percentage", model.PromoCode{DiscountType: model.DiscountPercentage, DiscountValue: 25}, 200, 50},
		{"percentage over 100 clamps", model.PromoCode{DiscountType: model.DiscountPercentage, DiscountValue: 150}, 80, 80},
		{"flat amount", model.PromoCode{DiscountType: model.DiscountAmount, DiscountValue: 30}, 100, 30},
		{"flat amount clamps to price", model.PromoCode{DiscountType: model.DiscountAmount, DiscountValue: 500}, 100, 100},
		{"free course yields nothing", model.PromoCode{DiscountType: model.DiscountPercentage, DiscountValue: 50}, 0, 0},
		{"unknown type yields nothing", model.PromoCode{DiscountType: "mystery", DiscountValue: 50}, 100, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.promo.DiscountOn(tc.price); got != tc.want {
				t.Errorf("DiscountOn(%v) = %v, want %v", tc.price, got, tc.want)
			}
		})
	}
}

func TestPromoEvaluateScope(t *testing.T) {
	db := newTestDB(t)
	promos := NewPromoService(db)
	ctx := context.Background()

	instructor := createUser(t, db, model.RoleInstructor)
	admin := createUser(t, db, model.RoleAdmin)
	ownCourse := createCourse(t, db, instructor.ID, 100)
	otherCourse := createCourse(t, db, instructor.ID, 100)

	start, end := activeWindow()

	instructorPromo := &model.PromoCode{
		Code:          "TEACH10",
		OwnerID:       instructor.ID,
		OwnerRole:     model.PromoOwnerInstructor,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
		Courses:       []model.Course{*ownCourse},
	}
	if err := db.Create(instructorPromo).Error; err != nil {
		t.Fatalf("failed to create instructor promo: %v", err)
	}

	adminPromo := &model.PromoCode{
		Code:          "SITEWIDE20",
		OwnerID:       admin.ID,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 20,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
	}
	if err := db.Create(adminPromo).Error; err != nil {
		t.Fatalf("failed to create admin promo: %v", err)
	}

	// Instructor code on its attached course discounts
	discount, err := promos.Evaluate(ctx, instructorPromo, ownCourse.ID, 100)
	if err != nil {
		t.Fatalf("Evaluate() on attached course: %v", err)
	}
	if discount != 10 {
		t.Errorf("Evaluate() discount = %v, want 10", discount)
	}

	// Instructor code on an unattached course yields zero, silently
	discount, err = promos.Evaluate(ctx, instructorPromo, otherCourse.ID, 100)
	if err != nil {
		t.Fatalf("Evaluate() out of scope must not error, got %v", err)
	}
	if discount != 0 {
		t.Errorf("Evaluate() out of scope discount = %v, want 0", discount)
	}

	// Admin code applies everywhere
	discount, err = promos.Evaluate(ctx, adminPromo, otherCourse.ID, 100)
	if err != nil {
		t.Fatalf("Evaluate() admin promo: %v", err)
	}
	if discount != 20 {
		t.Errorf("Evaluate() admin discount = %v, want 20", discount)
	}
}

func TestPromoFindByCodeNormalizesCase(t *testing.T) {
	db := newTestDB(t)
	promos := NewPromoService(db)
	ctx := context.Background()

	admin := createUser(t, db, model.RoleAdmin)
	start, end := activeWindow()
	promo := &model.PromoCode{
		Code:          "SPRING24",
		OwnerID:       admin.ID,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountAmount,
		DiscountValue: 5,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}

	found, err := promos.FindByCode(ctx, "  spring24 ")
	if err != nil {
		t.Fatalf("FindByCode() = %v", err)
	}
	if found.ID != promo.ID {
		t.Errorf("FindByCode() found code %d, want %d", found.ID, promo.ID)
	}

	if _, err := promos.FindByCode(ctx, "NOPE"); !errors.Is(err, ErrPromoNotFound) {
		t.Errorf("FindByCode(unknown) = %v, want ErrPromoNotFound", err)
	}
}

func TestPromoConsumeQuota(t *testing.T) {
	db := newTestDB(t)
	promos := NewPromoService(db)
	ctx := context.Background()

	admin := createUser(t, db, model.RoleAdmin)
	start, end := activeWindow()

	quota := 1
	limited := &model.PromoCode{
		Code:          "LASTONE",
		OwnerID:       admin.ID,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountAmount,
		DiscountValue: 5,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
		Quota:         &quota,
	}
	if err := db.Create(limited).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}

	if err := promos.ConsumeQuota(ctx, nil, limited.ID); err != nil {
		t.Fatalf("ConsumeQuota() first use: %v", err)
	}

	var reloaded model.PromoCode
	if err := db.First(&reloaded, limited.ID).Error; err != nil {
		t.Fatalf("failed to reload promo: %v", err)
	}
	if reloaded.Quota == nil || *reloaded.Quota != 0 {
		t.Errorf("quota after use = %v, want 0", reloaded.Quota)
	}

	// The last slot is gone; a second consumption must fail
	if err := promos.ConsumeQuota(ctx, nil, limited.ID); !errors.Is(err, ErrPromoExhausted) {
		t.Errorf("ConsumeQuota() on exhausted code = %v, want ErrPromoExhausted", err)
	}

	// Unlimited codes are never decremented
	unlimited := &model.PromoCode{
		Code:          "FOREVER",
		OwnerID:       admin.ID,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountAmount,
		DiscountValue: 5,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
	}
	if err := db.Create(unlimited).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := promos.ConsumeQuota(ctx, nil, unlimited.ID); err != nil {
			t.Fatalf("ConsumeQuota() on unlimited code: %v", err)
		}
	}
	var unlimitedReloaded model.PromoCode
	if err := db.First(&unlimitedReloaded, unlimited.ID).Error; err != nil {
		t.Fatalf("failed to reload promo: %v", err)
	}
	if unlimitedReloaded.Quota != nil {
		t.Errorf("unlimited quota mutated to %v, want nil", *unlimitedReloaded.Quota)
	}
}
