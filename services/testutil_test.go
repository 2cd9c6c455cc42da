package services

import (
	"fmt"
	"testing"

	"github.com/learnora/academy-api/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testSeq++
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.BillingDetail{},
		&model.Course{},
		&model.Section{},
		&model.Lesson{},
		&model.CartItem{},
		&model.PromoCode{},
		&model.Order{},
		&model.OrderCourse{},
		&model.Transaction{},
		&model.Commission{},
		&model.TaxRule{},
		&model.Refund{},
		&model.WalletHistory{},
		&model.WithdrawalRequest{},
		&model.PayoutAccount{},
		&model.LessonTrack{},
		&model.AppSetting{},
		&model.UserNotification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

var testSeq int

// createUser inserts a user with the given role and returns it
func createUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()
	testSeq++
	user := &model.User{
		Email:        fmt.Sprintf("user%d@example.com", testSeq),
		PasswordHash: "x",
		Name:         fmt.Sprintf("User %d", testSeq),
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// withBilling attaches a billing address so paid checkout is allowed
func withBilling(t *testing.T, db *gorm.DB, user *model.User, country string) {
	t.Helper()
	detail := &model.BillingDetail{
		UserID:     user.ID,
		AddressOne: "1 Test Street",
		City:       "Testville",
		Country:    country,
	}
	if err := db.Create(detail).Error; err != nil {
		t.Fatalf("failed to create billing detail: %v", err)
	}
}

// createCourse inserts a published course priced at listPrice
func createCourse(t *testing.T, db *gorm.DB, instructorID uint, listPrice float64) *model.Course {
	t.Helper()
	testSeq++
	course := &model.Course{
		InstructorID: instructorID,
		Title:        fmt.Sprintf("Course %d", testSeq),
		Slug:         fmt.Sprintf("course-%d", testSeq),
		Status:       model.CourseStatusPublished,
		ListPrice:    listPrice,
		IsFree:       listPrice == 0,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("failed to create course: %v", err)
	}
	return course
}

// withLessons adds one section with n lessons to the course
func withLessons(t *testing.T, db *gorm.DB, course *model.Course, n int) []model.Lesson {
	t.Helper()
	section := &model.Section{CourseID: course.ID, Title: "Section 1"}
	if err := db.Create(section).Error; err != nil {
		t.Fatalf("failed to create section: %v", err)
	}
	lessons := make([]model.Lesson, 0, n)
	for i := 0; i < n; i++ {
		lesson := model.Lesson{
			SectionID: section.ID,
			CourseID:  course.ID,
			Title:     fmt.Sprintf("Lesson %d", i+1),
			Position:  i,
		}
		if err := db.Create(&lesson).Error; err != nil {
			t.Fatalf("failed to create lesson: %v", err)
		}
		lessons = append(lessons, lesson)
	}
	return lessons
}

// checkoutStack wires the full checkout service graph on one test database
type checkoutStack struct {
	pricing    *PricingService
	promos     *PromoService
	settings   *SettingsService
	wallet     *WalletService
	settlement *SettlementService
	orders     *OrderService
}

func newCheckoutStack(db *gorm.DB) *checkoutStack {
	settings := NewSettingsService(db)
	wallet := NewWalletService(db)
	notifications := NewNotificationService(db)
	pricing := NewPricingService(db, nil)
	promos := NewPromoService(db)
	settlement := NewSettlementService(db, settings, wallet, notifications, nil)
	orders := NewOrderService(db, pricing, promos, settings, settlement)
	return &checkoutStack{
		pricing:    pricing,
		promos:     promos,
		settings:   settings,
		wallet:     wallet,
		settlement: settlement,
		orders:     orders,
	}
}
