package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedAppSettings(); err != nil {
		return fmt.Errorf("failed to seed app settings: %w", err)
	}

	if err := s.SeedTaxRules(); err != nil {
		return fmt.Errorf("failed to seed tax rules: %w", err)
	}

	if err := s.SeedCatalog(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user
func (s *Seeder) SeedAdminUser() error {
	// Check if admin already exists
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin user already exists, skipping...")
		return nil
	}

	// Get admin credentials from environment variables
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil
	}

	// Hash password
	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Name:         "System Administrator",
		Role:         model.RoleAdmin,
		Country:      "US",
		TokenVersion: 0,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin user: %s\n", admin.Email)
	return nil
}

// SeedAppSettings creates the default platform settings
func (s *Seeder) SeedAppSettings() error {
	settings := []model.AppSetting{
		{
			Key:         "instructor_commission_rate",
			Value:       "70",
			Type:        "int",
			Description: "Percentage of recognized revenue (excl. tax) credited to the instructor at settlement",
			Category:    "payments",
		},
		{
			Key:         "platform_currency",
			Value:       "USD",
			Type:        "string",
			Description: "ISO 4217 currency used for all orders",
			IsPublic:    true,
			Category:    "payments",
		},
		{
			Key:         "certificate_fee",
			Value:       "10",
			Type:        "int",
			Description: "Flat fee for an optional course completion certificate",
			IsPublic:    true,
			Category:    "payments",
		},
	}

	for _, setting := range settings {
		var count int64
		if err := s.db.Model(&model.AppSetting{}).Where("key = ?", setting.Key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := s.db.Create(&setting).Error; err != nil {
			return err
		}
	}

	log.Println("✅ Seeded app settings")
	return nil
}

// SeedTaxRules creates a default set of tax rules
func (s *Seeder) SeedTaxRules() error {
	var count int64
	if err := s.db.Model(&model.TaxRule{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Tax rules already exist, skipping...")
		return nil
	}

	rules := []model.TaxRule{
		{Name: "US Sales Tax", CountryCode: "US", Percentage: 10, Active: true},
		{Name: "India GST", CountryCode: "IN", Percentage: 18, Active: true},
		{Name: "Germany VAT", CountryCode: "DE", Percentage: 19, Active: true},
		{Name: "UK VAT", CountryCode: "GB", Percentage: 20, Active: true},
	}

	if err := s.db.Create(&rules).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d tax rules\n", len(rules))
	return nil
}

// SeedCatalog creates a demo instructor with a small course catalog
func (s *Seeder) SeedCatalog() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Courses already exist, skipping...")
		return nil
	}

	passwordHash, err := auth.HashPassword("instructor-demo-1")
	if err != nil {
		return err
	}

	instructor := &model.User{
		Email:        "instructor@learnora.dev",
		PasswordHash: passwordHash,
		Name:         "Demo Instructor",
		Role:         model.RoleInstructor,
		Country:      "US",
		Title:        "Staff Engineer & Educator",
	}
	if err := s.db.Create(instructor).Error; err != nil {
		return err
	}

	now := time.Now()
	courses := []model.Course{
		{
			InstructorID: instructor.ID,
			Title:        "Backend Engineering with Go",
			Slug:         "backend-engineering-with-go",
			Description:  "REST services, databases and deployment from scratch",
			Level:        "intermediate",
			Status:       model.CourseStatusPublished,
			ListPrice:    100,
			Sections: []model.Section{
				{
					Title:    "Getting started",
					Position: 1,
					Lessons: []model.Lesson{
						{Title: "Course overview", Type: "video", Duration: 420, Position: 1},
						{Title: "Environment setup", Type: "video", Duration: 900, Position: 2},
					},
				},
				{
					Title:    "HTTP services",
					Position: 2,
					Lessons: []model.Lesson{
						{Title: "Routing and handlers", Type: "video", Duration: 1260, Position: 1},
						{Title: "Middleware", Type: "video", Duration: 1100, Position: 2},
					},
				},
			},
		},
		{
			InstructorID:  instructor.ID,
			Title:         "SQL for Application Developers",
			Slug:          "sql-for-application-developers",
			Description:   "Schema design, transactions and query tuning",
			Level:         "beginner",
			Status:        model.CourseStatusPublished,
			ListPrice:     80,
			DiscountPrice: 50,
			Sections: []model.Section{
				{
					Title:    "Foundations",
					Position: 1,
					Lessons: []model.Lesson{
						{Title: "Tables and types", Type: "video", Duration: 800, Position: 1},
						{Title: "Joins", Type: "video", Duration: 950, Position: 2},
					},
				},
			},
		},
		{
			InstructorID: instructor.ID,
			Title:        "Intro to Programming",
			Slug:         "intro-to-programming",
			Description:  "A free taster course",
			Level:        "beginner",
			Status:       model.CourseStatusPublished,
			IsFree:       true,
			Sections: []model.Section{
				{
					Title:    "Basics",
					Position: 1,
					Lessons: []model.Lesson{
						{Title: "What is a program?", Type: "video", Duration: 600, Position: 1},
					},
				},
			},
		},
	}

	// Lessons carry a denormalized course id for tracking queries
	if err := s.db.Create(&courses).Error; err != nil {
		return err
	}
	for _, course := range courses {
		if err := s.db.Model(&model.Lesson{}).
			Where("section_id IN (SELECT id FROM sections WHERE course_id = ?)", course.ID).
			Update("course_id", course.ID).Error; err != nil {
			return err
		}
	}

	// A seasonal admin promo code for the demo catalog
	quota := 100
	promo := &model.PromoCode{
		Code:          "WELCOME20",
		OwnerID:       1,
		OwnerRole:     model.PromoOwnerAdmin,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 20,
		StartDate:     now.AddDate(0, 0, -1),
		EndDate:       now.AddDate(0, 3, 0),
		Quota:         &quota,
		Active:        true,
	}
	if err := s.db.Create(promo).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d demo courses\n", len(courses))
	return nil
}
