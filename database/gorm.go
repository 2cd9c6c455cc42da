package database

import (
	"fmt"
	"log"
	"time"

	"github.com/learnora/academy-api/config"
	"github.com/learnora/academy-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GORMStore struct {
	db *gorm.DB
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM() (*GORMStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		getEnv.DB_HOST,
		getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD,
		getEnv.DB_NAME,
		getEnv.DB_PORT,
		getEnv.DB_SSL_MODE,
	)

	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if getEnv.GO_ENV == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	// Open GORM connection
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: false,
		PrepareStmt:            true, // Prepare statements for better performance
		TranslateError:         true, // Surface gorm.ErrDuplicatedKey on unique violations
	})
	if err != nil {
		log.Println("Unable to connect to PostgreSQL with GORM:", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to PostgreSQL Database with GORM.")

	return &GORMStore{db: db}, nil
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	log.Println("Running GORM AutoMigrate for all models...")

	err := s.db.AutoMigrate(
		// User-related models
		&model.User{},
		&model.BillingDetail{},

		// Catalog & curriculum models
		&model.Course{},
		&model.Section{},
		&model.Lesson{},
		&model.CartItem{},

		// Checkout & settlement models
		&model.PromoCode{},
		&model.Order{},
		&model.OrderCourse{},
		&model.Transaction{},
		&model.Commission{},
		&model.TaxRule{},
		&model.Refund{},

		// Wallet ledger models
		&model.WalletHistory{},
		&model.WithdrawalRequest{},
		&model.PayoutAccount{},

		// Enrollment tracking
		&model.LessonTrack{},

		// Application settings
		&model.AppSetting{},

		// Token blacklist
		&model.JWTTokenBlacklist{},
		&model.PasswordResetToken{},

		// Audit & logging models
		&model.CronJobLog{},
		&model.AdminAuditLog{},

		// User notification models
		&model.UserNotification{},
	)

	if err != nil {
		log.Println("Error running AutoMigrate:", err)
		return err
	}

	log.Println("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Println("Closing GORM PostgreSQL connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services/handlers
func (s *GORMStore) GetDB() interface{} {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
