package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/learnora/academy-api/config"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GORM DB access
	GetDB() interface{} // Returns *gorm.DB for GORMStore, *sql.DB for ReportingStore
}

// ReportingStore is a raw database/sql connection used for the aggregate
// reporting queries (instructor earnings, revenue summaries) that read
// across several financial tables at once.
type ReportingStore struct {
	db *sql.DB
}

// StartReporting opens a lib/pq connection for the reporting queries
func StartReporting() (*ReportingStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	connectStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv.DB_HOST, getEnv.DB_PORT, getEnv.DB_USER_NAME, getEnv.DB_PASSWORD, getEnv.DB_NAME, getEnv.DB_SSL_MODE,
	)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		fmt.Println("Unable to Start PostgresSQL Database.")
		return nil, err
	}

	log.Println("Successfully connected reporting store.")
	return &ReportingStore{db: db}, nil
}

// Init is a no-op: tables are owned by the GORM store's AutoMigrate
func (s *ReportingStore) Init() error {
	return nil
}

func (s *ReportingStore) Close() error {
	log.Println("Closing reporting store.")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *ReportingStore) HealthCheck() error {
	return s.db.Ping()
}

// GetDB returns the underlying *sql.DB
func (s *ReportingStore) GetDB() interface{} {
	return s.db
}
