package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       string
	// Spaces (S3-compatible) object storage for invoices & receipts
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string
	// Payment gateways
	STRIPE_SECRET_KEY        string
	STRIPE_WEBHOOK_SECRET    string
	RAZORPAY_KEY_ID          string
	RAZORPAY_KEY_SECRET      string
	RAZORPAY_WEBHOOK_SECRET  string
	FLUTTERWAVE_SECRET_KEY   string
	FLUTTERWAVE_SECRET_HASH  string
	PAYMENT_RETURN_URL       string
	PAYMENT_CANCEL_URL       string
	// Secret for encrypting instructor bank details at rest
	PAYOUT_ENCRYPTION_SECRET string
	// IP geolocation (best-effort country resolution for tax)
	GEOIP_ENDPOINT string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       os.Getenv("REDIS_DB"),
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),
		// Payment gateways
		STRIPE_SECRET_KEY:        os.Getenv("STRIPE_SECRET_KEY"),
		STRIPE_WEBHOOK_SECRET:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
		RAZORPAY_KEY_ID:          os.Getenv("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET:      os.Getenv("RAZORPAY_KEY_SECRET"),
		RAZORPAY_WEBHOOK_SECRET:  os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		FLUTTERWAVE_SECRET_KEY:   os.Getenv("FLUTTERWAVE_SECRET_KEY"),
		FLUTTERWAVE_SECRET_HASH:  os.Getenv("FLUTTERWAVE_SECRET_HASH"),
		PAYMENT_RETURN_URL:       os.Getenv("PAYMENT_RETURN_URL"),
		PAYMENT_CANCEL_URL:       os.Getenv("PAYMENT_CANCEL_URL"),
		PAYOUT_ENCRYPTION_SECRET: os.Getenv("PAYOUT_ENCRYPTION_SECRET"),
		// Geolocation
		GEOIP_ENDPOINT: os.Getenv("GEOIP_ENDPOINT"),
	}

	return envVariables, nil
}
