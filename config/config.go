package config

import (
	"os"
	"strconv"
	"strings"
	"time"

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
	JWT_SECRET         string
	JWT_ISSUER         string
	JWT_EXPIRY         time.Duration
	JWT_REFRESH_EXPIRY time.Duration
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       string
	// HTTP
	ALLOWED_ORIGINS string
	// Background jobs
	CRON_ENABLED bool
	// Cover image storage (any S3-compatible bucket)
	STORAGE_ACCESS_KEY string
	STORAGE_SECRET_KEY string
	STORAGE_BUCKET     string
	STORAGE_REGION     string
	STORAGE_ENDPOINT   string
	STORAGE_CDN_URL    string
	// Seed
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
}

func getOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getOr("DB_HOST", "localhost"),
		DB_PORT:      getOr("DB_PORT", "5432"),
		DB_SSL_MODE:  getOr("DB_SSL_MODE", "disable"),
		PORT:         port,
		// JWT
		JWT_SECRET:         os.Getenv("JWT_SECRET"),
		JWT_ISSUER:         getOr("JWT_ISSUER", "vivolearn"),
		JWT_EXPIRY:         durationOr("JWT_EXPIRY", 15*time.Minute),
		JWT_REFRESH_EXPIRY: durationOr("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       os.Getenv("REDIS_DB"),
		// HTTP
		ALLOWED_ORIGINS: getOr("ALLOWED_ORIGINS", "http://localhost:3000"),
		// Cron defaults to enabled
		CRON_ENABLED: !strings.EqualFold(os.Getenv("CRON_ENABLED"), "false"),
		// Storage
		STORAGE_ACCESS_KEY: os.Getenv("STORAGE_ACCESS_KEY"),
		STORAGE_SECRET_KEY: os.Getenv("STORAGE_SECRET_KEY"),
		STORAGE_BUCKET:     os.Getenv("STORAGE_BUCKET"),
		STORAGE_REGION:     getOr("STORAGE_REGION", "us-east-1"),
		STORAGE_ENDPOINT:   os.Getenv("STORAGE_ENDPOINT"),
		STORAGE_CDN_URL:    os.Getenv("STORAGE_CDN_URL"),
		// Seed
		ADMIN_EMAIL:    os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
	}

	return envVariables, nil
}
