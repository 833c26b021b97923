package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string

	RentcastAPIKey    string
	RentcastBaseURL   string
	RentcastRateLimit float64 // requests per second
	RentcastTimeout   time.Duration
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RentcastAPIKey:  getEnv("RENTCAST_API_KEY", ""),
		RentcastBaseURL: getEnv("RENTCAST_BASE_URL", "https://api.rentcast.io/v1"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	rateLimit, err := strconv.ParseFloat(getEnv("RENTCAST_RATE_LIMIT", "2"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, fmt.Errorf("RENTCAST_RATE_LIMIT must be a positive number")
	}
	cfg.RentcastRateLimit = rateLimit

	timeout, err := time.ParseDuration(getEnv("RENTCAST_TIMEOUT", "30s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("RENTCAST_TIMEOUT must be a positive duration")
	}
	cfg.RentcastTimeout = timeout

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
