package config

import (
	"os"
	"strconv"
	"time"
)

// Service holds process configuration read from the environment
type Service struct {
	APIPort            string
	Workers            int
	Strict             bool
	ResultTTL          time.Duration
	PlannerAPIKey      string
	RateLimitPerMinute int
	PlanPath           string
}

// LoadFromEnv loads the service configuration from environment variables
func LoadFromEnv() *Service {
	workers, _ := strconv.Atoi(getEnv("CALC_WORKERS", "0"))
	strict, _ := strconv.ParseBool(getEnv("CALC_STRICT", "false"))
	ttl, err := time.ParseDuration(getEnv("RESULT_TTL", "1h"))
	if err != nil {
		ttl = time.Hour
	}
	rate, _ := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "60"))

	return &Service{
		APIPort:            getEnv("API_PORT", "8080"),
		Workers:            workers,
		Strict:             strict,
		ResultTTL:          ttl,
		PlannerAPIKey:      os.Getenv("PLANNER_API_KEY"),
		RateLimitPerMinute: rate,
		PlanPath:           os.Getenv("PLAN_FILE"),
	}
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
