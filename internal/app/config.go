package app

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/booking"
	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
	"github.com/aussiebroadwan/dinein/pkg/httpx"
)

type Config struct {
	APIURL        string // Required: base URL of the reservation backend
	DatabaseFile  string // Optional: path to the device store (default: ./dinein.db)
	MasterKeyPath string // Optional: path to the device key file (default: ./dinein.key)
	MasterKey     string // Optional: device key given inline, wins over MasterKeyPath

	PublicTimeout time.Duration         // Optional: timeout for unauthenticated calls (default: 10s)
	AuthTimeout   time.Duration         // Optional: timeout for authenticated calls (default: 30s)
	BookingLead   time.Duration         // Optional: how far ahead a same-day slot must start (default: 30m)
	DefaultGuests int                   // Optional: party size when none is given (default: 2)
	RateLimit     httpx.RateLimitConfig // Client-side request budget, from RATELIMIT_API_*
	Env           string                // Environment (dev, staging, prod) (default: prod)
	LogLevel      string                // Log level (debug, info, warn, error) (default: warn)
	LogFormat     string                // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	return Config{
		APIURL:        getEnvOrDefault("DINEIN_API_URL", "http://localhost:8000"),
		DatabaseFile:  getEnvOrDefault("DINEIN_DATABASE_FILE", "dinein.db"),
		MasterKeyPath: getEnvOrDefault("DINEIN_MASTER_KEY_PATH", "dinein.key"),
		MasterKey:     os.Getenv("DINEIN_MASTER_KEY"),

		PublicTimeout: getEnvDurationOrDefault("DINEIN_PUBLIC_TIMEOUT", dineinsdk.DefaultPublicTimeout),
		AuthTimeout:   getEnvDurationOrDefault("DINEIN_AUTH_TIMEOUT", dineinsdk.DefaultAuthTimeout),
		BookingLead:   getEnvDurationOrDefault("DINEIN_BOOKING_LEAD_TIME", booking.DefaultLeadTime),
		DefaultGuests: getEnvIntOrDefault("DINEIN_DEFAULT_GUESTS", 2),
		RateLimit:     httpx.ParseRateLimitFromEnv("API", httpx.APILimit),

		// A CLI stays quiet unless asked otherwise.
		Env:       getEnvOrDefault("ENV", "prod"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "10s", "30m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
