package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthModeHeader = "header"
	AuthModeJWT    = "jwt"

	minJWTSecretLength = 32
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Identity
	AuthMode       string
	JWTSecret      string
	TokenExpiry    time.Duration
	DefaultUserID  string
	AllowedOrigins []string

	// Quote provider
	QuoteBaseURL        string
	QuoteTimeout        time.Duration
	QuoteCacheTTL       time.Duration
	QuoteMaxConcurrency int
	QuoteRatePerSecond  float64

	// Exchange rates
	ECBBaseURL string
	ECBTimeout time.Duration

	// Background price refresh; empty disables it.
	PriceRefreshSchedule string

	// Inbound rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads .env (current or parent directory) and the environment into Cfg.
// It terminates the application on invalid configuration.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}
	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	Cfg = cfg
	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, AuthMode=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.AuthMode)
}

// Load reads the configuration from the environment without touching Cfg.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./stockfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		AuthMode:       strings.ToLower(getEnv("AUTH_MODE", AuthModeHeader)),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenExpiry:    getEnvAsDuration("TOKEN_EXPIRY", 24*time.Hour),
		DefaultUserID:  getEnv("DEFAULT_USER_ID", "demo-user"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		QuoteBaseURL:        getEnv("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
		QuoteTimeout:        getEnvAsDuration("QUOTE_TIMEOUT", 10*time.Second),
		QuoteCacheTTL:       getEnvAsDuration("QUOTE_CACHE_TTL", 60*time.Second),
		QuoteMaxConcurrency: getEnvAsInt("QUOTE_MAX_CONCURRENCY", 4),
		QuoteRatePerSecond:  getEnvAsFloat("QUOTE_RATE_PER_SECOND", 4),

		ECBBaseURL: getEnv("ECB_BASE_URL", "https://data-api.ecb.europa.eu/service/data/EXR"),
		ECBTimeout: getEnvAsDuration("ECB_TIMEOUT", 10*time.Second),

		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "@every 15m"),

		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}

	switch cfg.AuthMode {
	case AuthModeHeader:
	case AuthModeJWT:
		if len(cfg.JWTSecret) < minJWTSecretLength {
			return nil, fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q (expected %q or %q)", cfg.AuthMode, AuthModeHeader, AuthModeJWT)
	}
	if strings.TrimSpace(cfg.DefaultUserID) == "" {
		return nil, fmt.Errorf("DEFAULT_USER_ID cannot be empty")
	}
	if cfg.QuoteMaxConcurrency < 1 {
		return nil, fmt.Errorf("QUOTE_MAX_CONCURRENCY must be at least 1, got %d", cfg.QuoteMaxConcurrency)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid number value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string, fallback []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
