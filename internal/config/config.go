// Package config loads process configuration from the environment (and an
// optional .env file), the way the teacher's server does, generalized to
// the portfolio engine's own settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/afadil/wealthfolio-sub004/internal/marketdata"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port    int
	DevMode bool

	// Database. DatabasePath is the legacy/simple override; WFDBPath and
	// DatabaseURL are the §6-named environment variables, checked in that
	// order, with DatabasePath last as the final fallback.
	DatabasePath string
	WFDBPath     string
	DatabaseURL  string

	// WFSecretFile is read from WF_SECRET_FILE. Nothing reads the file it
	// names; stored provider secrets are kept as given.
	WFSecretFile string

	// BaseCurrency is the default reporting currency new accounts and
	// valuations fall back to when no account-specific override applies.
	BaseCurrency string

	// ConnectAPIURL overrides the broker-sync cloud endpoint. The broker
	// sync client itself is out of scope for this engine; the setting is
	// still read so operators can see it was acknowledged, not silently
	// dropped.
	ConnectAPIURL string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Market-data provider tunables. Circuit-breaker values default to
	// SPEC_FULL.md §4.C's compile-time defaults and are overridable
	// per-process, not per-provider. ProviderRateLimit is read from the
	// environment but not passed to the registry: each provider's limiter
	// uses that provider's own RateLimit().
	ProviderRateLimit          marketdata.RateLimit
	CircuitBreakerFailureThreshold int
	CircuitBreakerRecoveryTimeout  time.Duration
	CircuitBreakerHalfOpenSuccess  int

	AlphaVantageAPIKey string
}

// Load reads configuration from environment variables, loading a .env file
// first if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnvAsInt("PORT", 8080),
		DevMode: getEnvAsBool("DEV_MODE", false),

		DatabasePath: getEnv("DATABASE_PATH", "./data/portfolio.db"),
		WFDBPath:     getEnv("WF_DB_PATH", ""),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		WFSecretFile: getEnv("WF_SECRET_FILE", ""),

		BaseCurrency: getEnv("BASE_CURRENCY", "USD"),

		ConnectAPIURL: getEnv("CONNECT_API_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("WF_LOG_FORMAT", "text"),

		ProviderRateLimit: marketdata.RateLimit{
			RequestsPerMinute: getEnvAsInt("PROVIDER_REQUESTS_PER_MINUTE", 60),
			MaxConcurrency:    getEnvAsInt("PROVIDER_MAX_CONCURRENCY", 4),
			MinDelayMillis:    getEnvAsInt("PROVIDER_MIN_DELAY_MS", 200),
		},
		CircuitBreakerFailureThreshold: getEnvAsInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
		CircuitBreakerRecoveryTimeout:  time.Duration(getEnvAsInt("CIRCUIT_BREAKER_RECOVERY_TIMEOUT_SECONDS", 60)) * time.Second,
		CircuitBreakerHalfOpenSuccess:  getEnvAsInt("CIRCUIT_BREAKER_HALF_OPEN_SUCCESS_THRESHOLD", 2),

		AlphaVantageAPIKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvedDBPath picks the effective sqlite path: WFDBPath, then the
// connection-string form of DatabaseURL, then the legacy DatabasePath.
func (c *Config) ResolvedDBPath() string {
	if c.WFDBPath != "" {
		return c.WFDBPath
	}
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DatabasePath
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.ResolvedDBPath() == "" {
		return fmt.Errorf("one of WF_DB_PATH, DATABASE_URL, or DATABASE_PATH is required")
	}
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("BASE_CURRENCY must be a 3-letter ISO-4217 code, got %q", c.BaseCurrency)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("WF_LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
