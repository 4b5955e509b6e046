package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Storage
	DBPath      string
	SessionFile string

	// Presentation
	Currency string
	LogLevel string

	// Credentials
	BcryptCost int

	// Gemini
	GeminiAPIKey       string
	GeminiModel        string
	GeminiTimeout      time.Duration
	GeminiRetryBackoff time.Duration
	CategoryCacheSize  int

	// AMQP (optional, budget alerts)
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	AlertDedupTTL time.Duration
}

func Load() *Config {
	cfg := &Config{
		DBPath:      getEnv("FINMAN_DB_PATH", "./data/finance_manager.db"),
		SessionFile: getEnv("FINMAN_SESSION_FILE", "./data/session"),

		Currency: getEnv("FINMAN_CURRENCY", "Ksh"),
		LogLevel: getEnv("LOG_LEVEL", "warn"),

		BcryptCost: getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTimeout:      getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		GeminiRetryBackoff: getEnvDuration("GEMINI_RETRY_BACKOFF", 2*time.Second),
		CategoryCacheSize:  getEnvInt("CATEGORY_CACHE_SIZE", 256),

		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "finman"),
		AMQPQueue:     getEnv("AMQP_QUEUE", "budget_alerts"),
		AlertDedupTTL: getEnvDuration("ALERT_DEDUP_TTL", time.Hour),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}

	if c.SessionFile == "" {
		errors = append(errors, "session file path cannot be empty")
	}

	if strings.TrimSpace(c.Currency) == "" {
		errors = append(errors, "currency label cannot be empty")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	if c.GeminiAPIKey != "" && c.GeminiModel == "" {
		errors = append(errors, "Gemini model name is required when GEMINI_API_KEY is set")
	}
	if c.GeminiTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid Gemini timeout %v: must be at least 1 second", c.GeminiTimeout))
	} else if c.GeminiTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid Gemini timeout %v: must be at most 5 minutes", c.GeminiTimeout))
	}
	if c.GeminiRetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("invalid Gemini retry backoff %v: must not be negative", c.GeminiRetryBackoff))
	}
	if c.CategoryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid category cache size %d: must be at least 1", c.CategoryCacheSize))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AlertDedupTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid alert dedup TTL %v: must not be negative", c.AlertDedupTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
