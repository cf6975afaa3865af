package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (reminder wake channel, optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Notification worker
	CheckInterval time.Duration

	// Push notifications (optional; log-only when unset)
	NtfyURL   string
	NtfyTopic string

	// Receipt scanner (optional)
	ScannerAPIURL string
	ScannerAPIKey string
	ScannerModel  string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tally.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tally"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reminder_added"),

		CheckInterval: getEnvDuration("CHECK_INTERVAL", 15*time.Minute),

		NtfyURL:   getEnv("NTFY_URL", ""),
		NtfyTopic: getEnv("NTFY_TOPIC", "tally"),

		ScannerAPIURL: getEnv("SCANNER_API_URL", ""),
		ScannerAPIKey: getEnv("SCANNER_API_KEY", ""),
		ScannerModel:  getEnv("SCANNER_MODEL", "gpt-4o-mini"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CheckInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid check interval %v: must be at least 1 second", c.CheckInterval))
	} else if c.CheckInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid check interval %v: must be at most 24 hours", c.CheckInterval))
	}

	if c.NtfyURL != "" {
		if parsedURL, err := url.Parse(c.NtfyURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid notification URL '%s': must be http(s)", c.NtfyURL))
		}
		if c.NtfyTopic == "" {
			errs = append(errs, "notification topic cannot be empty when NTFY_URL is provided")
		}
	}

	if c.ScannerAPIURL != "" {
		if parsedURL, err := url.Parse(c.ScannerAPIURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid scanner API URL '%s': must be http(s)", c.ScannerAPIURL))
		}
		if c.ScannerModel == "" {
			errs = append(errs, "scanner model cannot be empty when SCANNER_API_URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
