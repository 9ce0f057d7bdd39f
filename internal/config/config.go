// Package config loads the environment-driven configuration shared by
// the server, worker and admin binaries.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"despeses/internal/core"
)

// Mirror backend names accepted in MIRROR_BACKEND.
const (
	MirrorNone   = "none"
	MirrorMemory = "memory"
	MirrorGoogle = "google"
)

type Config struct {
	// HTTP server
	Port string

	// Storage
	DBPath   string
	DataRoot string

	// Domain defaults
	DefaultSalary core.Money

	// Sessions and throttling
	SessionTTL      time.Duration
	RateLimitPerMin int

	// AMQP fan-out. An empty URL disables publishing and the worker
	// refuses to start.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror worker
	MirrorBackend            string
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	RolloverInterval         time.Duration
	SweepInterval            time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("DESPESES_PORT", "8080"),
		DBPath:   getEnv("DESPESES_DB_PATH", "./data/despeses.db"),
		DataRoot: getEnv("DESPESES_DATA_ROOT", "./data/datasets"),

		DefaultSalary:   getEnvMoney("DESPESES_DEFAULT_SALARY", core.Money{Cents: 160000}),
		SessionTTL:      getEnvDuration("DESPESES_SESSION_TTL", 12*time.Hour),
		RateLimitPerMin: getEnvInt("DESPESES_RATE_LIMIT", 60),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "despeses.sync"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "despeses.sync.datasets"),

		MirrorBackend:            getEnv("MIRROR_BACKEND", MirrorNone),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		RolloverInterval: getEnvDuration("WORKER_ROLLOVER_INTERVAL", time.Hour),
		SweepInterval:    getEnvDuration("WORKER_SWEEP_INTERVAL", 24*time.Hour),
	}

	return cfg
}

// Validate checks the whole configuration and reports every problem in
// one error.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	} else if err := ensureDir(filepath.Dir(c.DBPath)); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create database directory: %v", err))
	}

	if c.DataRoot == "" {
		problems = append(problems, "data root cannot be empty")
	} else if err := ensureDir(c.DataRoot); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create data root: %v", err))
	}

	if c.SessionTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}

	if c.RateLimitPerMin < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMin))
	} else if c.RateLimitPerMin > 10000 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at most 10000", c.RateLimitPerMin))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.MirrorBackend {
	case MirrorNone, MirrorMemory:
	case MirrorGoogle:
		if c.GoogleSpreadsheetID == "" {
			problems = append(problems, "GOOGLE_SPREADSHEET_ID is required when using the google mirror")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			problems = append(problems, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the google mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid mirror backend '%s': must be one of [none memory google]", c.MirrorBackend))
	}

	if c.RolloverInterval < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid rollover interval %v: must be at least 1 minute", c.RolloverInterval))
	} else if c.RolloverInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid rollover interval %v: must be at most 24 hours", c.RolloverInterval))
	}

	if c.SweepInterval < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid sweep interval %v: must be at least 1 minute", c.SweepInterval))
	} else if c.SweepInterval > 7*24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid sweep interval %v: must be at most 7 days", c.SweepInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
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

func getEnvMoney(key string, defaultValue core.Money) core.Money {
	if value := os.Getenv(key); value != "" {
		if m, err := core.ParseMoney(value); err == nil {
			return m
		}
	}
	return defaultValue
}
