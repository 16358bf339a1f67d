package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"goaltrack/internal/core"
	"goaltrack/internal/ledger"
)

// Ledger backends selectable with LEDGER_BACKEND.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendCSV, BackendSQLite, BackendMemory, BackendSheets}

type Config struct {
	// HTTP server
	Port               string
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string

	// Ledger storage
	LedgerBackend string
	LedgerCSVPath string
	SQLiteDBPath  string

	// Savings goal
	GoalTitle    string
	GoalAmount   string
	GoalDeadline string

	// Metrics sources
	MetricsDataDir   string
	MetricsCacheSize int
	MetricsCacheTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		LedgerBackend: getEnv("LEDGER_BACKEND", BackendCSV),
		LedgerCSVPath: getEnv("LEDGER_CSV_PATH", "plans.csv"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/goaltrack.db"),

		GoalTitle:    getEnv("GOAL_TITLE", "Накопления"),
		GoalAmount:   getEnv("GOAL_AMOUNT", "426000"),
		GoalDeadline: getEnv("GOAL_DEADLINE", "2025-11-01"),

		MetricsDataDir:   getEnv("METRICS_DATA_DIR", "./data/metrics"),
		MetricsCacheSize: getEnvInt("METRICS_CACHE_SIZE", 16),
		MetricsCacheTTL:  getEnvDuration("METRICS_CACHE_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "goaltrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_sync"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Plans"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
	}
}

// Goal parses the configured savings goal. Validate reports the same
// problems with more context.
func (c *Config) Goal() (ledger.Goal, error) {
	amount, err := core.ParseAmount(c.GoalAmount)
	if err != nil {
		return ledger.Goal{}, fmt.Errorf("goal amount %q: %w", c.GoalAmount, err)
	}
	deadline, err := core.ParseMonth(c.GoalDeadline)
	if err != nil {
		return ledger.Goal{}, fmt.Errorf("goal deadline %q: %w", c.GoalDeadline, err)
	}
	return ledger.Goal{Title: c.GoalTitle, Amount: amount, Deadline: deadline}, nil
}

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.LedgerBackend) {
		problems = append(problems, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}
	switch c.LedgerBackend {
	case BackendCSV:
		if strings.TrimSpace(c.LedgerCSVPath) == "" {
			problems = append(problems, "ledger CSV path cannot be empty when using csv backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			problems = append(problems, "Google Spreadsheet ID is required when using sheets backend")
		}
	}

	if amount, err := core.ParseAmount(c.GoalAmount); err != nil {
		problems = append(problems, fmt.Sprintf("invalid goal amount '%s': %v", c.GoalAmount, err))
	} else if amount.LessThanOrEqual(decimal.Zero) {
		problems = append(problems, fmt.Sprintf("invalid goal amount '%s': must be positive", c.GoalAmount))
	}
	if _, err := core.ParseMonth(c.GoalDeadline); err != nil {
		problems = append(problems, fmt.Sprintf("invalid goal deadline '%s': %v", c.GoalDeadline, err))
	}

	if c.MetricsCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid metrics cache size %d: must be at least 1", c.MetricsCacheSize))
	}
	if c.MetricsCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid metrics cache TTL %v: must not be negative", c.MetricsCacheTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
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
