package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"flujo/internal/core"
	"flujo/internal/flow"
	applog "flujo/internal/log"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	DataDir     string

	// Database
	SQLiteDBPath string

	// AMQP (import queue, optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AMQPPrefetch int

	// Google Sheets export (optional)
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	// ExportViews are refreshed in the spreadsheet after each queued import
	ExportViews []string

	// Flow engine
	AmountField         string
	RangeStart          string
	RangeEnd            string
	TransferCategoryID  string
	ExcludedCategoryIDs []string
	ForecastSeed        int64
	// MaxBuckets bounds the columns of one flow view
	MaxBuckets int

	// Cache
	CacheSize int
	CacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/flujo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "flujo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "flujo_imports"),
		AMQPPrefetch: getEnvInt("AMQP_PREFETCH", 1),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Flujo"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		ExportViews:           getEnvList("EXPORT_VIEWS"),

		AmountField:         getEnv("AMOUNT_FIELD", string(core.Home)),
		RangeStart:          getEnv("RANGE_START", ""),
		RangeEnd:            getEnv("RANGE_END", ""),
		TransferCategoryID:  getEnv("TRANSFER_CATEGORY_ID", core.TransferCategoryID),
		ExcludedCategoryIDs: getEnvList("EXCLUDED_CATEGORY_IDS"),
		ForecastSeed:        getEnvInt64("FORECAST_SEED", 0),
		MaxBuckets:          getEnvInt("MAX_BUCKETS", 3660),

		CacheSize: getEnvInt("CACHE_SIZE", 128),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// The memory backend seeds itself from DATA_DIR when it exists
	if c.DataBackend == "memory" && c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("data dir '%s' is not a directory", c.DataDir))
		}
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
		if c.AMQPPrefetch < 1 || c.AMQPPrefetch > 1000 {
			errors = append(errors, fmt.Sprintf("invalid AMQP prefetch %d: must be between 1 and 1000", c.AMQPPrefetch))
		}
	}

	// Validate Google Sheets export if configured
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	for _, v := range c.ExportViews {
		if _, err := flow.ParseView(v); err != nil {
			errors = append(errors, fmt.Sprintf("invalid export view '%s': must be one of %v", v, flow.Views))
		}
	}

	// Validate flow engine settings
	if _, err := core.ParseAmountField(c.AmountField); err != nil {
		errors = append(errors, fmt.Sprintf("invalid amount field '%s': must be 'home' or 'foreign'", c.AmountField))
	}
	var start, end time.Time
	if c.RangeStart != "" {
		t, err := core.ParseDate(c.RangeStart)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid range start '%s': must be YYYY-MM-DD", c.RangeStart))
		}
		start = t
	}
	if c.RangeEnd != "" {
		t, err := core.ParseDate(c.RangeEnd)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid range end '%s': must be YYYY-MM-DD", c.RangeEnd))
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errors = append(errors, fmt.Sprintf("invalid range: end %s is before start %s", c.RangeEnd, c.RangeStart))
	}
	if c.TransferCategoryID != core.TransferCategoryID {
		errors = append(errors, fmt.Sprintf("invalid transfer category id '%s': must be '%s'", c.TransferCategoryID, core.TransferCategoryID))
	}

	if c.MaxBuckets < 1 || c.MaxBuckets > 100000 {
		errors = append(errors, fmt.Sprintf("invalid max buckets %d: must be between 1 and 100000", c.MaxBuckets))
	}

	// Validate cache configuration
	if c.CacheSize < 1 || c.CacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be between 1 and 100000", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	// Validate logging
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Amount returns the parsed amount field, defaulting to home currency.
func (c *Config) Amount() core.AmountField {
	f, err := core.ParseAmountField(c.AmountField)
	if err != nil {
		return core.Home
	}
	return f
}

// Views returns the parsed export views, defaulting to the monthly view.
func (c *Config) Views() []flow.ViewKind {
	var out []flow.ViewKind
	for _, v := range c.ExportViews {
		if kind, err := flow.ParseView(v); err == nil {
			out = append(out, kind)
		}
	}
	if len(out) == 0 {
		return []flow.ViewKind{flow.ViewMonthly}
	}
	return out
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
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

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
