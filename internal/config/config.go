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

	toml "github.com/pelletier/go-toml/v2"
)

// Backends accepted by DATA_BACKEND.
var validBackends = []string{"memory", "sqlite", "mongo"}

type Config struct {
	// HTTP Server
	Port string `toml:"port"`

	// Storage
	DataBackend   string `toml:"data_backend"`
	SQLiteDBPath  string `toml:"sqlite_db_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`

	// AMQP, optional for the API
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets mirror, optional
	GoogleSpreadsheetID string `toml:"google_spreadsheet_id"`
	GoogleSheetName     string `toml:"google_sheet_name"`

	// Insights
	GeminiAPIKey    string        `toml:"gemini_api_key"`
	GeminiModel     string        `toml:"gemini_model"`
	InsightCacheTTL time.Duration `toml:"-"`

	// Workers
	RecurringInterval time.Duration `toml:"-"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// durations are written as Go duration strings in the TOML file.
type fileConfig struct {
	Config
	InsightCacheTTL   string `toml:"insight_cache_ttl"`
	RecurringInterval string `toml:"recurring_processor_interval"`
}

func defaults() *Config {
	return &Config{
		Port:              "8081",
		DataBackend:       "memory",
		SQLiteDBPath:      "./data/fintrack.db",
		MongoURI:          "mongodb://localhost:27017/?replicaSet=rs0",
		MongoDatabase:     "fintrack",
		AMQPExchange:      "fintrack",
		AMQPQueue:         "ledger_events",
		GoogleSheetName:   "Ledger",
		GeminiModel:       "gemini-2.5-flash",
		InsightCacheTTL:   time.Hour,
		RecurringInterval: time.Hour,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// FINTRACK_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("FINTRACK_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Config: *c}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	*c = fc.Config
	if fc.InsightCacheTTL != "" {
		if c.InsightCacheTTL, err = time.ParseDuration(fc.InsightCacheTTL); err != nil {
			return fmt.Errorf("parse insight_cache_ttl: %w", err)
		}
	}
	if fc.RecurringInterval != "" {
		if c.RecurringInterval, err = time.ParseDuration(fc.RecurringInterval); err != nil {
			return fmt.Errorf("parse recurring_processor_interval: %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)

	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.InsightCacheTTL = getEnvDuration("INSIGHT_CACHE_TTL", c.InsightCacheTTL)
	c.RecurringInterval = getEnvDuration("RECURRING_PROCESSOR_INTERVAL", c.RecurringInterval)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// EventsEnabled reports whether ledger events go through AMQP.
func (c *Config) EventsEnabled() bool { return c.AMQPURL != "" }

// MirrorEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) MirrorEnabled() bool { return c.GoogleSpreadsheetID != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "mongo":
		if u, err := url.Parse(c.MongoURI); err != nil || c.MongoURI == "" {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s'", c.MongoURI))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
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
	}

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	if c.RecurringInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 second", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}
	if c.InsightCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insight cache TTL %v: must not be negative", c.InsightCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
