// Package cli provides common CLI initialization utilities.
// It holds the start-up steps shared by cmd/fintrack, cmd/fintrack-worker
// and cmd/recurring-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

// SetupLogger installs the process logger for component, honouring the
// configured level and format.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	return log.Setup(cfg.LogLevel, cfg.LogFormat, component)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure. It runs before the
// configured logger exists, so failures go to the default logger.
func LoadAndValidateConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ShutdownTimeout bounds how long a process waits for in-flight work.
const ShutdownTimeout = 30 * time.Second
