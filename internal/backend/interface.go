package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired storage, the optional event client and a
// cleanup function releasing both.
type BackendResult struct {
	Store store.Store
	// Events is nil when AMQP is not configured or unreachable.
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the configured store and, when configured, the AMQP client.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateMirror returns the sheet mirror, or nil when none is configured.
	CreateMirror(ctx context.Context, config Config) (sheets.LedgerMirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI      string
	MongoDatabase string

	// Optional AMQP events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MongoBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
