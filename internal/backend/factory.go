package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/mongo"
	"fintrack/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional: a broker outage degrades to inline recalculation and
	// no mirroring instead of refusing to start.
	var events *amqp.Client
	if config.AMQPURL != "" {
		events, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			events = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized backend", "type", config.Type.String(), "amqp_enabled", events != nil)

	return &BackendResult{
		Store:  s,
		Events: events,
		Cleanup: func() error {
			var errs []error
			if events != nil {
				if err := events.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := s.Close(); err != nil {
				errs = append(errs, fmt.Errorf("store: %w", err))
			}
			if len(errs) > 0 {
				return fmt.Errorf("close backend: %v", errs)
			}
			return nil
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		s, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return s, nil
	case MongoBackend:
		s, err := mongo.Open(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
		}
		f.logger.Info("Opened MongoDB store", "database", config.MongoDatabase)
		return s, nil
	case MemoryBackend:
		f.logger.Info("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.LedgerMirror, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("No spreadsheet configured, ledger mirror disabled")
		return nil, nil
	}
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets mirror: %w", err)
	}
	f.logger.Info("Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
	return cli, nil
}
