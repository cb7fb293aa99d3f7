// Command fintrack-worker consumes ledger events: it runs queued balance
// recalculations and keeps the Google Sheets mirror in step with the ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting fintrack-worker")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if !cfg.EventsEnabled() {
		return errors.New("AMQP_URL is required for the worker")
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger.Logger)
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()
	if res.Events == nil {
		return errors.New("AMQP broker unreachable")
	}

	mirror, err := factory.CreateMirror(ctx, bcfg)
	if err != nil {
		return err
	}

	// The worker writes balances only through recalculation and never
	// republishes, so its ledger has no event publisher.
	l := ledger.New(res.Store, ledger.WithLogger(logger.Logger))
	w := worker.NewEventWorker(l, mirror)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, "mirror_enabled", mirror != nil)
		err := res.Events.Consume(gctx, w.Handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("consume: %w", err)
	})
	return g.Wait()
}
