// Command recurring-worker turns due recurring templates into ledger
// transactions on a fixed interval.
package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentRecurring)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting recurring-worker")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Recurring worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	// Generated transactions go through the normal write path, so they reach
	// the sheet mirror like any other write when events are enabled.
	opts := []ledger.Option{ledger.WithLogger(logger.Logger)}
	if res.Events != nil {
		opts = append(opts, ledger.WithEvents(res.Events))
	} else {
		logger.Info("AMQP disabled - generated transactions will not be mirrored")
	}
	l := ledger.New(res.Store, opts...)

	processor := services.NewRecurringProcessor(res.Store, l)
	logger.Info("Recurring processor configured", "interval", cfg.RecurringInterval.String(), "backend", cfg.DataBackend)

	if err := processor.Run(ctx, cfg.RecurringInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
