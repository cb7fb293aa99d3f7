// Command fintrack serves the ledger JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/insights"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

const (
	insightCacheSize = 500
	janitorInterval  = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
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

	checks := map[string]apphttp.ReadinessCheck{
		"store": func(ctx context.Context) error {
			_, err := res.Store.ListAccounts(ctx, "readyz")
			return err
		},
	}
	opts := []ledger.Option{ledger.WithLogger(logger.Logger)}
	if res.Events != nil {
		opts = append(opts, ledger.WithEvents(res.Events))
		checks["amqp"] = res.Events.Healthy
	}
	l := ledger.New(res.Store, opts...)

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	insightCache := cache.NewLRU[*core.Insight](insightCacheSize, cfg.InsightCacheTTL)
	janitor := cache.NewJanitor(logger.Logger)
	janitor.Register(insightCache)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:   l,
		Insights: insights.NewService(res.Store, provider, insightCache, insights.WithLogger(logger.Logger)),
		Logger:   logger,
		Checks:   checks,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		janitor.Run(gctx, janitorInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend,
			"events_enabled", res.Events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newProvider uses Gemini when an API key is configured and the offline
// summary otherwise.
func newProvider(ctx context.Context, cfg *config.Config, logger *log.Logger) (insights.Provider, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Info("GEMINI_API_KEY not set, insights use the built-in summary")
		return insights.StaticProvider{}, nil
	}
	p, err := insights.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	logger.Info("Insights provider configured", "model", cfg.GeminiModel)
	return p, nil
}
