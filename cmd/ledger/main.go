package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"reseller/internal/cache"
	"reseller/internal/cli"
	"reseller/internal/config"
	apphttp "reseller/internal/http"
	"reseller/internal/middleware/auth"
	"reseller/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	result := cli.InitBackend(context.Background(), logger, cfg, false)

	registry := services.NewRegistry(result.Store, auth.ContextSession{}, result.Publisher(), services.RegistryConfig{
		MaxLedgers: cfg.LedgerCacheSize,
		TTL:        cfg.LedgerCacheTTL,
	})
	caches := cache.NewManager()
	caches.Register(registry.Cache())
	caches.StartCleanup(5 * time.Minute)

	opts := apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ledgers:            registry,
		Records:            result.Store,
		Auth:               auth.New(cfg.JWTSecret, cfg.JWTIssuer),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MetricsEnabled:     cfg.MetricsEnabled,
		Logger:             logger,
	}
	if pinger, ok := result.Store.(apphttp.Pinger); ok {
		opts.Ready = pinger
	}
	srv := apphttp.NewServer(opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting ledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", result.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
