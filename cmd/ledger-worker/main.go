package main

import (
	"context"
	"os"
	"time"

	"reseller/internal/cli"
	"reseller/internal/config"
	"reseller/internal/services"
	gsheet "reseller/internal/sheets/google"
	"reseller/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting ledger-worker")

	result := cli.InitBackend(context.Background(), logger, cfg, true)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	processor := services.NewMirrorProcessor(result.Store, result.Store, sheetsClient, services.MirrorProcessorConfig{
		Schedule:    cfg.ResyncSchedule,
		Concurrency: cfg.ResyncConcurrency,
	})

	// Catch up on changes published while the worker was down.
	logger.Info("Performing startup resync")
	if err := processor.ResyncAll(ctx); err != nil {
		logger.Error("Startup resync had failures", "error", err)
	}

	runErr := worker.NewMirrorWorker(processor, processor, result.AMQP).Run(ctx)
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", "error", err)
	}
	if runErr != nil {
		logger.Error("Worker stopped with error", "error", runErr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
