package main

import (
	"context"
	"errors"
	"os"

	"lifedash/internal/amqp"
	"lifedash/internal/backend"
	"lifedash/internal/cli"
	"lifedash/internal/config"
	"lifedash/internal/log"
	"lifedash/internal/sheets"
	gsheet "lifedash/internal/sheets/google"
	mem "lifedash/internal/sheets/memory"
	"lifedash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger, logCloser := cli.SetupLogger(log.ComponentWorker, cfg)
	defer logCloser.Close()
	cli.LoadAndValidateConfig(logger, cfg, cfg.ValidateWorker)

	logger.Info("Starting lifedash-worker")

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load time zone", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	var writer sheets.FinanceWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = mem.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set; finance rows are kept in memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirror := worker.NewFinanceMirror(result.Store, writer, loc)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Consuming entity events", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeEntityEvents(ctx, mirror.HandleEntityEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		_ = amqpClient.Close()
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
