// Package cli holds the start-up steps shared by the lifedash binaries.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lifedash/internal/config"
	"lifedash/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the LOG_* settings and makes it
// the slog default. Invalid settings fall back to text at info level; config
// validation reports them afterwards.
func SetupLogger(component string, cfg *config.Config) (*log.Logger, io.Closer) {
	logger, closer, err := log.Setup(component, log.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		logger, closer, _ = log.Setup(component, log.Options{})
		logger.Warn("Invalid logging settings, using defaults", log.FieldError, err)
	}
	log.SetDefault(logger)
	return logger, closer
}

// LoadAndValidateConfig loads the environment configuration and runs every
// check. It exits the process when one fails.
func LoadAndValidateConfig(logger *log.Logger, cfg *config.Config, extra ...func() error) *config.Config {
	checks := append([]func() error{cfg.Validate}, extra...)
	for _, check := range checks {
		if err := check(); err != nil {
			logger.Error("Configuration validation failed", log.FieldError, err)
			os.Exit(1)
		}
	}
	return cfg
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM and
// runs cleanup with timeout as its deadline. done closes once cleanup has
// returned or the deadline passed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
