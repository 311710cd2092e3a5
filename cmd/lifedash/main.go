package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"lifedash/internal/ai"
	"lifedash/internal/ai/gemini"
	"lifedash/internal/amqp"
	"lifedash/internal/auth"
	"lifedash/internal/backend"
	"lifedash/internal/cache"
	"lifedash/internal/cli"
	"lifedash/internal/config"
	apphttp "lifedash/internal/http"
	"lifedash/internal/log"
	"lifedash/internal/services"
	"lifedash/internal/vault"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger, logCloser := cli.SetupLogger(log.ComponentApp, cfg)
	cli.LoadAndValidateConfig(logger, cfg)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load time zone", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	store := result.Store

	var entityOpts []services.EntityOption
	var gateOpts []auth.Option

	if cfg.VaultPassphrase != "" {
		v, err := vault.Load(ctx, store, cfg.VaultPassphrase)
		if err != nil {
			logger.Error("Failed to open credential vault", log.FieldError, err)
			os.Exit(1)
		}
		entityOpts = append(entityOpts, services.WithSealer(v))
		logger.Info("Credential vault enabled")
	} else {
		logger.Warn("VAULT_PASSPHRASE not set; credentials are stored in plaintext")
	}

	var publisher amqp.Publisher = amqp.NopPublisher{}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("Entity events enabled", "exchange", cfg.AMQPExchange)
	}
	entityOpts = append(entityOpts, services.WithEventPublisher(publisher))
	gateOpts = append(gateOpts, auth.WithPublisher(publisher))

	cacheManager := cache.NewManager()
	var gen ai.Generator
	var aiCache *cache.LRUCache[string]
	var aiOpts []ai.Option
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			logger.Error("Failed to initialize Gemini client", log.FieldError, err)
			os.Exit(1)
		}
		gen = client
		if cfg.AICacheSize > 0 {
			aiCache = cache.NewLRUCache[string](cfg.AICacheSize, cfg.AICacheTTL)
			cacheManager.Register(aiCache)
			aiOpts = append(aiOpts, ai.WithCache(aiCache))
		}
		logger.Info("AI relay enabled", "model", cfg.GeminiModel, "cache_size", cfg.AICacheSize)
	} else {
		logger.Warn("GEMINI_API_KEY not set; AI endpoints answer with fallback text")
	}
	cacheManager.StartCleanup(ctx, 5*time.Minute)

	svc := apphttp.Services{
		Gate:     auth.NewGate(store, cfg.JWTSecret, cfg.JWTTTL, gateOpts...),
		Entities: services.NewEntityService(store, entityOpts...),
		Routine:  services.NewRoutineService(store, publisher),
		Transfer: services.NewTransferService(store, loc, entityOpts...),
		AI:       ai.NewService(gen, loc, aiOpts...),
	}
	opts := apphttp.Options{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		LoginRateLimit: cfg.LoginRateLimit,
		APIRateLimit:   cfg.APIRateLimit,
		Location:       loc,
		Logger:         logger,
	}
	if aiCache != nil {
		opts.AICache = aiCache
	}
	srv := apphttp.NewServer(":"+cfg.Port, store, svc, opts)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting lifedash server", "port", cfg.Port, "backend", cfg.DataBackend, "tz", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
	_ = logCloser.Close()
}
