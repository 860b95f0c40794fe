package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"restobook/internal/amqp"
	"restobook/internal/backend"
	"restobook/internal/cache"
	"restobook/internal/cli"
	"restobook/internal/config"
	apphttp "restobook/internal/http"
	"restobook/internal/middleware/ratelimit"
	"restobook/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg.LogLevel)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	// The interface must stay nil when AMQP is off, not hold a nil *amqp.Client.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		if !backendCfg.Type.Shared() {
			logger.Warn("The sheets worker cannot read records from this backend; events will be dropped", "backend", backendCfg.Type)
		}
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without the sheets mirror", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	records := services.NewRecordService(result.Store, publisher)
	sales := services.NewSalesService(result.Store)

	srv, err := apphttp.NewServer(":"+cfg.Port, records, sales, result.Store, apphttp.Options{
		Logger:         logger,
		Results:        cache.NewResults(cfg.QueryCacheSize, cfg.QueryCacheTTL),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		RateLimit:      ratelimit.DefaultConfig(),
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting restobook server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
