package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"snstotal/internal/amqp"
	"snstotal/internal/cli"
	apphttp "snstotal/internal/http"
	applog "snstotal/internal/log"
	"snstotal/internal/middleware/ratelimit"
	"snstotal/internal/pipeline"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	base, err := cli.ParseBaseURL(cfg)
	if err != nil {
		logger.Error("Invalid base URL", applog.FieldError, err)
		os.Exit(1)
	}

	var sink pipeline.Sink
	var publisher *amqp.Client
	if cfg.AMQPEnabled() {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", applog.FieldError, err, "exchange", cfg.AMQPExchange)
			os.Exit(1)
		}
		sink = publisher
	}

	stack := cli.NewStack(cfg, base, sink, logger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		CleanupInterval:   5 * time.Minute,
	})
	srv := apphttp.NewServer(":"+cfg.Port, stack.Processor, limiter, logger)

	// A pass fetches two documents per item, so responses may take a while.
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 5 * time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if publisher != nil {
			publisher.Close()
		}
	})

	logger.Info("Starting snstotal server", "port", cfg.Port, "amqp", cfg.AMQPEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
