package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"valuta/internal/amqp"
	"valuta/internal/cli"
	apphttp "valuta/internal/http"
	applog "valuta/internal/log"
	"valuta/internal/middleware/ratelimit"
	"valuta/internal/services"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(applog.ComponentApp, "info")
	config := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(applog.ComponentApp, config.LogLevel)

	ctx := context.Background()
	store := cli.OpenBackend(ctx, logger, config)
	engine := cli.NewEngine(config, store.Backend, logger)

	ready := map[string]apphttp.Pinger{"storage": store.Ping}

	var queue apphttp.Enqueuer
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.AMQPResultsQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, recompute endpoint disabled", applog.FieldError, err)
		} else {
			amqpClient = client
			queue = client
			logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:        ":" + config.Port,
		DefaultUser: config.DefaultUser,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: config.RateLimitRPS,
			Burst:             config.RateLimitBurst,
		},
	}, apphttp.Deps{
		Dashboard: engine.Dashboard,
		Ready:     ready,
		Queue:     queue,
		Logger:    logger.WithComponent(applog.ComponentHTTP),
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to build HTTP server", applog.FieldError, err)
	}

	var syncer *services.RateSyncer
	shutdown := func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if syncer != nil {
			if err := syncer.Stop(shutdownCtx); err != nil {
				logger.Warn("Rate syncer stop error", applog.FieldError, err)
			}
		}
		engine.Caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", applog.FieldError, err)
		}
	}
	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, shutdown)

	engine.Caches.StartCleanup(runCtx, time.Minute)

	syncer, err = cli.NewRateSyncer(runCtx, config, store.Backend, engine.InvalidateRates, logger)
	switch {
	case errors.Is(err, cli.ErrRatesNotConfigured):
		logger.Info("Rates spreadsheet not configured, serving stored rates only")
	case err != nil:
		logger.Warn("Failed to initialize rates spreadsheet, serving stored rates only", applog.FieldError, err)
		syncer = nil
	default:
		if err := syncer.Start(runCtx); err != nil {
			logger.Warn("Failed to start rate syncer", applog.FieldError, err)
		}
	}

	logger.Info("Starting valuta server",
		"port", config.Port,
		"backend", config.DataBackend,
		"reporting_currency", config.ReportingCurrency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(ctx, "Server error", applog.FieldError, err, "port", config.Port)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}
