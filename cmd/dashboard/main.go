package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"jaffle/internal/amqp"
	"jaffle/internal/charts"
	"jaffle/internal/cli"
	apphttp "jaffle/internal/http"
	applog "jaffle/internal/log"
	"jaffle/internal/middleware/ratelimit"
	"jaffle/internal/services"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	result := cli.MustOpenBackend(context.Background(), logger, cfg)

	dashboard := services.NewDashboardService(result.Reader,
		services.WithQueryTimeout(cfg.QueryTimeout),
		services.WithLogger(logger.With(applog.FieldComponent, applog.ComponentDashboard).Logger))

	serverCfg := apphttp.ServerConfig{
		Addr:      ":" + cfg.Port,
		Dashboard: dashboard,
		Exporter:  services.NewExportService(),
		Logger:    logger,
		RateLimit: ratelimit.DefaultConfig(),
		Charts:    charts.Options{Width: charts.DefaultWidth, Height: charts.DefaultHeight},
	}

	// Snapshots are optional; the dashboard works without a broker.
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, snapshots disabled", applog.FieldError, err.Error())
		} else {
			amqpClient = c
			serverCfg.Publisher = c
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv, err := apphttp.NewServer(serverCfg)
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err.Error())
			}
		}
		if err := result.Close(); err != nil {
			logger.Warn("Backend close error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting dashboard server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"db_source", cfg.Database.Source,
		"snapshots", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
