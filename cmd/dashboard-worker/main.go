package main

import (
	"context"
	"errors"
	"os"
	"time"

	"jaffle/internal/amqp"
	"jaffle/internal/cli"
	applog "jaffle/internal/log"
	"jaffle/internal/services"
	"jaffle/internal/worker"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the snapshot worker")
		os.Exit(1)
	}

	logger.Info("Starting dashboard-worker", "snapshot_dir", cfg.SnapshotDir)

	result := cli.MustOpenBackend(context.Background(), logger, cfg)
	defer result.Close()

	dashboard := services.NewDashboardService(result.Reader,
		services.WithQueryTimeout(cfg.QueryTimeout),
		services.WithLogger(logger.With(applog.FieldComponent, applog.ComponentDashboard).Logger))

	snapshots := worker.NewSnapshotWorker(dashboard, services.NewExportService(), cfg.SnapshotDir)
	if err := snapshots.EnsureDir(); err != nil {
		logger.Error("Snapshot directory unavailable", applog.FieldError, err.Error())
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Consuming snapshot requests", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeSnapshotRequests(ctx, snapshots.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
