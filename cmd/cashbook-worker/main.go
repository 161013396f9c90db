package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/backend"
	"cashbook/internal/cli"
	"cashbook/internal/log"
	"cashbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting cashbook-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}
	if cfg.GoogleTemplateID == "" {
		logger.Warn("No GOOGLE_TEMPLATE_ID provided; only existing reports will be refreshed")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// the worker consumes with its own client and never publishes
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	_, generator, err := cli.NewReportServices(context.Background(), cfg, res.Credentials, res.Store, res.Store)
	if err != nil {
		logger.Error("Failed to initialize report services", log.FieldError, err)
		os.Exit(1)
	}
	if generator == nil {
		logger.Error("Report export is not configured - set GOOGLE_TEMPLATE_ID or a service account key")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	syncWorker := worker.NewReportSyncWorker(generator)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Consuming ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue, log.FieldOperation, log.OpConsume)
	if err := client.ConsumeLedgerEvents(ctx, syncWorker.HandleLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return
	}
	cli.WaitForShutdown(ctx, done)
}
