package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finman/internal/amqp"
	"finman/internal/cache"
	"finman/internal/cli"
	"finman/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		log.New(log.DefaultConfig()).Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	// The notifier is a service: info level unless LOG_LEVEL says otherwise
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "info"
	}
	logger := cli.SetupLogger(cfg, log.ComponentNotifier, os.Stdout)
	logger.Info("Starting finman-notifier", log.FieldOperation, log.OpStartup)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	notifier := newNotifier(logger, cache.NewLRUCache[bool](1024, cfg.AlertDedupTTL))
	janitor := cache.NewJanitor(notifier.seen)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeBudgetAlerts(gctx, notifier.Handle)
	})
	g.Go(func() error {
		janitor.Run(gctx, time.Minute)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Notifier stopped", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Notifier shutdown complete", log.FieldOperation, log.OpShutdown)
}
