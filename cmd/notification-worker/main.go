package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/config"
	"github.com/chamatrack/chama-service/internal/messaging"
	"github.com/chamatrack/chama-service/internal/notify"
	"github.com/chamatrack/chama-service/internal/observability"
	"github.com/chamatrack/chama-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("service_kind", "notification-worker"))

	if cfg.AMQP.URL == "" {
		logger.Fatal("notification worker requires AMQP_URL")
	}

	var channel notify.Channel
	if cfg.Twilio.Enabled() {
		channel = notify.NewTwilioChannel(cfg.Twilio, logger)
	} else {
		logger.Warn("Twilio credentials missing; queued messages are only logged")
		channel = notify.NewLogChannel(logger)
	}

	dial := func(context.Context) (worker.Consumer, error) {
		return messaging.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, logger)
	}
	w := worker.NewNotificationWorker(dial, channel, observability.NewMetrics(prometheus.DefaultRegisterer), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting notification worker", zap.String("queue", cfg.AMQP.Queue))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notification worker stopped unexpectedly", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("notification worker shutting down gracefully")
}
