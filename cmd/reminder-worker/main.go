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

	"github.com/chamatrack/chama-service/internal/bootstrap"
	"github.com/chamatrack/chama-service/internal/config"
	"github.com/chamatrack/chama-service/internal/observability"
	"github.com/chamatrack/chama-service/internal/persistence"
	"github.com/chamatrack/chama-service/internal/scheduler"
	"github.com/chamatrack/chama-service/internal/service"
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
	logger = logger.With(zap.String("service_kind", "reminder-worker"))

	if cfg.Postgres.DSN == "" {
		logger.Fatal("reminder worker requires POSTGRES_DSN; the in-memory store is private to the API process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	broker, err := bootstrap.OpenBroker(cfg.AMQP, logger)
	if err != nil {
		logger.Fatal("failed to connect broker", zap.Error(err))
	}
	if broker != nil {
		defer broker.Close()
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	reminders := service.NewReminderService(service.ReminderDependencies{
		MemberRepo: stores.Members,
		Channel:    bootstrap.NewChannel(cfg, broker, logger),
		Metrics:    metrics,
		Logger:     logger,
		Pacing:     cfg.Reminder.SendPacing,
	})

	var lock scheduler.Lock = &scheduler.LocalLock{}
	if redis.Enabled() {
		lock, err = scheduler.NewRedisLock(redis, cfg.Reminder.LockKey, cfg.Reminder.LockTTL)
		if err != nil {
			logger.Fatal("failed to create scheduler lock", zap.Error(err))
		}
	} else {
		logger.Warn("REDIS_ADDR not set; run a single reminder worker replica")
	}

	svc, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:   logger,
		Jobs:     []scheduler.Job{scheduler.NewReminderSweepJob(reminders, logger)},
		Lock:     lock,
		Metrics:  metrics,
		Hour:     cfg.Reminder.Hour,
		Minute:   cfg.Reminder.Minute,
		Location: cfg.App.Location(),
	})
	if err != nil {
		logger.Fatal("failed to create scheduler", zap.Error(err))
	}

	logger.Info("starting reminder worker",
		zap.Int("hour", cfg.Reminder.Hour),
		zap.Int("minute", cfg.Reminder.Minute),
		zap.String("timezone", cfg.App.Timezone))

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("reminder worker stopped unexpectedly", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("reminder worker shutting down gracefully")
}
