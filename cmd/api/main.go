package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/chamatrack/chama-service/internal/api/http"
	"github.com/chamatrack/chama-service/internal/api/http/handlers"
	"github.com/chamatrack/chama-service/internal/auth"
	"github.com/chamatrack/chama-service/internal/bootstrap"
	"github.com/chamatrack/chama-service/internal/config"
	"github.com/chamatrack/chama-service/internal/events"
	"github.com/chamatrack/chama-service/internal/observability"
	"github.com/chamatrack/chama-service/internal/persistence"
	"github.com/chamatrack/chama-service/internal/service"
)

const inboundDedupeTTL = 24 * time.Hour

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	channel := bootstrap.NewChannel(cfg, broker, logger)
	loc := cfg.App.Location()

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, channel, logger, cfg.Notification, cfg.Collection.Currency)
	notifications.RegisterHandlers()

	memberService := service.NewMemberService(service.MemberDependencies{
		MemberRepo:  stores.Members,
		PaymentRepo: stores.Payments,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		MemberRepo:  stores.Members,
		PaymentRepo: stores.Payments,
		Tx:          stores.Tx,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	settingsService := service.NewSettingsService(stores.Settings, bootstrap.SettingsDefaults(cfg.Collection))
	reportService := service.NewReportService(service.ReportDependencies{
		MemberRepo:  stores.Members,
		PaymentRepo: stores.Payments,
		Settings:    settingsService,
		Location:    loc,
	})
	// sends inline within the request, so no pacing between messages
	reminderService := service.NewReminderService(service.ReminderDependencies{
		MemberRepo: stores.Members,
		Channel:    channel,
		Metrics:    metrics,
		Logger:     logger,
	})

	inboundDeps := service.InboundDependencies{
		MemberRepo: stores.Members,
		Payments:   paymentService,
		Settings:   settingsService,
		Metrics:    metrics,
		Logger:     logger,
	}
	if redis.Enabled() {
		guard, err := persistence.NewIdempotencyGuard(redis, inboundDedupeTTL, "whatsapp")
		if err != nil {
			logger.Fatal("failed to build idempotency guard", zap.Error(err))
		}
		inboundDeps.Dedupe = guard
	} else {
		logger.Warn("REDIS_ADDR not set; provider retries of inbound messages are not deduplicated")
	}
	inboundService := service.NewInboundService(inboundDeps)

	authService := service.NewAuthService(cfg.Auth)
	if authService.Enabled() {
		if err := auth.ValidateHash(cfg.Auth.AdminPasswordHash, auth.MinAdminCost); err != nil {
			logger.Fatal("invalid ADMIN_PASSWORD_HASH", zap.Error(err))
		}
	} else {
		logger.Warn("ADMIN_PASSWORD_HASH not set; admin API is open without authentication")
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), !authService.Enabled())

	webhookCfg := handlers.WebhookConfig{PublicURL: cfg.Twilio.WebhookPublicURL}
	if cfg.Twilio.ValidateWebhook {
		webhookCfg.Validator = handlers.NewTwilioSignatureValidator(cfg.Twilio.AuthToken)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": stores.Postgres,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Members:        handlers.NewMembersHandler(memberService),
		Payments:       handlers.NewPaymentsHandler(paymentService, reportService),
		Reports:        handlers.NewReportsHandler(reportService, settingsService, memberService, loc),
		Reminders:      handlers.NewRemindersHandler(reminderService),
		Webhook:        handlers.NewWebhookHandler(inboundService, webhookCfg, logger),
		AuthMiddleware: authMiddleware,
		Gatherer:       prometheus.DefaultGatherer,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
