// Package bootstrap builds the collaborators shared by the service binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/config"
	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/messaging"
	"github.com/chamatrack/chama-service/internal/notify"
	"github.com/chamatrack/chama-service/internal/persistence"
	"github.com/chamatrack/chama-service/internal/repository"
	"github.com/chamatrack/chama-service/internal/repository/memory"
	"github.com/chamatrack/chama-service/internal/service"
)

// Stores groups the repositories and unit of work for one backing store.
type Stores struct {
	Members  repository.MemberRepository
	Payments repository.PaymentRepository
	Settings repository.SettingsRepository
	Tx       service.TxRunner
	Postgres *persistence.Postgres
}

// OpenStores connects to Postgres and runs migrations, or falls back to the
// in-memory store when no DSN is configured.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if !pg.Enabled() {
		mem := memory.NewStore()
		return &Stores{
			Members:  mem.Members(),
			Payments: mem.Payments(),
			Settings: mem.Settings(),
			Tx:       mem,
			Postgres: pg,
		}, nil
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool := pg.PoolHandle()
	return &Stores{
		Members:  repository.NewMemberRepository(pool),
		Payments: repository.NewPaymentRepository(pool),
		Settings: repository.NewSettingsRepository(pool),
		Tx:       persistence.NewTxRunner(pool),
		Postgres: pg,
	}, nil
}

// Close releases the database pool.
func (s *Stores) Close() {
	s.Postgres.Close()
}

// SettingsDefaults are the cycle settings used until an administrator stores some.
func SettingsDefaults(cfg config.CollectionConfig) domain.Settings {
	return domain.Settings{
		ExpectedPerMember: cfg.DefaultAmountDecimal(),
		Currency:          cfg.Currency,
	}
}

// OpenBroker dials RabbitMQ when AMQP_URL is set; it returns nil otherwise.
func OpenBroker(cfg config.AMQPConfig, logger *zap.Logger) (*messaging.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	client, err := messaging.NewClient(cfg.URL, cfg.Exchange, cfg.Queue, logger)
	if err != nil {
		return nil, fmt.Errorf("connect broker: %w", err)
	}
	return client, nil
}

// NewChannel picks the outbound channel: the queue when a broker is connected,
// Twilio when credentials exist, and a log-only channel otherwise.
func NewChannel(cfg *config.Config, broker *messaging.Client, logger *zap.Logger) notify.Channel {
	switch {
	case broker != nil:
		logger.Info("reminders are queued for the notification worker", zap.String("queue", cfg.AMQP.Queue))
		return notify.NewQueueChannel(broker)
	case cfg.Twilio.Enabled():
		return notify.NewTwilioChannel(cfg.Twilio, logger)
	default:
		logger.Warn("no messaging provider configured; messages are only logged")
		return notify.NewLogChannel(logger)
	}
}
