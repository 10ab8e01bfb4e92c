// Package worker drains queued reminder messages into a delivery channel.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/messaging"
	"github.com/chamatrack/chama-service/internal/notify"
	"github.com/chamatrack/chama-service/internal/observability"
)

// Consumer is the queue side used by the worker.
type Consumer interface {
	ConsumeReminders(ctx context.Context, handler func(context.Context, *messaging.ReminderMessage) error) error
	Close() error
}

// Dialer opens a fresh consumer connection.
type Dialer func(ctx context.Context) (Consumer, error)

// NotificationWorker consumes reminder messages and delivers them over a channel.
type NotificationWorker struct {
	dial    Dialer
	channel notify.Channel
	metrics *observability.Metrics
	logger  *zap.Logger
	backoff func(attempt int) time.Duration
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(dial Dialer, channel notify.Channel, metrics *observability.Metrics, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		dial:    dial,
		channel: channel,
		metrics: metrics,
		logger:  logger,
		backoff: messaging.ExponentialBackoff,
	}
}

// Run consumes until ctx is canceled, reconnecting with exponential backoff
// when the broker connection drops.
func (w *NotificationWorker) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		consumer, err := w.dial(ctx)
		if err != nil {
			w.logger.Warn("broker unavailable, retrying", zap.Int("attempt", attempt), zap.Error(err))
			if err := w.wait(ctx, attempt); err != nil {
				return err
			}
			attempt++
			continue
		}
		attempt = 0

		err = consumer.ConsumeReminders(ctx, w.Handle)
		_ = consumer.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !messaging.IsConnectionError(err) {
			return err
		}
		w.logger.Warn("broker connection lost, reconnecting", zap.Error(err))
		if err := w.wait(ctx, attempt); err != nil {
			return err
		}
		attempt++
	}
}

// Handle delivers one message. A returned error makes the broker requeue it.
func (w *NotificationWorker) Handle(ctx context.Context, msg *messaging.ReminderMessage) error {
	if msg.Phone == "" || msg.Body == "" {
		w.logger.Warn("dropping incomplete reminder message", zap.String("member_id", msg.MemberID))
		return nil
	}
	sendCtx := notify.WithMemberID(ctx, msg.MemberID)
	if err := w.channel.Send(sendCtx, msg.Phone, msg.Body); err != nil {
		w.metrics.RecordReminder("undelivered")
		return err
	}
	w.metrics.RecordReminder("delivered")
	w.logger.Info("reminder delivered", zap.String("member_id", msg.MemberID), zap.String("phone", msg.Phone))
	return nil
}

func (w *NotificationWorker) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(w.backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
