package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/config"
	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/events"
	"github.com/chamatrack/chama-service/internal/notify"
)

const receiptTemplate = "Hi %s! We have recorded your payment of %s %s. Thank you!"

// NotificationService reacts to domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	channel    notify.Channel
	logger     *zap.Logger
	cfg        config.NotificationConfig
	currency   string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, channel notify.Channel, logger *zap.Logger, cfg config.NotificationConfig, currency string) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		channel:    channel,
		logger:     logger,
		cfg:        cfg,
		currency:   currency,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventMemberRegistered, n.logEvent)
	n.dispatcher.Subscribe(events.EventMemberStatusChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventCycleReset, n.logEvent)
	n.dispatcher.Subscribe(events.EventPaymentRecorded, n.handlePaymentRecorded)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("member_id", event.MemberID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handlePaymentRecorded(ctx context.Context, event events.Event) error {
	_ = n.logEvent(ctx, event)

	payload, ok := event.Payload.(events.PaymentRecordedPayload)
	if !ok || !n.cfg.SendReceipts || n.channel == nil {
		return nil
	}
	// inbound confirmations already get a direct reply
	if payload.Source == domain.PaymentSourceWhatsApp {
		return nil
	}

	body := fmt.Sprintf(receiptTemplate, payload.MemberName, n.currency, payload.Amount.StringFixed(2))
	if err := n.channel.Send(notify.WithMemberID(ctx, event.MemberID), payload.Phone, body); err != nil {
		n.logger.Warn("payment receipt failed",
			zap.String("member_id", event.MemberID),
			zap.String("phone", payload.Phone),
			zap.Error(err))
		return err
	}
	return nil
}
