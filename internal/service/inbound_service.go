package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/observability"
	"github.com/chamatrack/chama-service/internal/repository"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

// Reply texts sent back over the messaging channel.
const (
	ReplyUnregistered  = "Sorry, your number is not registered in our Chama system. Please contact the admin."
	ReplyProcessingErr = "Sorry, there was an error processing your message. Please try again later."
	replyAlreadyPaid   = "Hi %s! Our records show you've already paid. Thank you!"
	replyRecorded      = "Thank you %s! Your payment has been recorded. You're all set!"
	replyStatusPaid    = "Hi %s! You're all paid up. Thank you!"
	replyStatusPending = "Hi %s! You still have a pending payment. Reply 'PAID' when you've made your contribution."
	replyHelp          = "Hi %s! Reply 'PAID' if you've made your payment, or 'STATUS' to check your payment status."
)

// MessageDeduper remembers inbound message ids already handled.
type MessageDeduper interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// InboundService answers free-text messages from members.
type InboundService struct {
	members  repository.MemberRepository
	payments *PaymentService
	settings *SettingsService
	dedupe   MessageDeduper
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// InboundDependencies bundles collaborators. Dedupe may be nil.
type InboundDependencies struct {
	MemberRepo repository.MemberRepository
	Payments   *PaymentService
	Settings   *SettingsService
	Dedupe     MessageDeduper
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// InboundMessage is one message received from the channel.
type InboundMessage struct {
	From      string
	Body      string
	MessageID string
}

// InboundReply is the text to send back plus what was done.
type InboundReply struct {
	Intent    domain.Intent
	Text      string
	MemberID  string
	PaymentID string
	Duplicate bool
}

// NewInboundService constructs the service.
func NewInboundService(deps InboundDependencies) *InboundService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboundService{
		members:  deps.MemberRepo,
		payments: deps.Payments,
		settings: deps.Settings,
		dedupe:   deps.Dedupe,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// HandleMessage classifies body and returns the reply for the sender.
func (s *InboundService) HandleMessage(ctx context.Context, from, body string) (string, error) {
	reply, err := s.Handle(ctx, InboundMessage{From: from, Body: body})
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Handle processes one inbound message. Each message stands alone; no
// conversation state is kept.
func (s *InboundService) Handle(ctx context.Context, msg InboundMessage) (*InboundReply, error) {
	intent := domain.ClassifyMessage(msg.Body)
	s.metrics.RecordInbound(string(intent))
	reply := &InboundReply{Intent: intent}

	phone, err := domain.NormalizePhone(msg.From)
	if err != nil {
		reply.Text = ReplyUnregistered
		return reply, nil
	}
	member, err := s.members.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			reply.Text = ReplyUnregistered
			return reply, nil
		}
		return nil, storeError(err)
	}
	reply.MemberID = member.ID

	if s.isDuplicate(ctx, msg.MessageID) {
		reply.Duplicate = true
		reply.Text = statusText(member)
		return reply, nil
	}

	switch intent {
	case domain.IntentConfirmPayment:
		if member.HasPaid {
			reply.Text = fmt.Sprintf(replyAlreadyPaid, member.Name)
			return reply, nil
		}
		payment, err := s.confirm(ctx, member, msg.MessageID)
		if err != nil {
			s.forget(ctx, msg.MessageID)
			return nil, err
		}
		reply.PaymentID = payment.ID
		reply.Text = fmt.Sprintf(replyRecorded, member.Name)
	case domain.IntentStatusQuery:
		reply.Text = statusText(member)
	default:
		reply.Text = fmt.Sprintf(replyHelp, member.Name)
	}
	return reply, nil
}

func (s *InboundService) confirm(ctx context.Context, member *domain.Member, messageID string) (*domain.Payment, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	input := RecordPaymentInput{
		MemberID: member.ID,
		Amount:   settings.ExpectedPerMember,
		Source:   domain.PaymentSourceWhatsApp,
	}
	if messageID != "" {
		input.Reference = &messageID
	}

	payment, err := s.payments.Record(ctx, input)
	if err != nil {
		if apperrors.IsPartialFailure(err) && payment != nil {
			// the money is on the ledger; the member gets a confirmation
			s.logger.Error("inbound payment recorded with stale paid flag",
				zap.String("member_id", member.ID),
				zap.String("payment_id", payment.ID),
				zap.Error(err))
			return payment, nil
		}
		return nil, err
	}
	s.logger.Info("inbound payment recorded",
		zap.String("member_id", member.ID),
		zap.String("payment_id", payment.ID))
	return payment, nil
}

func (s *InboundService) isDuplicate(ctx context.Context, messageID string) bool {
	if s.dedupe == nil || messageID == "" {
		return false
	}
	dup, err := s.dedupe.CheckAndMark(ctx, messageID)
	if err != nil {
		s.logger.Warn("inbound dedupe unavailable", zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	return dup
}

func (s *InboundService) forget(ctx context.Context, messageID string) {
	if s.dedupe == nil || messageID == "" {
		return
	}
	if err := s.dedupe.Delete(ctx, messageID); err != nil {
		s.logger.Warn("failed to clear inbound dedupe key", zap.String("message_id", messageID), zap.Error(err))
	}
}

func statusText(member *domain.Member) string {
	if member.HasPaid {
		return fmt.Sprintf(replyStatusPaid, member.Name)
	}
	return fmt.Sprintf(replyStatusPending, member.Name)
}
