package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/events"
	"github.com/chamatrack/chama-service/internal/observability"
	"github.com/chamatrack/chama-service/internal/repository"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

// PaymentService appends to the ledger and keeps the paid flag in step.
type PaymentService struct {
	members    repository.MemberRepository
	payments   repository.PaymentRepository
	tx         TxRunner
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        Clock
}

// PaymentDependencies bundles collaborators for payment service. Tx may be nil,
// in which case the ledger insert and flag update run as separate writes.
type PaymentDependencies struct {
	MemberRepo  repository.MemberRepository
	PaymentRepo repository.PaymentRepository
	Tx          TxRunner
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Now         Clock
}

// RecordPaymentInput describes one ledger append.
type RecordPaymentInput struct {
	MemberID  string
	Amount    decimal.Decimal
	Source    domain.PaymentSource
	Reference *string
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentDependencies) *PaymentService {
	return &PaymentService{
		members:    deps.MemberRepo,
		payments:   deps.PaymentRepo,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		metrics:    deps.Metrics,
		now:        clockOrNow(deps.Now),
	}
}

// RecordPayment records an administrator-entered payment.
func (s *PaymentService) RecordPayment(ctx context.Context, memberID string, amount decimal.Decimal) (*domain.Payment, error) {
	return s.Record(ctx, RecordPaymentInput{MemberID: memberID, Amount: amount, Source: domain.PaymentSourceAdmin})
}

// Record appends a payment and marks the member paid. Amounts are kept to two
// decimal places and must stay positive after rounding.
func (s *PaymentService) Record(ctx context.Context, input RecordPaymentInput) (*domain.Payment, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount must be greater than zero",
			map[string]any{"field": "amount", "amount": input.Amount.String()})
	}
	if !domain.AmountInRange(amount) {
		return nil, apperrors.NewValidationError("amount is too large",
			map[string]any{"field": "amount", "max": domain.MaxAmount.String()})
	}

	member, err := s.members.GetByID(ctx, input.MemberID)
	if err != nil {
		return nil, memberLookupError(err, input.MemberID)
	}

	source := input.Source
	if source == "" {
		source = domain.PaymentSourceAdmin
	}
	payment := &domain.Payment{
		MemberID:   member.ID,
		Amount:     amount,
		OccurredAt: s.now().UTC(),
		Source:     source,
		Reference:  input.Reference,
	}

	if s.tx != nil {
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.payments.Create(ctx, payment); err != nil {
				return err
			}
			return s.members.SetPaid(ctx, member.ID, true)
		})
		if err != nil {
			return nil, memberLookupError(err, member.ID)
		}
	} else {
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, memberLookupError(err, member.ID)
		}
		if err := s.members.SetPaid(ctx, member.ID, true); err != nil {
			return payment, apperrors.NewPartialFailure(payment.ID, member.ID, err)
		}
	}

	s.metrics.RecordPayment(string(payment.Source))
	s.publish(ctx, events.Event{
		Type:     events.EventPaymentRecorded,
		MemberID: member.ID,
		Payload: events.PaymentRecordedPayload{
			PaymentID:  payment.ID,
			MemberName: member.Name,
			Phone:      member.Phone,
			Amount:     payment.Amount,
			Source:     payment.Source,
		},
	})
	if !member.HasPaid {
		s.publish(ctx, events.Event{
			Type:     events.EventMemberStatusChanged,
			MemberID: member.ID,
			Payload:  events.MemberStatusChangedPayload{OldPaid: false, NewPaid: true},
		})
	}
	return payment, nil
}

func (s *PaymentService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, event)
}

