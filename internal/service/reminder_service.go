package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/aggregation"
	"github.com/chamatrack/chama-service/internal/notify"
	"github.com/chamatrack/chama-service/internal/observability"
	"github.com/chamatrack/chama-service/internal/repository"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

const reminderTemplate = "Hi %s! This is a friendly reminder that your Chama contribution is due. " +
	"Please make your payment and reply 'PAID' to confirm. Thank you!"

// ReminderText renders the reminder for one member.
func ReminderText(name string) string {
	return fmt.Sprintf(reminderTemplate, name)
}

// ReminderService selects unpaid members and sends them a nudge.
type ReminderService struct {
	members repository.MemberRepository
	channel notify.Channel
	metrics *observability.Metrics
	logger  *zap.Logger
	pacing  time.Duration
	now     Clock
}

// ReminderDependencies bundles collaborators for reminder service. Pacing is
// the pause between consecutive sends.
type ReminderDependencies struct {
	MemberRepo repository.MemberRepository
	Channel    notify.Channel
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Pacing     time.Duration
	Now        Clock
}

// ReminderResult is the outcome for one member.
type ReminderResult struct {
	MemberID string
	Name     string
	Phone    string
	Sent     bool
	Error    string
}

// ReminderBatch summarizes one send run.
type ReminderBatch struct {
	Sent        int
	Failed      int
	TotalUnpaid int
	Results     []ReminderResult
}

// NewReminderService constructs the service.
func NewReminderService(deps ReminderDependencies) *ReminderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		members: deps.MemberRepo,
		channel: deps.Channel,
		metrics: deps.Metrics,
		logger:  logger,
		pacing:  deps.Pacing,
		now:     clockOrNow(deps.Now),
	}
}

// Targets lists every unpaid member, longest registered first.
func (s *ReminderService) Targets(ctx context.Context) ([]aggregation.ReminderTarget, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return aggregation.SelectReminderTargets(members, s.now()), nil
}

// SendAll sends the reminder to every target. A failed send is recorded and
// the batch continues.
func (s *ReminderService) SendAll(ctx context.Context) (*ReminderBatch, error) {
	targets, err := s.Targets(ctx)
	if err != nil {
		return nil, err
	}

	batch := &ReminderBatch{TotalUnpaid: len(targets), Results: make([]ReminderResult, 0, len(targets))}
	for i, target := range targets {
		if i > 0 && s.pacing > 0 {
			if err := sleepCtx(ctx, s.pacing); err != nil {
				return batch, err
			}
		}

		result := ReminderResult{MemberID: target.ID, Name: target.Name, Phone: target.Phone}
		sendCtx := notify.WithMemberID(ctx, target.ID)
		if err := s.channel.Send(sendCtx, target.Phone, ReminderText(target.Name)); err != nil {
			chErr := apperrors.NewChannelError(err)
			result.Error = chErr.Error()
			batch.Failed++
			s.metrics.RecordReminder("failed")
			s.logger.Warn("reminder failed",
				zap.String("member_id", target.ID),
				zap.String("phone", target.Phone),
				zap.Error(err))
		} else {
			result.Sent = true
			batch.Sent++
			s.metrics.RecordReminder("sent")
			s.logger.Info("reminder sent", zap.String("member_id", target.ID), zap.String("phone", target.Phone))
		}
		batch.Results = append(batch.Results, result)
	}

	s.logger.Info("reminder batch complete",
		zap.Int("sent", batch.Sent),
		zap.Int("failed", batch.Failed),
		zap.Int("total_unpaid", batch.TotalUnpaid))
	return batch, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
