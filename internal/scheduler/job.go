package scheduler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/service"
)

// Job represents a task run by the daily sweep.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type reminderSender interface {
	SendAll(ctx context.Context) (*service.ReminderBatch, error)
}

// ErrAllRemindersFailed is returned when a sweep had targets but delivered none.
var ErrAllRemindersFailed = errors.New("no reminder could be delivered")

// ReminderSweepJob sends the reminder to every unpaid member.
type ReminderSweepJob struct {
	reminders reminderSender
	logger    *zap.Logger
}

// NewReminderSweepJob constructs the job.
func NewReminderSweepJob(reminders reminderSender, logger *zap.Logger) *ReminderSweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderSweepJob{reminders: reminders, logger: logger}
}

func (j *ReminderSweepJob) Name() string { return "reminder_sweep" }

// Run sends one batch. Individual send failures are part of the batch result;
// only a batch where every send failed is reported as a job failure.
func (j *ReminderSweepJob) Run(ctx context.Context) error {
	batch, err := j.reminders.SendAll(ctx)
	if err != nil {
		return err
	}
	j.logger.Info("reminder sweep finished",
		zap.Int("sent", batch.Sent),
		zap.Int("failed", batch.Failed),
		zap.Int("total_unpaid", batch.TotalUnpaid))
	if batch.TotalUnpaid > 0 && batch.Sent == 0 {
		return ErrAllRemindersFailed
	}
	return nil
}
