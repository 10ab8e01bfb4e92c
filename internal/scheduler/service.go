package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/observability"
)

// ServiceParams configure the sweep service.
type ServiceParams struct {
	Logger   *zap.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *observability.Metrics
	Hour     int
	Minute   int
	Location *time.Location
	Now      func() time.Time
}

// Service runs its jobs once per day at a fixed local time.
type Service struct {
	logger  *zap.Logger
	jobs    []Job
	lock    Lock
	metrics *observability.Metrics
	hour    int
	minute  int
	loc     *time.Location
	now     func() time.Time
}

// NewService builds a sweep service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return &Service{
		logger:  logger,
		jobs:    jobs,
		lock:    params.Lock,
		metrics: params.Metrics,
		hour:    params.Hour,
		minute:  params.Minute,
		loc:     loc,
		now:     now,
	}, nil
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run waits for each daily slot and runs the jobs until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	for {
		next := NextRun(s.now(), s.hour, s.minute, s.loc)
		s.logger.Info("next reminder sweep scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler context canceled")
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err))
		}
	}
}

// RunOnce runs every job under the lock. A shared lock is kept until its TTL
// expires so replicas firing moments later skip the same slot; it is released
// early only when every job failed, leaving the slot open for a retry. A
// process-local lock is always released.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !locked {
		s.logger.Info("another scheduler instance holds the lock; skipping this run")
		return nil
	}

	s.logger.Info("scheduled run starting")
	failed := 0
	for _, job := range s.jobs {
		if err := s.runJob(ctx, job); err != nil {
			failed++
		}
	}
	s.logger.Info("scheduled run complete", zap.Int("jobs", len(s.jobs)), zap.Int("failed", failed))

	allFailed := len(s.jobs) > 0 && failed == len(s.jobs)
	if allFailed || !isShared(s.lock) {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logger.Error("failed to release scheduler lock", zap.Error(relErr))
		}
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	logger := s.logger.With(zap.String("job", job.Name()))
	logger.Info("job start")
	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveJob(job.Name(), duration, err)
	if err != nil {
		logger.Error("job failed", zap.Duration("duration", duration), zap.Error(err))
		return err
	}
	logger.Info("job completed", zap.Duration("duration", duration))
	return nil
}
