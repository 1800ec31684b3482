package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/carrental/car-rental-api/jobs"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule holds the cron expressions (with seconds) for each job
type Schedule struct {
	OverdueReminders string
	ExpireUnpaid     string
}

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron   *cron.Cron
	jobs   *jobs.JobRunner
	logger *zap.Logger
}

// New creates a scheduler and registers every job
func New(jobRunner *jobs.JobRunner, schedule Schedule, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:   c,
		jobs:   jobRunner,
		logger: logger,
	}

	if err := s.registerJobs(schedule); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs(schedule Schedule) error {
	if _, err := s.cron.AddFunc(schedule.OverdueReminders, s.jobs.SendOverdueReminders); err != nil {
		return fmt.Errorf("failed to register SendOverdueReminders job: %w", err)
	}
	if _, err := s.cron.AddFunc(schedule.ExpireUnpaid, s.jobs.ExpireUnpaidBookings); err != nil {
		return fmt.Errorf("failed to register ExpireUnpaidBookings job: %w", err)
	}

	s.logger.Info("cron jobs registered", zap.Int("count", len(s.cron.Entries())))
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running jobs to finish
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting cron scheduler")
	s.cron.Start()

	<-ctx.Done()

	s.logger.Info("stopping cron scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("cron scheduler stopped")
	return nil
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
