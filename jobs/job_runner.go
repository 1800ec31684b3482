package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/carrental/car-rental-api/metrics"
	"github.com/carrental/car-rental-api/services"
	"go.uber.org/zap"
)

// JobRunner runs the periodic booking maintenance jobs
type JobRunner struct {
	orders     *services.OrderService
	mailer     services.Mailer
	logger     *zap.Logger
	unpaidTTL  time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

// NewJobRunner creates a job runner. unpaidTTL is how long a booking may
// stay unpaid before it is expired.
func NewJobRunner(orders *services.OrderService, mailer services.Mailer, unpaidTTL time.Duration, logger *zap.Logger) *JobRunner {
	return &JobRunner{
		orders:     orders,
		mailer:     mailer,
		logger:     logger,
		unpaidTTL:  unpaidTTL,
		jobTimeout: 5 * time.Minute,
		now:        time.Now,
	}
}

// runWithRecovery wraps job execution with panic recovery and records the
// outcome in the job metrics
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jr.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
			jr.logger.Error("job panicked", zap.String("job", jobName), zap.Any("panic", r))
		}
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.JobRunsTotal.WithLabelValues(jobName, status).Inc()
	}()

	start := time.Now()
	jr.logger.Info("starting job", zap.String("job", jobName))
	if err = jobFunc(ctx); err != nil {
		jr.logger.Error("job failed", zap.String("job", jobName), zap.Error(err))
		return err
	}
	jr.logger.Info("job completed", zap.String("job", jobName), zap.Duration("took", time.Since(start)))
	return nil
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireUnpaidBookings()
	jr.SendOverdueReminders()
}
