package jobs

import (
	"context"

	"github.com/carrental/car-rental-api/models"
	"go.uber.org/zap"
)

// SendOverdueReminders emails renters whose paid bookings ended before today
// and have not been returned
func (jr *JobRunner) SendOverdueReminders() {
	_ = jr.runWithRecovery("SendOverdueReminders", func(ctx context.Context) error {
		overdue, err := jr.orders.ListOverdue(ctx, models.Today(jr.now()))
		if err != nil {
			return err
		}

		sent := 0
		for _, order := range overdue {
			if order.User.ID == 0 {
				jr.logger.Warn("overdue order without renter", zap.Uint("order_id", order.ID))
				continue
			}
			if err := jr.mailer.SendOverdueReminder(ctx, order.User, order); err != nil {
				jr.logger.Error("failed to send overdue reminder",
					zap.Uint("order_id", order.ID),
					zap.Uint("user_id", order.UserID),
					zap.Error(err))
				continue
			}
			sent++
		}

		jr.logger.Info("overdue reminders sent", zap.Int("count", sent), zap.Int("overdue", len(overdue)))
		return nil
	})
}

// ExpireUnpaidBookings cancels bookings whose checkout was not completed in
// time so the car can be booked again
func (jr *JobRunner) ExpireUnpaidBookings() {
	_ = jr.runWithRecovery("ExpireUnpaidBookings", func(ctx context.Context) error {
		expired, err := jr.orders.ExpireUnpaid(ctx, jr.now().Add(-jr.unpaidTTL))
		if err != nil {
			return err
		}
		jr.logger.Info("unpaid bookings expired", zap.Int("count", expired))
		return nil
	})
}
