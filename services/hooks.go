package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PublishTimeout bounds how long a request waits on the event broker
const PublishTimeout = 3 * time.Second

// BookingHook runs after an order transition has been committed. A hook
// error is logged and never undoes the transition.
type BookingHook interface {
	AfterCommit(ctx context.Context, event BookingEvent) error
}

// BookingHookFunc adapts a function to BookingHook
type BookingHookFunc func(ctx context.Context, event BookingEvent) error

func (f BookingHookFunc) AfterCommit(ctx context.Context, event BookingEvent) error {
	return f(ctx, event)
}

// NotificationHook emails the invoice for new bookings and publishes every
// event
type NotificationHook struct {
	mailer         Mailer
	publisher      EventPublisher
	logger         *zap.Logger
	publishTimeout time.Duration
}

// NewNotificationHook creates the default post-commit hook
func NewNotificationHook(mailer Mailer, publisher EventPublisher, logger *zap.Logger) *NotificationHook {
	return &NotificationHook{mailer: mailer, publisher: publisher, logger: logger, publishTimeout: PublishTimeout}
}

func (h *NotificationHook) AfterCommit(ctx context.Context, event BookingEvent) error {
	var errs []error

	if event.Type == EventBookingCreated && event.User != nil && event.Order != nil {
		if err := h.mailer.SendBookingInvoice(ctx, *event.User, *event.Order); err != nil {
			errs = append(errs, fmt.Errorf("invoice email: %w", err))
		}
	}

	// Detached from the request so a client disconnect does not drop the event
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)
	defer cancel()
	if err := h.publisher.Publish(pubCtx, event); err != nil {
		errs = append(errs, fmt.Errorf("publish: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification hook for order %d: %w", event.OrderID, errors.Join(errs...))
	}
	return nil
}
