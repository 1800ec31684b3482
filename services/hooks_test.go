package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carrental/car-rental-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleOrder() (*models.Order, *models.User) {
	user := &models.User{ID: 3, Email: "hook@example.com", FirstName: "Dev"}
	order := &models.Order{
		ID:        9,
		UserID:    user.ID,
		CarID:     4,
		StartDate: models.MustParseDate("2030-01-01"),
		EndDate:   models.MustParseDate("2030-01-03"),
		Price:     decimal.RequireFromString("4500"),
		Car: models.Car{
			Name:      "Swift",
			RegNumber: "KA05MN1234",
			Brand:     models.Brand{Name: "Maruti"},
		},
	}
	return order, user
}

func TestNewBookingEvent(t *testing.T) {
	order, user := sampleOrder()
	at := time.Date(2030, 1, 1, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	event := NewBookingEvent(EventBookingCreated, order, user, at)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, uint(9), event.OrderID)
	assert.Equal(t, "4500.00", event.Price)
	assert.Equal(t, "0.00", event.FineAmount)
	assert.Equal(t, time.UTC, event.OccurredAt.Location())

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hook@example.com", "the renter is not serialized")
	assert.Contains(t, string(raw), `"type":"booking.created"`)
	assert.Contains(t, string(raw), `"start_date":"2030-01-01"`)
}

func TestNotificationHook(t *testing.T) {
	order, user := sampleOrder()
	ctx := context.Background()

	t.Run("invoice only for new bookings", func(t *testing.T) {
		mailer, publisher := NewMockMailer(), NewMockEventPublisher()
		hook := NewNotificationHook(mailer, publisher, zap.NewNop())

		require.NoError(t, hook.AfterCommit(ctx, NewBookingEvent(EventBookingCreated, order, user, time.Now())))
		require.NoError(t, hook.AfterCommit(ctx, NewBookingEvent(EventBookingCancelled, order, user, time.Now())))

		assert.Len(t, mailer.SentOfKind("invoice"), 1)
		assert.Equal(t, []BookingEventType{EventBookingCreated, EventBookingCancelled}, publisher.Types())
	})

	t.Run("failures are joined", func(t *testing.T) {
		mailer, publisher := NewMockMailer(), NewMockEventPublisher()
		mailer.Err = errors.New("mail down")
		publisher.Err = errors.New("broker down")
		hook := NewNotificationHook(mailer, publisher, zap.NewNop())

		err := hook.AfterCommit(ctx, NewBookingEvent(EventBookingCreated, order, user, time.Now()))
		require.Error(t, err)
		assert.ErrorIs(t, err, mailer.Err)
		assert.ErrorIs(t, err, publisher.Err)
		assert.Contains(t, err.Error(), "order 9")
	})

	t.Run("slow broker does not hold the request", func(t *testing.T) {
		publisher := &stalledPublisher{}
		hook := NewNotificationHook(NewMockMailer(), publisher, zap.NewNop())
		hook.publishTimeout = 20 * time.Millisecond

		reqCtx, cancelReq := context.WithCancel(ctx)
		cancelReq()

		start := time.Now()
		err := hook.AfterCommit(reqCtx, NewBookingEvent(EventBookingCancelled, order, user, time.Now()))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.NoError(t, publisher.startErr, "publishing ignores the request cancellation")
	})

	t.Run("hook funcs", func(t *testing.T) {
		var seen []BookingEventType
		hook := BookingHookFunc(func(ctx context.Context, e BookingEvent) error {
			seen = append(seen, e.Type)
			return nil
		})
		require.NoError(t, hook.AfterCommit(ctx, NewBookingEvent(EventFinePaid, order, nil, time.Now())))
		assert.Equal(t, []BookingEventType{EventFinePaid}, seen)
	})
}

func TestBookingInvoiceBody(t *testing.T) {
	order, user := sampleOrder()

	subject, body := BookingInvoiceBody(*user, *order)
	assert.Equal(t, "Invoice for booking #9", subject)
	for _, line := range []string{
		"Hi Dev,",
		"Car: Maruti Swift KA05MN1234",
		"From: 2030-01-01",
		"To: 2030-01-03",
		"Days: 3",
		"Amount: 4500.00",
	} {
		assert.True(t, strings.Contains(body, line), "missing %q in\n%s", line, body)
	}
	assert.Equal(t, "<p>a<br>b</p>", toHTML("a\nb"))
}

// stalledPublisher blocks until its context ends
type stalledPublisher struct {
	startErr error
}

func (p *stalledPublisher) Publish(ctx context.Context, event BookingEvent) error {
	p.startErr = ctx.Err()
	<-ctx.Done()
	return ctx.Err()
}

func (p *stalledPublisher) Close() error { return nil }
