package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/carrental/car-rental-api/models"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer delivers transactional email
type Mailer interface {
	SendBookingInvoice(ctx context.Context, user models.User, order models.Order) error
	SendPasswordReset(ctx context.Context, user models.User, resetLink string) error
	SendOverdueReminder(ctx context.Context, user models.User, order models.Order) error
}

// SendGridMailer implements Mailer using the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *zap.Logger
}

// NewSendGridMailer creates a SendGrid-backed mailer
func NewSendGridMailer(apiKey, fromAddress, fromName string, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
		logger: logger,
	}
}

func (m *SendGridMailer) send(ctx context.Context, to models.User, subject, plain, html string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(to.FullName(), to.Email), plain, html)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}

	m.logger.Info("email sent",
		zap.String("subject", subject),
		zap.Uint("user_id", to.ID),
		zap.Int("status", response.StatusCode))
	return nil
}

// SendBookingInvoice emails the booking summary after an order is created
func (m *SendGridMailer) SendBookingInvoice(ctx context.Context, user models.User, order models.Order) error {
	subject, plain := BookingInvoiceBody(user, order)
	return m.send(ctx, user, subject, plain, toHTML(plain))
}

// SendPasswordReset emails a password reset link
func (m *SendGridMailer) SendPasswordReset(ctx context.Context, user models.User, resetLink string) error {
	subject := "Reset your password"
	plain := fmt.Sprintf("Hi %s,\n\nUse the link below to reset your password. It expires in one hour.\n\n%s\n\nIf you did not request this, ignore this email.",
		user.FirstName, resetLink)
	return m.send(ctx, user, subject, plain, toHTML(plain))
}

// SendOverdueReminder reminds a renter that a car is past its return date
func (m *SendGridMailer) SendOverdueReminder(ctx context.Context, user models.User, order models.Order) error {
	subject := fmt.Sprintf("Booking #%d is overdue", order.ID)
	plain := fmt.Sprintf("Hi %s,\n\nYour booking of %s ended on %s and the car has not been returned yet. Late returns are charged per day plus an increasing penalty.\n\nPlease return the car as soon as possible.",
		user.FirstName, order.Car.DisplayName(), order.EndDate)
	return m.send(ctx, user, subject, plain, toHTML(plain))
}

// BookingInvoiceBody renders the invoice subject and plain-text body
func BookingInvoiceBody(user models.User, order models.Order) (string, string) {
	subject := fmt.Sprintf("Invoice for booking #%d", order.ID)
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThank you for your booking.\n\n", user.FirstName)
	fmt.Fprintf(&b, "Booking: #%d\n", order.ID)
	fmt.Fprintf(&b, "Car: %s\n", order.Car.DisplayName())
	fmt.Fprintf(&b, "From: %s\n", order.StartDate)
	fmt.Fprintf(&b, "To: %s\n", order.EndDate)
	fmt.Fprintf(&b, "Days: %d\n", order.DayCount())
	fmt.Fprintf(&b, "Amount: %s\n", order.Price.StringFixed(moneyScale))
	return subject, b.String()
}

func toHTML(plain string) string {
	return "<p>" + strings.ReplaceAll(plain, "\n", "<br>") + "</p>"
}

// LogMailer writes emails to the log instead of sending them. It is used
// when no SendGrid key is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a mailer that only logs
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendBookingInvoice(ctx context.Context, user models.User, order models.Order) error {
	subject, _ := BookingInvoiceBody(user, order)
	m.logger.Info("email skipped", zap.String("subject", subject), zap.String("to", user.Email))
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, user models.User, resetLink string) error {
	m.logger.Info("email skipped", zap.String("subject", "password reset"), zap.String("to", user.Email))
	return nil
}

func (m *LogMailer) SendOverdueReminder(ctx context.Context, user models.User, order models.Order) error {
	m.logger.Info("email skipped", zap.String("subject", "overdue reminder"), zap.Uint("order_id", order.ID))
	return nil
}
