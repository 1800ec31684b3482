package services

import (
	"context"
	"sync"

	"github.com/carrental/car-rental-api/models"
)

// SentEmail is a message captured by MockMailer
type SentEmail struct {
	Kind    string
	To      string
	OrderID uint
	Link    string
}

// MockMailer is a mock implementation of Mailer for testing
type MockMailer struct {
	mu   sync.RWMutex
	sent []SentEmail
	Err  error
}

// NewMockMailer creates a new mock mailer
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) record(email SentEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *MockMailer) SendBookingInvoice(ctx context.Context, user models.User, order models.Order) error {
	return m.record(SentEmail{Kind: "invoice", To: user.Email, OrderID: order.ID})
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, user models.User, resetLink string) error {
	return m.record(SentEmail{Kind: "password_reset", To: user.Email, Link: resetLink})
}

func (m *MockMailer) SendOverdueReminder(ctx context.Context, user models.User, order models.Order) error {
	return m.record(SentEmail{Kind: "overdue", To: user.Email, OrderID: order.ID})
}

// Sent returns a copy of all captured emails
func (m *MockMailer) Sent() []SentEmail {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentOfKind returns captured emails of one kind
func (m *MockMailer) SentOfKind(kind string) []SentEmail {
	var out []SentEmail
	for _, e := range m.Sent() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
