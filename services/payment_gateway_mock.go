package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// MockPaymentGateway is a mock implementation of PaymentGateway for testing
type MockPaymentGateway struct {
	mu sync.RWMutex

	Sessions []CheckoutRequest
	Refunds  []string
	Coupons  map[string]float64

	// Set these to simulate gateway failures
	CheckoutErr error
	RefundErr   error
	CouponErr   error

	// WebhookSecret is compared verbatim to the signature argument of ParseWebhook
	WebhookSecret string

	nextID int
}

// NewMockPaymentGateway creates a new mock payment gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		Coupons:       make(map[string]float64),
		WebhookSecret: "whsec_test",
	}
}

// SetAsMockForTesting sets this mock as the global payment gateway for testing
func (m *MockPaymentGateway) SetAsMockForTesting() {
	SetPaymentGateway(m)
}

func (m *MockPaymentGateway) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s_mock_%d", prefix, m.nextID)
}

// CreateCheckoutSession records the request and returns a fake session
func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CheckoutErr != nil {
		return nil, m.CheckoutErr
	}
	m.Sessions = append(m.Sessions, req)
	id := m.newID("cs")
	return &CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

// CreateRefund records a refund for the payment intent
func (m *MockPaymentGateway) CreateRefund(ctx context.Context, paymentIntentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RefundErr != nil {
		return "", m.RefundErr
	}
	m.Refunds = append(m.Refunds, paymentIntentID)
	return m.newID("re"), nil
}

// CreateCoupon stores a coupon in memory
func (m *MockPaymentGateway) CreateCoupon(ctx context.Context, name string, percentOff float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CouponErr != nil {
		return "", m.CouponErr
	}
	id := m.newID("coupon")
	m.Coupons[id] = percentOff
	return id, nil
}

// DeleteCoupon removes a coupon from memory
func (m *MockPaymentGateway) DeleteCoupon(ctx context.Context, couponID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CouponErr != nil {
		return m.CouponErr
	}
	delete(m.Coupons, couponID)
	return nil
}

// ParseWebhook accepts the payload when signature equals WebhookSecret. The
// payload uses the MockWebhookPayload shape.
func (m *MockPaymentGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature != m.WebhookSecret {
		return nil, ErrWebhookSignature
	}
	var p MockWebhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.New("invalid webhook payload")
	}
	return &WebhookEvent{
		ID:              p.ID,
		Type:            p.Type,
		SessionID:       p.SessionID,
		PaymentIntentID: p.PaymentIntentID,
		Metadata:        p.Metadata,
	}, nil
}

// MockWebhookPayload is the body accepted by MockPaymentGateway.ParseWebhook
type MockWebhookPayload struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	SessionID       string            `json:"session_id"`
	PaymentIntentID string            `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
}

// SessionCount returns how many checkout sessions were created
func (m *MockPaymentGateway) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Sessions)
}

// LastSession returns the most recent checkout request
func (m *MockPaymentGateway) LastSession() (CheckoutRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.Sessions) == 0 {
		return CheckoutRequest{}, false
	}
	return m.Sessions[len(m.Sessions)-1], true
}

// RefundCount returns how many refunds were issued
func (m *MockPaymentGateway) RefundCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Refunds)
}
