package services

import (
	"context"
	"strconv"

	"github.com/carrental/car-rental-api/models"
	"github.com/shopspring/decimal"
)

// PaymentKind tells the webhook handler what a completed checkout paid for
type PaymentKind string

const (
	PaymentKindBooking PaymentKind = "booking"
	PaymentKindFine    PaymentKind = "fine"
)

// Webhook event types handled by the payment controller
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventChargeRefunded    = "charge.refunded"
)

// Metadata keys attached to checkout sessions
const (
	MetaKind      = "kind"
	MetaOrderID   = "order_id"
	MetaUserID    = "user"
	MetaCarID     = "car"
	MetaStartDate = "start_date"
	MetaEndDate   = "end_date"
	MetaFine      = "fine"
)

// CheckoutRequest describes a single-line-item hosted checkout
type CheckoutRequest struct {
	Kind          PaymentKind
	OrderID       uint
	UserID        uint
	CarID         uint
	StartDate     models.Date
	EndDate       models.Date
	Description   string
	Amount        decimal.Decimal
	Currency      string
	CouponID      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Metadata is attached to the session and its product so the webhook can
// resolve the order
func (r CheckoutRequest) Metadata() map[string]string {
	meta := map[string]string{
		MetaKind:    string(r.Kind),
		MetaOrderID: strconv.FormatUint(uint64(r.OrderID), 10),
		MetaUserID:  strconv.FormatUint(uint64(r.UserID), 10),
		MetaFine:    strconv.FormatBool(r.Kind == PaymentKindFine),
	}
	if r.Kind == PaymentKindBooking {
		meta[MetaCarID] = strconv.FormatUint(uint64(r.CarID), 10)
		meta[MetaStartDate] = r.StartDate.String()
		meta[MetaEndDate] = r.EndDate.String()
	}
	return meta
}

// CheckoutSession is the gateway-hosted payment page created for an order
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// WebhookEvent is a verified, decoded gateway callback
type WebhookEvent struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	Metadata        map[string]string
}

// OrderID returns the order referenced by the event metadata
func (e WebhookEvent) OrderID() (uint, bool) {
	raw, ok := e.Metadata[MetaOrderID]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Kind returns what the completed checkout paid for
func (e WebhookEvent) Kind() PaymentKind {
	if e.Metadata[MetaFine] == "true" || e.Metadata[MetaKind] == string(PaymentKindFine) {
		return PaymentKindFine
	}
	return PaymentKindBooking
}

// PaymentGateway is the external payment provider
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreateRefund(ctx context.Context, paymentIntentID string) (string, error)
	CreateCoupon(ctx context.Context, name string, percentOff float64) (string, error)
	DeleteCoupon(ctx context.Context, couponID string) error
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

var paymentGatewayInstance PaymentGateway

// GetPaymentGateway returns the process-wide payment gateway
func GetPaymentGateway() PaymentGateway {
	return paymentGatewayInstance
}

// SetPaymentGateway sets the process-wide payment gateway
func SetPaymentGateway(gateway PaymentGateway) {
	paymentGatewayInstance = gateway
}
