package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway implements PaymentGateway with Stripe Checkout.
// Each gateway owns its client, so the secret key never lives in
// package-level SDK state.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a Stripe client for secretKey
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// CreateCheckoutSession creates a hosted payment-mode checkout with one line item
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	metadata := req.Metadata()

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(MinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:     stripe.String(req.Description),
						Metadata: metadata,
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(metadata[MetaOrderID]),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.CouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(req.CouponID)},
		}
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CreateRefund refunds the full amount of a payment intent
func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create refund: %w", err)
	}
	return refund.ID, nil
}

// CreateCoupon creates a single-use percentage-off coupon
func (g *StripeGateway) CreateCoupon(ctx context.Context, name string, percentOff float64) (string, error) {
	params := &stripe.CouponParams{
		Name:       stripe.String(name),
		PercentOff: stripe.Float64(percentOff),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx

	coupon, err := g.api.Coupons.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create coupon: %w", err)
	}
	return coupon.ID, nil
}

// DeleteCoupon removes a coupon from Stripe
func (g *StripeGateway) DeleteCoupon(ctx context.Context, couponID string) error {
	params := &stripe.CouponParams{}
	params.Context = ctx

	if _, err := g.api.Coupons.Del(couponID, params); err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the events
// the service reacts to
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, ErrWebhookSignature
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.SessionID = session.ID
		out.Metadata = session.Metadata
		if session.PaymentIntent != nil {
			out.PaymentIntentID = session.PaymentIntent.ID
		}
	case EventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("failed to decode charge: %w", err)
		}
		out.Metadata = charge.Metadata
		if charge.PaymentIntent != nil {
			out.PaymentIntentID = charge.PaymentIntent.ID
		}
	}

	return out, nil
}
