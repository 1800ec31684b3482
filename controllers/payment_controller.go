package controllers

import (
	"io"
	"net/http"

	"github.com/carrental/car-rental-api/config"
	"github.com/carrental/car-rental-api/metrics"
	"github.com/carrental/car-rental-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps the webhook payload read into memory
const maxWebhookBody = 64 * 1024

// GetPaymentConfig handles GET /api/v1/payments/config
func GetPaymentConfig(c *gin.Context) {
	cfg := config.GetConfig()
	respondSuccess(c, http.StatusOK, "", gin.H{
		"public_key": cfg.StripePublishableKey,
		"currency":   cfg.PaymentCurrency,
	})
}

// PaymentWebhook handles POST /api/v1/payments/webhook. Completed booking and
// fine checkouts mark the order paid, and refunded charges mark it refunded.
// Unknown event types are acknowledged and ignored.
func PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Could not read request body.")
		return
	}

	event, err := services.GetPaymentGateway().ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if _, ok := services.AsDomainError(err); ok {
			respondError(c, err)
			return
		}
		respondErrorCode(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Could not decode webhook event.")
		return
	}
	metrics.PaymentWebhookEventsTotal.WithLabelValues(event.Type).Inc()

	ctx := c.Request.Context()
	orders := services.GetOrderService()
	logger := zap.L().With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	switch event.Type {
	case services.EventCheckoutCompleted:
		orderID, ok := event.OrderID()
		if !ok {
			logger.Warn("checkout event without order id")
			break
		}
		if event.Kind() == services.PaymentKindFine {
			_, err = orders.ConfirmFinePayment(ctx, orderID)
		} else {
			_, err = orders.ConfirmPayment(ctx, orderID, event.PaymentIntentID)
		}
		if err != nil {
			logger.Error("failed to apply checkout event", zap.Uint("order_id", orderID), zap.Error(err))
			respondError(c, err)
			return
		}
		logger.Info("checkout completed", zap.Uint("order_id", orderID), zap.String("kind", string(event.Kind())))

	case services.EventChargeRefunded:
		updated, err := orders.MarkRefunded(ctx, event.PaymentIntentID)
		if err != nil {
			respondError(c, err)
			return
		}
		logger.Info("charge refunded", zap.Int64("orders_updated", updated))

	default:
		logger.Debug("ignoring webhook event")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
}
