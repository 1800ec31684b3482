package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/carrental/car-rental-api/models"
	"github.com/carrental/car-rental-api/services"
	"github.com/carrental/car-rental-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentRouter() *gin.Engine {
	router := newRouter(nil)
	router.GET("/payments/config", GetPaymentConfig)
	router.POST("/payments/webhook", PaymentWebhook)
	return router
}

func postWebhook(router *gin.Engine, signature string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func webhookPayload(t *testing.T, eventType string, orderID uint, kind services.PaymentKind, intent string) string {
	t.Helper()
	payload := services.MockWebhookPayload{
		ID:              "evt_" + strconv.FormatUint(uint64(orderID), 10),
		Type:            eventType,
		PaymentIntentID: intent,
		Metadata:        map[string]string{},
	}
	if orderID != 0 {
		payload.Metadata[services.MetaOrderID] = strconv.FormatUint(uint64(orderID), 10)
		payload.Metadata[services.MetaKind] = string(kind)
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(raw)
}

func TestGetPaymentConfig(t *testing.T) {
	setupControllerTest(t, nil)

	w := performRequest(paymentRouter(), "GET", "/payments/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		PublicKey string `json:"public_key"`
		Currency  string `json:"currency"`
	}
	decodeData(t, w, &body)
	assert.Equal(t, "pk_test", body.PublicKey)
	assert.Equal(t, "inr", body.Currency)
}

func TestPaymentWebhook_BookingCheckout(t *testing.T) {
	db, svc := setupControllerTest(t, fixedClock(orderTestDay))
	user := testutil.CreateUser(t, db, false)
	car := testutil.CreateCar(t, db, 1000)
	order := testutil.CreateOrder(t, db, user, car, models.MustParseDate("2030-03-12"), models.MustParseDate("2030-03-13"))
	router := paymentRouter()
	secret := svc.Payments.WebhookSecret

	body := webhookPayload(t, services.EventCheckoutCompleted, order.ID, services.PaymentKindBooking, "pi_123")
	w := postWebhook(router, secret, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"received":true}`, w.Body.String())

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.True(t, stored.Paid)
	assert.Equal(t, "pi_123", stored.PaymentIntentID)

	// Redelivery is acknowledged without a second transition
	w = postWebhook(router, secret, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []services.BookingEventType{services.EventBookingPaid}, svc.Publisher.Types())

	t.Run("refund event marks the order refunded", func(t *testing.T) {
		w := postWebhook(router, secret, webhookPayload(t, services.EventChargeRefunded, 0, "", "pi_123"))
		require.Equal(t, http.StatusOK, w.Code)

		var refunded models.Order
		require.NoError(t, db.First(&refunded, order.ID).Error)
		assert.True(t, refunded.Refunded)
	})
}

func TestPaymentWebhook_LatePaymentOnCancelledOrder(t *testing.T) {
	db, svc := setupControllerTest(t, fixedClock(orderTestDay))
	user := testutil.CreateUser(t, db, false)
	car := testutil.CreateCar(t, db, 1000)
	order := testutil.CreateOrder(t, db, user, car, models.MustParseDate("2030-03-12"), models.MustParseDate("2030-03-13"),
		func(o *models.Order) { o.Cancelled = true })

	w := postWebhook(paymentRouter(), svc.Payments.WebhookSecret,
		webhookPayload(t, services.EventCheckoutCompleted, order.ID, services.PaymentKindBooking, "pi_late"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.True(t, stored.Paid)
	assert.True(t, stored.Refunded)
	assert.Equal(t, []string{"pi_late"}, svc.Payments.Refunds)
}

func TestPaymentWebhook_FineCheckout(t *testing.T) {
	db, svc := setupControllerTest(t, fixedClock(orderTestDay))
	user := testutil.CreateUser(t, db, false)
	car := testutil.CreateCar(t, db, 3000)
	start, end := models.MustParseDate("2030-03-01"), models.MustParseDate("2030-03-07")
	fined := testutil.CreateOrder(t, db, user, car, start, end, func(o *models.Order) {
		o.Returned = true
		o.FineGenerated = true
		o.FineAmount = decimal.NewFromInt(9900)
	})
	clean := testutil.CreateOrder(t, db, user, car, start, end, func(o *models.Order) { o.Returned = true })
	router := paymentRouter()
	secret := svc.Payments.WebhookSecret

	w := postWebhook(router, secret, webhookPayload(t, services.EventCheckoutCompleted, fined.ID, services.PaymentKindFine, "pi_fine"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Order
	require.NoError(t, db.First(&stored, fined.ID).Error)
	assert.True(t, stored.FinePaid)
	assert.Equal(t, []services.BookingEventType{services.EventFinePaid}, svc.Publisher.Types())

	w = postWebhook(router, secret, webhookPayload(t, services.EventCheckoutCompleted, clean.ID, services.PaymentKindFine, "pi_none"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_FINE_GENERATED", decodeResponse(t, w).code())
}

func TestPaymentWebhook_Rejections(t *testing.T) {
	_, svc := setupControllerTest(t, nil)
	router := paymentRouter()
	secret := svc.Payments.WebhookSecret

	testCases := []struct {
		name           string
		signature      string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{"bad signature", "t=1,v1=deadbeef", `{"type":"checkout.session.completed"}`, http.StatusBadRequest, "INVALID_SIGNATURE"},
		{"missing signature", "", `{"type":"checkout.session.completed"}`, http.StatusBadRequest, "INVALID_SIGNATURE"},
		{"malformed payload", secret, `not json`, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"unknown order", secret, webhookPayload(t, services.EventCheckoutCompleted, 9999, services.PaymentKindBooking, "pi_x"), http.StatusNotFound, "ORDER_NOT_FOUND"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := postWebhook(router, tc.signature, tc.body)
			assert.Equal(t, tc.expectedStatus, w.Code)
			assert.Equal(t, tc.expectedCode, decodeResponse(t, w).code())
		})
	}

	acknowledged := []struct {
		name string
		body string
	}{
		{"unhandled event type", `{"id":"evt_1","type":"customer.created"}`},
		{"checkout without order metadata", webhookPayload(t, services.EventCheckoutCompleted, 0, "", "pi_y")},
		{"refund for an unknown payment", webhookPayload(t, services.EventChargeRefunded, 0, "", "pi_unknown")},
	}
	for _, tc := range acknowledged {
		t.Run(tc.name, func(t *testing.T) {
			w := postWebhook(router, secret, tc.body)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}
