package testutil

import (
	"testing"
	"time"

	"github.com/carrental/car-rental-api/config"
	"github.com/carrental/car-rental-api/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services bundles the mocked collaborators installed by SetupServices
type Services struct {
	Payments  *services.MockPaymentGateway
	Mailer    *services.MockMailer
	Publisher *services.MockEventPublisher
	S3        *services.MockS3Service
	Orders    *services.OrderService
}

// SetupServices wires every service against db with in-memory gateways and
// installs them as the process-wide instances the controllers use. now
// pins the clock; nil means time.Now.
func SetupServices(t *testing.T, db *gorm.DB, cfg *config.Config, now func() time.Time) *Services {
	t.Helper()

	if now == nil {
		now = time.Now
	}
	logger := zap.NewNop()

	payments := services.NewMockPaymentGateway()
	payments.SetAsMockForTesting()
	mailer := services.NewMockMailer()
	publisher := services.NewMockEventPublisher()
	s3 := services.NewMockS3Service()

	discounts := services.NewDiscountService(db, payments, logger)
	services.SetDiscountService(discounts)

	orders := services.NewOrderService(db, payments, discounts, services.CheckoutSettings{
		Currency:   cfg.PaymentCurrency,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}, logger,
		services.WithClock(now),
		services.WithHooks(services.NewNotificationHook(mailer, publisher, logger)),
	)
	services.SetOrderService(orders)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	services.SetAuthService(services.NewAuthService(db, tokens, mailer, cfg.PasswordResetURL, logger))
	services.SetAvailabilityService(services.NewAvailabilityService(db, now))

	images := services.NewS3ImageService(s3)
	services.SetImageService(images)
	services.SetCatalogService(services.NewCatalogService(db, images, logger))

	return &Services{
		Payments:  payments,
		Mailer:    mailer,
		Publisher: publisher,
		S3:        s3,
		Orders:    orders,
	}
}
