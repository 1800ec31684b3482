package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carrental/car-rental-api/metrics"
	"github.com/carrental/car-rental-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor is the authenticated caller of an order operation
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// CheckoutSettings configures the hosted checkout pages
type CheckoutSettings struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// CreateOrderInput is a validated booking request
type CreateOrderInput struct {
	CarID      uint
	User       models.User
	StartDate  models.Date
	EndDate    models.Date
	CouponCode string
}

// CheckoutResult is a newly created order with its payment session
type CheckoutResult struct {
	Order   models.Order    `json:"order"`
	Session CheckoutSession `json:"checkout"`
}

// OrderService drives the booking lifecycle: pending -> cancelled or
// pending -> returned. Every transition runs in one transaction and its
// hooks run after commit.
type OrderService struct {
	db        *gorm.DB
	payments  PaymentGateway
	discounts *DiscountService
	checkout  CheckoutSettings
	hooks     []BookingHook
	logger    *zap.Logger
	now       func() time.Time
}

// OrderOption customizes an OrderService
type OrderOption func(*OrderService)

// WithClock overrides the time source used for "today"
func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

// WithHooks registers post-commit hooks
func WithHooks(hooks ...BookingHook) OrderOption {
	return func(s *OrderService) { s.hooks = append(s.hooks, hooks...) }
}

// NewOrderService creates the order lifecycle service
func NewOrderService(db *gorm.DB, payments PaymentGateway, discounts *DiscountService, checkout CheckoutSettings, logger *zap.Logger, opts ...OrderOption) *OrderService {
	s := &OrderService{
		db:        db,
		payments:  payments,
		discounts: discounts,
		checkout:  checkout,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var orderServiceInstance *OrderService

// GetOrderService returns the process-wide order service
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the process-wide order service
func SetOrderService(s *OrderService) {
	orderServiceInstance = s
}

func (s *OrderService) today() models.Date {
	return models.Today(s.now())
}

// lockCar loads the car row with FOR UPDATE so concurrent bookings of the
// same car serialize on it. Brand and type are loaded without locking.
func lockCar(tx *gorm.DB, carID uint) (*models.Car, error) {
	var car models.Car
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&car, carID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	if err := tx.Limit(1).Find(&car.Brand, car.BrandID).Error; err != nil {
		return nil, err
	}
	if err := tx.Limit(1).Find(&car.Type, car.TypeID).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

// lockOrder loads the order row with FOR UPDATE
func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// loadCar fetches a car including soft-deleted rows, since past orders keep
// pointing at retired cars
func loadCar(db *gorm.DB, carID uint) (models.Car, error) {
	var car models.Car
	err := db.Unscoped().Preload("Brand", unscoped).Preload("Type", unscoped).First(&car, carID).Error
	return car, err
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func authorize(order *models.Order, actor Actor) error {
	if actor.IsAdmin || order.UserID == actor.UserID {
		return nil
	}
	return ErrNotOrderOwner
}

// Create books a car. The car row is locked while the overlap check runs so
// two requests for intersecting dates cannot both succeed. The checkout
// session is created inside the transaction; if the gateway fails nothing is
// persisted.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*CheckoutResult, error) {
	today := s.today()
	if err := ValidateDateRange(in.StartDate, in.EndDate, today); err != nil {
		return nil, err
	}

	discount, err := s.discounts.Validate(ctx, in.CouponCode, in.User.ID)
	if err != nil {
		return nil, err
	}

	var result CheckoutResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		car, err := lockCar(tx, in.CarID)
		if err != nil {
			return err
		}
		if !car.Bookable() {
			return ErrBookingUnavailable
		}

		overlap, err := HasOverlap(tx, car.ID, in.StartDate, in.EndDate, 0)
		if err != nil {
			return err
		}
		if overlap {
			metrics.BookingConflictsTotal.Inc()
			return ErrBookingUnavailable
		}

		order := models.Order{
			CarID:     car.ID,
			UserID:    in.User.ID,
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			OrderDate: today,
			Price:     QuotePrice(car.Price, in.StartDate, in.EndDate),
		}
		req := CheckoutRequest{
			Kind:          PaymentKindBooking,
			UserID:        in.User.ID,
			CarID:         car.ID,
			StartDate:     in.StartDate,
			EndDate:       in.EndDate,
			Description:   car.DisplayName(),
			Amount:        order.Price,
			Currency:      s.checkout.Currency,
			CustomerEmail: in.User.Email,
			SuccessURL:    s.checkout.SuccessURL,
			CancelURL:     s.checkout.CancelURL,
		}
		if discount != nil {
			order.DiscountID = &discount.ID
			req.CouponID = discount.GatewayCouponID
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		req.OrderID = order.ID
		session, err := s.payments.CreateCheckoutSession(ctx, req)
		if err != nil {
			s.logger.Error("checkout session creation failed", zap.Uint("order_id", order.ID), zap.Error(err))
			metrics.OperationErrorsTotal.WithLabelValues("checkout").Inc()
			return ErrPaymentGateway
		}

		if err := tx.Model(&order).Update("payment_session_id", session.ID).Error; err != nil {
			return fmt.Errorf("failed to store payment session: %w", err)
		}

		order.Car = *car
		order.Discount = discount
		order.RefreshStatus()
		result = CheckoutResult{Order: order, Session: *session}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreatedTotal.Inc()
	user := in.User
	s.afterCommit(ctx, EventBookingCreated, &result.Order, &user)
	return &result, nil
}

// Get returns an order the actor is allowed to see
func (s *OrderService) Get(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Car", unscoped).
		Preload("Car.Brand", unscoped).
		Preload("Car.Type", unscoped).
		Preload("Discount", unscoped).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := authorize(&order, actor); err != nil {
		return nil, err
	}
	return &order, nil
}

// Cancel cancels a pending order before its start date. A paid order is
// refunded first and stays pending when the refund fails.
func (s *OrderService) Cancel(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	today := s.today()

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(o, actor); err != nil {
			return err
		}
		if o.Cancelled {
			return ErrAlreadyCancelled
		}
		if o.Returned || o.StartDate.Before(today) {
			return ErrTooLateToCancel
		}

		if o.Paid && o.PaymentIntentID != "" {
			refundID, err := s.payments.CreateRefund(ctx, o.PaymentIntentID)
			if err != nil {
				s.logger.Error("refund failed", zap.Uint("order_id", o.ID), zap.Error(err))
				metrics.OperationErrorsTotal.WithLabelValues("refund").Inc()
				return ErrRefundFailed
			}
			s.logger.Info("refund issued", zap.Uint("order_id", o.ID), zap.String("refund_id", refundID))
			o.Refunded = true
		}

		o.Cancelled = true
		if err := tx.Model(o).Select("cancelled", "refunded").Updates(o).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		o.RefreshStatus()
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCancelledTotal.Inc()
	s.afterCommit(ctx, EventBookingCancelled, order, nil)
	return order, nil
}

// Return closes out a rental. returnDate defaults to today and may not lie in
// the future. A late return levies the fine and sets fine_generated.
func (s *OrderService) Return(ctx context.Context, orderID uint, actor Actor, returnDate *models.Date) (*models.Order, error) {
	today := s.today()
	returned := today
	if returnDate != nil {
		returned = *returnDate
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(o, actor); err != nil {
			return err
		}
		if o.Cancelled || o.Returned || returned.Before(o.StartDate) || returned.After(today) {
			return ErrInvalidReturn
		}

		car, err := loadCar(tx, o.CarID)
		if err != nil {
			return fmt.Errorf("failed to load car: %w", err)
		}

		if late := LateDays(o.EndDate, returned); late > 0 {
			o.FineAmount = ComputeFine(car.Price, late)
			o.FineGenerated = true
		}
		o.Returned = true
		o.ReturnDate = &returned

		if err := tx.Model(o).Select("returned", "return_date", "fine_amount", "fine_generated").Updates(o).Error; err != nil {
			return fmt.Errorf("failed to return order: %w", err)
		}
		o.Car = car
		o.RefreshStatus()
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CarsReturnedTotal.Inc()
	if order.FineGenerated {
		metrics.FinesGeneratedTotal.Inc()
	}
	s.afterCommit(ctx, EventCarReturned, order, nil)
	return order, nil
}

// CreateFineCheckout starts a checkout for an order's outstanding fine
func (s *OrderService) CreateFineCheckout(ctx context.Context, orderID uint, actor Actor) (*CheckoutSession, error) {
	order, err := s.Get(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	if !order.FineGenerated {
		return nil, ErrNoFineGenerated
	}
	if order.FinePaid {
		return nil, ErrFineAlreadyPaid
	}

	var email string
	var user models.User
	if err := s.db.WithContext(ctx).Unscoped().Select("email").First(&user, order.UserID).Error; err == nil {
		email = user.Email
	}

	session, err := s.payments.CreateCheckoutSession(ctx, CheckoutRequest{
		Kind:          PaymentKindFine,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Description:   "fine for: " + order.Car.DisplayName(),
		Amount:        order.FineAmount,
		Currency:      s.checkout.Currency,
		CustomerEmail: email,
		SuccessURL:    s.checkout.SuccessURL,
		CancelURL:     s.checkout.CancelURL,
	})
	if err != nil {
		s.logger.Error("fine checkout creation failed", zap.Uint("order_id", order.ID), zap.Error(err))
		metrics.OperationErrorsTotal.WithLabelValues("fine_checkout").Inc()
		return nil, ErrPaymentGateway
	}

	if err := s.db.WithContext(ctx).Model(order).Update("fine_session_id", session.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to store fine session: %w", err)
	}
	return session, nil
}

// ConfirmPayment records a completed booking checkout. A payment that lands
// after the order was cancelled is refunded right away. Repeated deliveries
// are no-ops.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uint, paymentIntentID string) (*models.Order, error) {
	var order *models.Order
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if o.Paid {
			return nil
		}

		o.Paid = true
		o.PaymentIntentID = paymentIntentID
		if o.Cancelled && !o.Refunded && paymentIntentID != "" {
			if _, err := s.payments.CreateRefund(ctx, paymentIntentID); err != nil {
				s.logger.Error("refund of late payment failed", zap.Uint("order_id", o.ID), zap.Error(err))
				metrics.OperationErrorsTotal.WithLabelValues("refund").Inc()
				return ErrRefundFailed
			}
			o.Refunded = true
		}

		changed = true
		return tx.Model(o).Select("paid", "payment_intent_id", "refunded").Updates(o).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.afterCommit(ctx, EventBookingPaid, order, nil)
	}
	return order, nil
}

// ConfirmFinePayment marks an order's fine as paid. Repeated deliveries are no-ops.
func (s *OrderService) ConfirmFinePayment(ctx context.Context, orderID uint) (*models.Order, error) {
	var order *models.Order
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if !o.FineGenerated {
			return ErrNoFineGenerated
		}
		if o.FinePaid {
			return nil
		}
		o.FinePaid = true
		changed = true
		return tx.Model(o).Update("fine_paid", true).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.afterCommit(ctx, EventFinePaid, order, nil)
	}
	return order, nil
}

// MarkRefunded flags the order paid through paymentIntentID as refunded
func (s *OrderService) MarkRefunded(ctx context.Context, paymentIntentID string) (int64, error) {
	if paymentIntentID == "" {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_intent_id = ? AND refunded = ?", paymentIntentID, false).
		Update("refunded", true)
	return result.RowsAffected, result.Error
}

func (s *OrderService) listForUser(ctx context.Context, userID uint, scope func(*gorm.DB) *gorm.DB) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Scopes(scope).
		Where("user_id = ?", userID).
		Preload("Car", unscoped).
		Preload("Car.Brand", unscoped).
		Preload("Car.Type", unscoped).
		Order("start_date DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// ListBookings returns the user's orders that have not been returned.
// Cancelled bookings stay in this list with status "cancelled".
func (s *OrderService) ListBookings(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.listForUser(ctx, userID, func(db *gorm.DB) *gorm.DB {
		return db.Where("returned = ?", false)
	})
}

// ListHistory returns the user's returned orders
func (s *OrderService) ListHistory(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.listForUser(ctx, userID, func(db *gorm.DB) *gorm.DB {
		return db.Where("returned = ?", true)
	})
}

// ListPendingFines returns the user's orders with an unpaid fine
func (s *OrderService) ListPendingFines(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.listForUser(ctx, userID, func(db *gorm.DB) *gorm.DB {
		return db.Where("fine_generated = ? AND fine_paid = ?", true, false)
	})
}

// ListOverdue returns paid, pending orders whose end date is before today
func (s *OrderService) ListOverdue(ctx context.Context, today models.Date) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("paid = ? AND returned = ? AND cancelled = ? AND end_date < ?", true, false, false, today).
		Preload("User", unscoped).
		Preload("Car", unscoped).
		Preload("Car.Brand", unscoped).
		Order("end_date ASC").
		Find(&orders).Error
	return orders, err
}

// ExpireUnpaid cancels pending orders created before cutoff whose checkout
// was never completed, releasing the car for other renters
func (s *OrderService) ExpireUnpaid(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []models.Order
	if err := s.db.WithContext(ctx).
		Where("paid = ? AND cancelled = ? AND returned = ? AND created_at < ?", false, false, false, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		order := &stale[i]
		result := s.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND paid = ? AND cancelled = ?", order.ID, false, false).
			Update("cancelled", true)
		if result.Error != nil {
			return expired, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		order.Cancelled = true
		order.RefreshStatus()
		expired++
		s.afterCommit(ctx, EventBookingExpired, order, nil)
	}
	return expired, nil
}

// afterCommit runs hooks for a committed transition. The renter is loaded
// when user is nil.
func (s *OrderService) afterCommit(ctx context.Context, t BookingEventType, order *models.Order, user *models.User) {
	if len(s.hooks) == 0 {
		return
	}
	if user == nil {
		var u models.User
		if err := s.db.WithContext(ctx).Unscoped().First(&u, order.UserID).Error; err == nil {
			user = &u
		}
	}

	event := NewBookingEvent(t, order, user, s.now())
	for _, hook := range s.hooks {
		if err := hook.AfterCommit(ctx, event); err != nil {
			s.logger.Warn("post-commit hook failed",
				zap.String("event", string(t)),
				zap.Uint("order_id", order.ID),
				zap.Error(err))
		}
	}
}
