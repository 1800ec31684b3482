package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carrental/car-rental-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MinPercentOff     = 5
	MaxPercentOff     = 100
	DefaultPercentOff = 10
)

// DiscountService manages percentage-off coupons mirrored in the payment gateway
type DiscountService struct {
	db       *gorm.DB
	payments PaymentGateway
	logger   *zap.Logger
}

// NewDiscountService creates a discount service
func NewDiscountService(db *gorm.DB, payments PaymentGateway, logger *zap.Logger) *DiscountService {
	return &DiscountService{db: db, payments: payments, logger: logger}
}

// CreateDiscountInput holds the fields of a new coupon
type CreateDiscountInput struct {
	Name          string
	PercentageOff float64
	UserID        *uint
}

// List returns all coupons, newest first
func (s *DiscountService) List(ctx context.Context) ([]models.Discount, error) {
	var discounts []models.Discount
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// Create registers the coupon with the gateway and stores it. The gateway
// coupon is deleted again when the insert fails.
func (s *DiscountService) Create(ctx context.Context, in CreateDiscountInput) (*models.Discount, error) {
	if in.PercentageOff == 0 {
		in.PercentageOff = DefaultPercentOff
	}
	if in.PercentageOff < MinPercentOff || in.PercentageOff > MaxPercentOff {
		return nil, ErrInvalidPercentOff
	}
	in.Name = strings.TrimSpace(in.Name)

	db := s.db.WithContext(ctx)
	if in.UserID != nil {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", *in.UserID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrUserNotFound
		}
	}

	couponID, err := s.payments.CreateCoupon(ctx, in.Name, in.PercentageOff)
	if err != nil {
		s.logger.Error("coupon creation failed", zap.String("name", in.Name), zap.Error(err))
		return nil, ErrPaymentGateway
	}

	discount := models.Discount{
		Name:            in.Name,
		GatewayCouponID: couponID,
		PercentageOff:   in.PercentageOff,
		UserID:          in.UserID,
	}
	if err := db.Create(&discount).Error; err != nil {
		if cleanupErr := s.payments.DeleteCoupon(ctx, couponID); cleanupErr != nil {
			s.logger.Warn("orphaned gateway coupon", zap.String("coupon_id", couponID), zap.Error(cleanupErr))
		}
		if IsDuplicateKey(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to save discount: %w", err)
	}

	return &discount, nil
}

// Delete removes the coupon from the gateway and the database
func (s *DiscountService) Delete(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)

	var discount models.Discount
	if err := db.First(&discount, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscountNotFound
		}
		return err
	}

	if err := s.payments.DeleteCoupon(ctx, discount.GatewayCouponID); err != nil {
		s.logger.Error("coupon deletion failed", zap.String("coupon_id", discount.GatewayCouponID), zap.Error(err))
		return ErrPaymentGateway
	}

	return db.Delete(&discount).Error
}

// Validate resolves a coupon code for userID. An empty code yields no
// discount. Unknown codes and coupons restricted to another user fail with
// ErrInvalidCoupon.
func (s *DiscountService) Validate(ctx context.Context, code string, userID uint) (*models.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	var discount models.Discount
	err := s.db.WithContext(ctx).
		Where("gateway_coupon_id = ? OR name = ?", code, code).
		First(&discount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCoupon
		}
		return nil, err
	}

	if !discount.RedeemableBy(userID) {
		return nil, ErrInvalidCoupon
	}
	return &discount, nil
}

// IsDuplicateKey detects unique-constraint violations from postgres and sqlite
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

var discountServiceInstance *DiscountService

// GetDiscountService returns the process-wide discount service
func GetDiscountService() *DiscountService {
	return discountServiceInstance
}

// SetDiscountService sets the process-wide discount service
func SetDiscountService(s *DiscountService) {
	discountServiceInstance = s
}
