package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderState is the lifecycle state derived from an order's flags
type OrderState string

const (
	OrderPending   OrderState = "pending"
	OrderCancelled OrderState = "cancelled"
	OrderReturned  OrderState = "returned"
)

// Order is a booking of a car for an inclusive date range
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CarID         uint            `gorm:"not null;index:idx_orders_car_window,priority:1" json:"car_id"`
	Car           Car             `gorm:"foreignKey:CarID" json:"car"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	User          User            `gorm:"foreignKey:UserID" json:"-"`
	DiscountID    *uint           `gorm:"index" json:"discount_id,omitempty"`
	Discount      *Discount       `gorm:"foreignKey:DiscountID" json:"discount,omitempty"`
	StartDate     Date            `gorm:"not null;index:idx_orders_car_window,priority:2" json:"start_date"`
	EndDate       Date            `gorm:"not null;index:idx_orders_car_window,priority:3" json:"end_date"`
	OrderDate     Date            `gorm:"not null" json:"order_date"`
	ReturnDate    *Date           `json:"return_date,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	FineAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"fine_amount"`
	Cancelled     bool            `gorm:"not null;index" json:"cancelled"`
	Returned      bool            `gorm:"not null;index" json:"returned"`
	Refunded      bool            `gorm:"not null" json:"refunded"`
	Paid          bool            `gorm:"not null" json:"paid"`
	FineGenerated bool            `gorm:"not null" json:"fine_generated"`
	FinePaid      bool            `gorm:"not null" json:"fine_paid"`

	PaymentSessionID string `gorm:"size:255;index" json:"payment_session_id,omitempty"`
	PaymentIntentID  string `gorm:"size:255;index" json:"-"`
	FineSessionID    string `gorm:"size:255" json:"fine_session_id,omitempty"`

	Status    OrderState     `gorm:"-" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// State derives the lifecycle state from the cancelled/returned flags
func (o Order) State() OrderState {
	switch {
	case o.Cancelled:
		return OrderCancelled
	case o.Returned:
		return OrderReturned
	default:
		return OrderPending
	}
}

// IsPending reports whether the order is neither cancelled nor returned
func (o Order) IsPending() bool {
	return o.State() == OrderPending
}

// FineOutstanding reports whether a fine was levied and is still unpaid
func (o Order) FineOutstanding() bool {
	return o.FineGenerated && !o.FinePaid
}

// DayCount returns the inclusive number of booked days
func (o Order) DayCount() int {
	return o.EndDate.DaysSince(o.StartDate) + 1
}

// AfterFind fills the computed Status field
func (o *Order) AfterFind(tx *gorm.DB) error {
	o.Status = o.State()
	return nil
}

// RefreshStatus recomputes Status after an in-memory transition
func (o *Order) RefreshStatus() {
	o.Status = o.State()
}

// Discount is a percentage-off coupon mirrored in the payment gateway.
// A coupon with UserID set may only be redeemed by that user.
type Discount struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"uniqueIndex;not null;size:100" json:"name"`
	GatewayCouponID string         `gorm:"uniqueIndex;not null;size:255" json:"coupon_code"`
	PercentageOff   float64        `gorm:"not null" json:"percentage_off"`
	UserID          *uint          `gorm:"index" json:"user_id,omitempty"`
	User            *User          `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Discount model
func (Discount) TableName() string {
	return "discounts"
}

// RedeemableBy reports whether userID may apply this coupon
func (d Discount) RedeemableBy(userID uint) bool {
	return d.UserID == nil || *d.UserID == userID
}
