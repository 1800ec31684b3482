package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carrental/car-rental-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

var fixtureSeq atomic.Int64

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	n := fixtureSeq.Add(1)
	user := models.User{
		Email:        fmt.Sprintf("renter%d@example.com", n),
		FirstName:    "Renter",
		LastName:     fmt.Sprintf("No%d", n),
		PhoneNumber:  "9988776655",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCar(t *testing.T, db *gorm.DB, rate int64) models.Car {
	t.Helper()
	n := fixtureSeq.Add(1)
	brand := models.Brand{Name: fmt.Sprintf("Make%d", n), Available: true}
	require.NoError(t, db.Create(&brand).Error)
	carType := models.CarType{Name: fmt.Sprintf("Body%d", n), Available: true}
	require.NoError(t, db.Create(&carType).Error)

	car := models.Car{
		Name:             fmt.Sprintf("Model%d", n),
		RegNumber:        fmt.Sprintf("DL3C%05d", n),
		BrandID:          brand.ID,
		TypeID:           carType.ID,
		Price:            decimal.NewFromInt(rate),
		Seats:            models.DefaultSeats,
		FuelType:         models.FuelDiesel,
		TransmissionType: models.TransmissionAutomatic,
		Available:        true,
	}
	require.NoError(t, db.Omit("Brand", "Type").Create(&car).Error)
	car.Brand, car.Type = brand, carType
	return car
}

func seedOrder(t *testing.T, db *gorm.DB, user models.User, car models.Car, start, end string, mutate ...func(*models.Order)) models.Order {
	t.Helper()
	s, e := models.MustParseDate(start), models.MustParseDate(end)
	order := models.Order{
		CarID:     car.ID,
		UserID:    user.ID,
		StartDate: s,
		EndDate:   e,
		OrderDate: s,
		Price:     QuotePrice(car.Price, s, e),
	}
	for _, m := range mutate {
		m(&order)
	}
	require.NoError(t, db.Omit("Car", "User", "Discount").Create(&order).Error)
	return order
}

// clockAt returns a clock pinned to noon UTC on day
func clockAt(day string) func() time.Time {
	at := models.MustParseDate(day).Time.Add(12 * time.Hour)
	return func() time.Time { return at }
}

type orderFixture struct {
	db        *gorm.DB
	payments  *MockPaymentGateway
	mailer    *MockMailer
	publisher *MockEventPublisher
	discounts *DiscountService
	orders    *OrderService
}

func newOrderFixture(t *testing.T, today string) *orderFixture {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop()

	f := &orderFixture{
		db:        db,
		payments:  NewMockPaymentGateway(),
		mailer:    NewMockMailer(),
		publisher: NewMockEventPublisher(),
	}
	f.discounts = NewDiscountService(db, f.payments, logger)
	f.orders = NewOrderService(db, f.payments, f.discounts,
		CheckoutSettings{Currency: "inr", SuccessURL: "http://ok", CancelURL: "http://cancel"},
		logger,
		WithClock(clockAt(today)),
		WithHooks(NewNotificationHook(f.mailer, f.publisher, logger)),
	)
	return f
}
