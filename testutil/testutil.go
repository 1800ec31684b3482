// Package testutil holds database fixtures and auth helpers shared by the
// handler, middleware and end-to-end tests.
package testutil

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carrental/car-rental-api/config"
	"github.com/carrental/car-rental-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestConfig returns a configuration suitable for tests and installs it as
// the process-wide config
func TestConfig() *config.Config {
	cfg := &config.Config{
		DatabaseURL:          "sqlite::memory:",
		Port:                 "8080",
		GoEnv:                "test",
		LogLevel:             "error",
		CORSAllowedOrigins:   []string{"*"},
		JWTSecret:            "test-secret",
		JWTIssuer:            "car-rental-api",
		JWTAudience:          "car-rental-clients",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      time.Hour,
		StripePublishableKey: "pk_test",
		PaymentCurrency:      "inr",
		CheckoutSuccessURL:   "http://localhost/success",
		CheckoutCancelURL:    "http://localhost/cancel",
		PasswordResetURL:     "http://localhost/reset-password",
		UploadDir:            os.TempDir(),
		UnpaidBookingTTL:     time.Hour,
	}
	config.SetConfig(cfg)
	return cfg
}

// NewTestDB opens a migrated in-memory SQLite database and installs it as
// the process-wide connection. A single connection keeps every query on the
// same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	return db
}

var seq atomic.Int64

func next() int64 {
	return seq.Add(1)
}

// CreateUser inserts a customer, or an administrator when admin is true
func CreateUser(t *testing.T, db *gorm.DB, admin bool) models.User {
	t.Helper()

	n := next()
	user := models.User{
		Email:        fmt.Sprintf("user%d@example.com", n),
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		PhoneNumber:  "9876543210",
		PasswordHash: "not-a-real-hash",
		IsAdmin:      admin,
		IsStaff:      admin,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CreateCar inserts an available car with its own brand and type at the
// given daily rate
func CreateCar(t *testing.T, db *gorm.DB, rate int64) models.Car {
	t.Helper()

	n := next()
	brand := models.Brand{Name: fmt.Sprintf("Brand%d", n), Available: true}
	if err := db.Create(&brand).Error; err != nil {
		t.Fatalf("Failed to create test brand: %v", err)
	}
	carType := models.CarType{Name: fmt.Sprintf("Type%d", n), Available: true}
	if err := db.Create(&carType).Error; err != nil {
		t.Fatalf("Failed to create test car type: %v", err)
	}

	car := models.Car{
		Name:             fmt.Sprintf("Car%d", n),
		RegNumber:        fmt.Sprintf("KA01AB%04d", n),
		BrandID:          brand.ID,
		Brand:            brand,
		TypeID:           carType.ID,
		Type:             carType,
		Price:            decimal.NewFromInt(rate),
		Seats:            models.DefaultSeats,
		FuelType:         models.FuelPetrol,
		TransmissionType: models.TransmissionManual,
		Available:        true,
	}
	if err := db.Omit("Brand", "Type").Create(&car).Error; err != nil {
		t.Fatalf("Failed to create test car: %v", err)
	}
	return car
}

// CreateOrder inserts an order for user on car over [start, end]. Mutate
// sets flags such as Paid or Returned before the insert.
func CreateOrder(t *testing.T, db *gorm.DB, user models.User, car models.Car, start, end models.Date, mutate ...func(*models.Order)) models.Order {
	t.Helper()

	order := models.Order{
		CarID:     car.ID,
		UserID:    user.ID,
		StartDate: start,
		EndDate:   end,
		OrderDate: models.Today(time.Now()),
		Price:     car.Price.Mul(decimal.NewFromInt(int64(end.DaysSince(start) + 1))),
	}
	for _, m := range mutate {
		m(&order)
	}
	if err := db.Omit("Car", "User", "Discount").Create(&order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}
	return order
}
