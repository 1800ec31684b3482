package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/carrental/car-rental-api/models"
	"gorm.io/gorm"
)

// ParseDateRange parses the raw start and end dates of a booking request
func ParseDateRange(startRaw, endRaw string) (models.Date, models.Date, error) {
	startRaw, endRaw = strings.TrimSpace(startRaw), strings.TrimSpace(endRaw)
	if startRaw == "" || endRaw == "" {
		return models.Date{}, models.Date{}, ErrMissingDates
	}
	start, err := models.ParseDate(startRaw)
	if err != nil {
		return models.Date{}, models.Date{}, ErrInvalidDateFormat
	}
	end, err := models.ParseDate(endRaw)
	if err != nil {
		return models.Date{}, models.Date{}, ErrInvalidDateFormat
	}
	return start, end, nil
}

// ValidateDateRange rejects ranges that end before they start or start in the past
func ValidateDateRange(start, end, today models.Date) error {
	if start.After(end) {
		return ErrInvalidDateRange
	}
	if start.Before(today) {
		return ErrStartDateInPast
	}
	return nil
}

// AvailabilityService answers whether a car can be booked for a date range
type AvailabilityService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAvailabilityService creates an availability checker. now may be nil.
func NewAvailabilityService(db *gorm.DB, now func() time.Time) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{db: db, now: now}
}

var availabilityServiceInstance *AvailabilityService

// GetAvailabilityService returns the process-wide availability checker
func GetAvailabilityService() *AvailabilityService {
	return availabilityServiceInstance
}

// SetAvailabilityService sets the process-wide availability checker
func SetAvailabilityService(s *AvailabilityService) {
	availabilityServiceInstance = s
}

// IsAvailable validates the range and reports whether the car is bookable and
// free of conflicting orders for every day in [start, end]
func (s *AvailabilityService) IsAvailable(ctx context.Context, carID uint, start, end models.Date) (bool, error) {
	if err := ValidateDateRange(start, end, models.Today(s.now())); err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)

	var car models.Car
	if err := db.Preload("Brand").Preload("Type").First(&car, carID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrCarNotFound
		}
		return false, err
	}
	if !car.Bookable() {
		return false, nil
	}

	overlap, err := HasOverlap(db, carID, start, end, 0)
	if err != nil {
		return false, err
	}
	return !overlap, nil
}

// HasOverlap reports whether a non-cancelled order for the car intersects the
// closed interval [start, end]. excludeOrderID skips one order when non-zero.
func HasOverlap(db *gorm.DB, carID uint, start, end models.Date, excludeOrderID uint) (bool, error) {
	query := db.Model(&models.Order{}).
		Where("car_id = ? AND cancelled = ?", carID, false).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if excludeOrderID != 0 {
		query = query.Where("id <> ?", excludeOrderID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FilterAvailableCars narrows a cars query to bookable cars with no
// conflicting order in [start, end]
func FilterAvailableCars(query *gorm.DB, start, end models.Date) *gorm.DB {
	conflicts := query.Session(&gorm.Session{NewDB: true}).
		Model(&models.Order{}).
		Select("1").
		Where("orders.car_id = cars.id AND orders.cancelled = ?", false).
		Where("orders.start_date <= ? AND orders.end_date >= ?", end, start)

	return query.
		Joins("JOIN brands ON brands.id = cars.brand_id AND brands.available = ?", true).
		Joins("JOIN car_types ON car_types.id = cars.type_id AND car_types.available = ?", true).
		Where("cars.available = ?", true).
		Where("NOT EXISTS (?)", conflicts)
}

// HasOutstandingBookings reports whether any order matching column = id is
// neither returned nor cancelled. column is one of car_id, user_id or a
// brand/type column reached through the cars table.
func HasOutstandingBookings(db *gorm.DB, column string, id uint) (bool, error) {
	query := db.Model(&models.Order{}).Where("orders.returned = ? AND orders.cancelled = ?", false, false)

	switch column {
	case "car_id", "user_id":
		query = query.Where("orders."+column+" = ?", id)
	case "brand_id", "type_id":
		query = query.Joins("JOIN cars ON cars.id = orders.car_id").Where("cars."+column+" = ?", id)
	default:
		return false, errors.New("unsupported booking column: " + column)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
