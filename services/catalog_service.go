package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/carrental/car-rental-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NamedPatch updates a brand or car type
type NamedPatch struct {
	Name      *string
	Available *bool
}

// CarInput holds the fields of a new car
type CarInput struct {
	Name             string
	RegNumber        string
	BrandID          uint
	TypeID           uint
	Price            decimal.Decimal
	Seats            int
	FuelType         models.FuelType
	TransmissionType models.TransmissionType
	Available        bool
}

// CarPatch holds optional car changes
type CarPatch struct {
	Name             *string
	RegNumber        *string
	BrandID          *uint
	TypeID           *uint
	Price            *decimal.Decimal
	Seats            *int
	FuelType         *models.FuelType
	TransmissionType *models.TransmissionType
	Available        *bool
}

// CarFilter narrows the car listing. Dates are applied only when both are set.
type CarFilter struct {
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Name      string
	Brand     string
	Type      string
	StartDate *models.Date
	EndDate   *models.Date
	Page      int
	Limit     int
}

// Page describes one page of a listing
type Page struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// CatalogService manages brands, car types and cars
type CatalogService struct {
	db     *gorm.DB
	images ImageService
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogService creates the catalog service. images may be nil when car
// photos are disabled.
func NewCatalogService(db *gorm.DB, images ImageService, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, images: images, logger: logger, now: time.Now}
}

var catalogServiceInstance *CatalogService

// GetCatalogService returns the process-wide catalog service
func GetCatalogService() *CatalogService {
	return catalogServiceInstance
}

// SetCatalogService sets the process-wide catalog service
func SetCatalogService(s *CatalogService) {
	catalogServiceInstance = s
}

func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

func saveError(err error, action string) error {
	if IsDuplicateKey(err) {
		return ErrDuplicateName
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func namedUpdates(p NamedPatch) map[string]interface{} {
	updates := make(map[string]interface{})
	if p.Name != nil {
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Available != nil {
		updates["available"] = *p.Available
	}
	return updates
}

// ListBrands returns all brands ordered by name
func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	err := s.db.WithContext(ctx).Order("name").Find(&brands).Error
	return brands, err
}

// GetBrand loads one brand
func (s *CatalogService) GetBrand(ctx context.Context, id uint) (*models.Brand, error) {
	var brand models.Brand
	if err := s.db.WithContext(ctx).First(&brand, id).Error; err != nil {
		return nil, notFoundAs(err, ErrBrandNotFound)
	}
	return &brand, nil
}

// CreateBrand adds a brand
func (s *CatalogService) CreateBrand(ctx context.Context, name string, available bool) (*models.Brand, error) {
	brand := models.Brand{Name: strings.TrimSpace(name), Available: available}
	if err := s.db.WithContext(ctx).Create(&brand).Error; err != nil {
		return nil, saveError(err, "create brand")
	}
	return &brand, nil
}

// UpdateBrand applies a partial update
func (s *CatalogService) UpdateBrand(ctx context.Context, id uint, patch NamedPatch) (*models.Brand, error) {
	brand, err := s.GetBrand(ctx, id)
	if err != nil {
		return nil, err
	}
	if updates := namedUpdates(patch); len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(brand).Updates(updates).Error; err != nil {
			return nil, saveError(err, "update brand")
		}
	}
	return s.GetBrand(ctx, id)
}

// DeleteBrand removes a brand and its cars unless one of them is still booked
func (s *CatalogService) DeleteBrand(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var brand models.Brand
		if err := tx.First(&brand, id).Error; err != nil {
			return notFoundAs(err, ErrBrandNotFound)
		}
		outstanding, err := HasOutstandingBookings(tx, "brand_id", id)
		if err != nil {
			return err
		}
		if outstanding {
			return ErrBrandHasBookings
		}
		if err := tx.Where("brand_id = ?", id).Delete(&models.Car{}).Error; err != nil {
			return err
		}
		return tx.Delete(&brand).Error
	})
}

// ListTypes returns all car types ordered by name
func (s *CatalogService) ListTypes(ctx context.Context) ([]models.CarType, error) {
	var types []models.CarType
	err := s.db.WithContext(ctx).Order("name").Find(&types).Error
	return types, err
}

// GetType loads one car type
func (s *CatalogService) GetType(ctx context.Context, id uint) (*models.CarType, error) {
	var carType models.CarType
	if err := s.db.WithContext(ctx).First(&carType, id).Error; err != nil {
		return nil, notFoundAs(err, ErrTypeNotFound)
	}
	return &carType, nil
}

// CreateType adds a car type
func (s *CatalogService) CreateType(ctx context.Context, name string, available bool) (*models.CarType, error) {
	carType := models.CarType{Name: strings.TrimSpace(name), Available: available}
	if err := s.db.WithContext(ctx).Create(&carType).Error; err != nil {
		return nil, saveError(err, "create car type")
	}
	return &carType, nil
}

// UpdateType applies a partial update
func (s *CatalogService) UpdateType(ctx context.Context, id uint, patch NamedPatch) (*models.CarType, error) {
	carType, err := s.GetType(ctx, id)
	if err != nil {
		return nil, err
	}
	if updates := namedUpdates(patch); len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(carType).Updates(updates).Error; err != nil {
			return nil, saveError(err, "update car type")
		}
	}
	return s.GetType(ctx, id)
}

// DeleteType removes a car type and its cars unless one of them is still booked
func (s *CatalogService) DeleteType(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var carType models.CarType
		if err := tx.First(&carType, id).Error; err != nil {
			return notFoundAs(err, ErrTypeNotFound)
		}
		outstanding, err := HasOutstandingBookings(tx, "type_id", id)
		if err != nil {
			return err
		}
		if outstanding {
			return ErrTypeHasBookings
		}
		if err := tx.Where("type_id = ?", id).Delete(&models.Car{}).Error; err != nil {
			return err
		}
		return tx.Delete(&carType).Error
	})
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// ListCars returns one page of cars matching f. With a date window only
// bookable cars without a conflicting order are returned.
func (s *CatalogService) ListCars(ctx context.Context, f CarFilter) ([]models.Car, *Page, error) {
	query := s.db.WithContext(ctx).Model(&models.Car{})

	if f.StartDate != nil && f.EndDate != nil {
		if err := ValidateDateRange(*f.StartDate, *f.EndDate, models.Today(s.now())); err != nil {
			return nil, nil, err
		}
		query = FilterAvailableCars(query, *f.StartDate, *f.EndDate)
	}
	if f.MinPrice != nil {
		query = query.Where("cars.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("cars.price <= ?", *f.MaxPrice)
	}
	if strings.TrimSpace(f.Name) != "" {
		query = query.Where("LOWER(cars.name) LIKE ?", likePattern(f.Name))
	}
	if strings.TrimSpace(f.Brand) != "" {
		query = query.Where("cars.brand_id IN (?)",
			s.db.Model(&models.Brand{}).Select("id").Where("LOWER(name) LIKE ?", likePattern(f.Brand)))
	}
	if strings.TrimSpace(f.Type) != "" {
		query = query.Where("cars.type_id IN (?)",
			s.db.Model(&models.CarType{}).Select("id").Where("LOWER(name) LIKE ?", likePattern(f.Type)))
	}
	query = query.Session(&gorm.Session{})

	page, limit := normalizePage(f.Page, f.Limit)
	meta := &Page{Page: page, Limit: limit}
	if err := query.Count(&meta.Total).Error; err != nil {
		return nil, nil, err
	}

	var cars []models.Car
	err := query.Select("cars.*").
		Preload("Brand").
		Preload("Type").
		Order("cars.id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&cars).Error
	if err != nil {
		return nil, nil, err
	}

	for i := range cars {
		s.resolveImage(ctx, &cars[i])
	}
	return cars, meta, nil
}

// GetCar loads one car with brand, type and image URL
func (s *CatalogService) GetCar(ctx context.Context, id uint) (*models.Car, error) {
	var car models.Car
	if err := s.db.WithContext(ctx).Preload("Brand").Preload("Type").First(&car, id).Error; err != nil {
		return nil, notFoundAs(err, ErrCarNotFound)
	}
	s.resolveImage(ctx, &car)
	return &car, nil
}

func (s *CatalogService) checkRefs(db *gorm.DB, brandID, typeID *uint) error {
	if brandID != nil {
		if err := db.Select("id").First(&models.Brand{}, *brandID).Error; err != nil {
			return notFoundAs(err, ErrBrandNotFound)
		}
	}
	if typeID != nil {
		if err := db.Select("id").First(&models.CarType{}, *typeID).Error; err != nil {
			return notFoundAs(err, ErrTypeNotFound)
		}
	}
	return nil
}

// CreateCar adds a car
func (s *CatalogService) CreateCar(ctx context.Context, in CarInput) (*models.Car, error) {
	db := s.db.WithContext(ctx)
	if err := s.checkRefs(db, &in.BrandID, &in.TypeID); err != nil {
		return nil, err
	}
	if in.Seats == 0 {
		in.Seats = models.DefaultSeats
	}

	car := models.Car{
		Name:             strings.TrimSpace(in.Name),
		RegNumber:        strings.TrimSpace(in.RegNumber),
		BrandID:          in.BrandID,
		TypeID:           in.TypeID,
		Price:            in.Price,
		Seats:            in.Seats,
		FuelType:         in.FuelType,
		TransmissionType: in.TransmissionType,
		Available:        in.Available,
	}
	if err := db.Create(&car).Error; err != nil {
		return nil, saveError(err, "create car")
	}
	return s.GetCar(ctx, car.ID)
}

// UpdateCar applies a partial update
func (s *CatalogService) UpdateCar(ctx context.Context, id uint, p CarPatch) (*models.Car, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.GetCar(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkRefs(db, p.BrandID, p.TypeID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if p.Name != nil {
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.RegNumber != nil {
		updates["reg_number"] = strings.TrimSpace(*p.RegNumber)
	}
	if p.BrandID != nil {
		updates["brand_id"] = *p.BrandID
	}
	if p.TypeID != nil {
		updates["type_id"] = *p.TypeID
	}
	if p.Price != nil {
		updates["price"] = *p.Price
	}
	if p.Seats != nil {
		updates["seats"] = *p.Seats
	}
	if p.FuelType != nil {
		updates["fuel_type"] = *p.FuelType
	}
	if p.TransmissionType != nil {
		updates["transmission_type"] = *p.TransmissionType
	}
	if p.Available != nil {
		updates["available"] = *p.Available
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Car{ID: id}).Updates(updates).Error; err != nil {
			return nil, saveError(err, "update car")
		}
	}
	return s.GetCar(ctx, id)
}

// DeleteCar removes a car unless it is still booked
func (s *CatalogService) DeleteCar(ctx context.Context, id uint) error {
	var imageKey *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Same row lock as booking creation, so a delete never races a new order
		car, err := lockCar(tx, id)
		if err != nil {
			return err
		}
		outstanding, err := HasOutstandingBookings(tx, "car_id", id)
		if err != nil {
			return err
		}
		if outstanding {
			return ErrCarHasBookings
		}
		imageKey = car.ImageKey
		return tx.Delete(car).Error
	})
	if err != nil {
		return err
	}

	if imageKey != nil && s.images != nil {
		if err := s.images.DeleteImage(ctx, *imageKey); err != nil {
			s.logger.Warn("failed to delete car image", zap.Uint("car_id", id), zap.Error(err))
		}
	}
	return nil
}

// SetCarImage uploads a new photo for the car and replaces the old one
func (s *CatalogService) SetCarImage(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.Car, error) {
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}
	car, err := s.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadCarImage(ctx, id, fileHeader)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Car{ID: id}).Update("image_key", key).Error; err != nil {
		_ = s.images.DeleteImage(ctx, key)
		return nil, fmt.Errorf("failed to store image key: %w", err)
	}

	if car.ImageKey != nil && *car.ImageKey != key {
		if err := s.images.DeleteImage(ctx, *car.ImageKey); err != nil {
			s.logger.Warn("failed to delete previous car image", zap.Uint("car_id", id), zap.Error(err))
		}
	}
	return s.GetCar(ctx, id)
}

func (s *CatalogService) resolveImage(ctx context.Context, car *models.Car) {
	if car.ImageKey == nil || *car.ImageKey == "" || s.images == nil {
		return
	}
	url, err := s.images.GetImageURL(ctx, *car.ImageKey)
	if err != nil {
		s.logger.Warn("failed to resolve car image URL", zap.Uint("car_id", car.ID), zap.Error(err))
		return
	}
	car.ImageURL = &url
}
