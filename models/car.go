package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FuelType of a car
type FuelType int

const (
	FuelPetrol   FuelType = 1
	FuelDiesel   FuelType = 2
	FuelGas      FuelType = 3
	FuelElectric FuelType = 4
)

func (f FuelType) String() string {
	switch f {
	case FuelPetrol:
		return "Petrol"
	case FuelDiesel:
		return "Diesel"
	case FuelGas:
		return "Gas"
	case FuelElectric:
		return "Electric"
	}
	return "Unknown"
}

// TransmissionType of a car
type TransmissionType int

const (
	TransmissionManual    TransmissionType = 1
	TransmissionAutomatic TransmissionType = 2
)

func (t TransmissionType) String() string {
	switch t {
	case TransmissionManual:
		return "Manual"
	case TransmissionAutomatic:
		return "Automatic"
	}
	return "Unknown"
}

// DefaultSeats is used when a car is created without a seat count
const DefaultSeats = 4

// Brand groups cars by manufacturer
type Brand struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Available bool           `gorm:"not null" json:"available"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Brand model
func (Brand) TableName() string {
	return "brands"
}

// CarType groups cars by body type (SUV, sedan, ...)
type CarType struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Available bool           `gorm:"not null" json:"available"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the CarType model
func (CarType) TableName() string {
	return "car_types"
}

// Car is a rentable vehicle. Price is the daily rental rate.
type Car struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Name             string           `gorm:"not null;size:100" json:"name"`
	RegNumber        string           `gorm:"uniqueIndex;not null;size:20" json:"reg_number"`
	BrandID          uint             `gorm:"not null;index" json:"brand_id"`
	Brand            Brand            `gorm:"foreignKey:BrandID" json:"brand"`
	TypeID           uint             `gorm:"not null;index" json:"type_id"`
	Type             CarType          `gorm:"foreignKey:TypeID" json:"type"`
	Price            decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	Seats            int              `gorm:"not null" json:"seats"`
	FuelType         FuelType         `gorm:"not null" json:"fuel_type"`
	TransmissionType TransmissionType `gorm:"not null" json:"transmission_type"`
	Available        bool             `gorm:"not null" json:"available"`
	ImageKey         *string          `json:"image_key,omitempty"`
	ImageURL         *string          `gorm:"-" json:"image_url,omitempty"` // computed from ImageKey
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Car model
func (Car) TableName() string {
	return "cars"
}

// Bookable reports whether the car, its brand and its type are all available.
// Brand and Type must be loaded.
func (c Car) Bookable() bool {
	return c.Available && c.Brand.Available && c.Type.Available
}

// DisplayName is used on invoices and checkout line items
func (c Car) DisplayName() string {
	name := c.Name
	if c.Brand.Name != "" {
		name = c.Brand.Name + " " + name
	}
	return name + " " + c.RegNumber
}
