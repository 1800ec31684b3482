package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/carrental/car-rental-api/models"
	"github.com/carrental/car-rental-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// NamedRequest is the body for creating a brand or car type
type NamedRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	Available *bool  `json:"available"`
}

// NamedPatchRequest is the body for updating a brand or car type
type NamedPatchRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Available *bool   `json:"available"`
}

// CarRequest is the body for creating a car
type CarRequest struct {
	Name             string           `json:"name" binding:"required,max=100"`
	RegNumber        string           `json:"reg_number" binding:"required,max=20"`
	BrandID          uint             `json:"brand_id" binding:"required"`
	TypeID           uint             `json:"type_id" binding:"required"`
	Price            *decimal.Decimal `json:"price" binding:"required"`
	Seats            int              `json:"seats" binding:"omitempty,min=1,max=20"`
	FuelType         int              `json:"fuel_type" binding:"required,min=1,max=4"`
	TransmissionType int              `json:"transmission_type" binding:"required,min=1,max=2"`
	Available        *bool            `json:"available"`
}

// CarPatchRequest is the body for updating a car
type CarPatchRequest struct {
	Name             *string          `json:"name" binding:"omitempty,min=1,max=100"`
	RegNumber        *string          `json:"reg_number" binding:"omitempty,min=1,max=20"`
	BrandID          *uint            `json:"brand_id" binding:"omitempty,min=1"`
	TypeID           *uint            `json:"type_id" binding:"omitempty,min=1"`
	Price            *decimal.Decimal `json:"price"`
	Seats            *int             `json:"seats" binding:"omitempty,min=1,max=20"`
	FuelType         *int             `json:"fuel_type" binding:"omitempty,min=1,max=4"`
	TransmissionType *int             `json:"transmission_type" binding:"omitempty,min=1,max=2"`
	Available        *bool            `json:"available"`
}

var errNonPositivePrice = errors.New("price must be greater than zero")

func availableOrDefault(v *bool) bool {
	return v == nil || *v
}

// ListBrands handles GET /api/v1/brands
func ListBrands(c *gin.Context) {
	brands, err := services.GetCatalogService().ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", brands)
}

// GetBrand handles GET /api/v1/brands/:id
func GetBrand(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	brand, err := services.GetCatalogService().GetBrand(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", brand)
}

// CreateBrand handles POST /api/v1/brands (admin)
func CreateBrand(c *gin.Context) {
	var req NamedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	brand, err := services.GetCatalogService().CreateBrand(c.Request.Context(), req.Name, availableOrDefault(req.Available))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Created successfully.", brand)
}

// UpdateBrand handles PATCH /api/v1/brands/:id (admin)
func UpdateBrand(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req NamedPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	brand, err := services.GetCatalogService().UpdateBrand(c.Request.Context(), id, services.NamedPatch{Name: req.Name, Available: req.Available})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Updated successfully.", brand)
}

// DeleteBrand handles DELETE /api/v1/brands/:id (admin)
func DeleteBrand(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := services.GetCatalogService().DeleteBrand(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Deleted successfully.", nil)
}

// ListTypes handles GET /api/v1/types
func ListTypes(c *gin.Context) {
	types, err := services.GetCatalogService().ListTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", types)
}

// GetType handles GET /api/v1/types/:id
func GetType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	carType, err := services.GetCatalogService().GetType(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", carType)
}

// CreateType handles POST /api/v1/types (admin)
func CreateType(c *gin.Context) {
	var req NamedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	carType, err := services.GetCatalogService().CreateType(c.Request.Context(), req.Name, availableOrDefault(req.Available))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Created successfully.", carType)
}

// UpdateType handles PATCH /api/v1/types/:id (admin)
func UpdateType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req NamedPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	carType, err := services.GetCatalogService().UpdateType(c.Request.Context(), id, services.NamedPatch{Name: req.Name, Available: req.Available})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Updated successfully.", carType)
}

// DeleteType handles DELETE /api/v1/types/:id (admin)
func DeleteType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := services.GetCatalogService().DeleteType(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Deleted successfully.", nil)
}

func parseCarFilter(c *gin.Context) (services.CarFilter, error) {
	f := services.CarFilter{
		Name:  c.Query("name"),
		Brand: c.Query("brand"),
		Type:  c.Query("type"),
	}

	for param, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if raw := c.Query(param); raw != "" {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return f, errors.New(param + " must be a number")
			}
			*dst = &v
		}
	}

	startRaw, endRaw := c.Query("start_date"), c.Query("end_date")
	if startRaw != "" || endRaw != "" {
		start, end, err := services.ParseDateRange(startRaw, endRaw)
		if err != nil {
			return f, err
		}
		f.StartDate, f.EndDate = &start, &end
	}

	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))
	return f, nil
}

// ListCars handles GET /api/v1/cars with optional filters and an
// availability window given by start_date and end_date
func ListCars(c *gin.Context) {
	filter, err := parseCarFilter(c)
	if err != nil {
		if _, ok := services.AsDomainError(err); ok {
			respondError(c, err)
			return
		}
		respondValidation(c, err)
		return
	}

	cars, page, err := services.GetCatalogService().ListCars(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    cars,
		"meta":    page,
	})
}

// GetCar handles GET /api/v1/cars/:id
func GetCar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	car, err := services.GetCatalogService().GetCar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", car)
}

// CreateCar handles POST /api/v1/cars (admin)
func CreateCar(c *gin.Context) {
	var req CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if !req.Price.IsPositive() {
		respondValidation(c, errNonPositivePrice)
		return
	}

	car, err := services.GetCatalogService().CreateCar(c.Request.Context(), services.CarInput{
		Name:             req.Name,
		RegNumber:        req.RegNumber,
		BrandID:          req.BrandID,
		TypeID:           req.TypeID,
		Price:            *req.Price,
		Seats:            req.Seats,
		FuelType:         models.FuelType(req.FuelType),
		TransmissionType: models.TransmissionType(req.TransmissionType),
		Available:        availableOrDefault(req.Available),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Created successfully.", car)
}

// UpdateCar handles PATCH /api/v1/cars/:id (admin)
func UpdateCar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CarPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		respondValidation(c, errNonPositivePrice)
		return
	}

	patch := services.CarPatch{
		Name:      req.Name,
		RegNumber: req.RegNumber,
		BrandID:   req.BrandID,
		TypeID:    req.TypeID,
		Price:     req.Price,
		Seats:     req.Seats,
		Available: req.Available,
	}
	if req.FuelType != nil {
		ft := models.FuelType(*req.FuelType)
		patch.FuelType = &ft
	}
	if req.TransmissionType != nil {
		tt := models.TransmissionType(*req.TransmissionType)
		patch.TransmissionType = &tt
	}

	car, err := services.GetCatalogService().UpdateCar(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Updated successfully.", car)
}

// DeleteCar handles DELETE /api/v1/cars/:id (admin)
func DeleteCar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := services.GetCatalogService().DeleteCar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Deleted successfully.", nil)
}

// UploadCarImage handles POST /api/v1/cars/:id/image (admin, multipart field "image")
func UploadCarImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the \"image\" field.")
		return
	}

	car, err := services.GetCatalogService().SetCarImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Image uploaded successfully.", car)
}
