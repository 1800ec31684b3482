package controllers

import (
	"net/http"

	"github.com/carrental/car-rental-api/services"
	"github.com/gin-gonic/gin"
)

// CreateDiscountRequest represents the request body for a new coupon
type CreateDiscountRequest struct {
	Name          string  `json:"name" binding:"required,max=100"`
	PercentageOff float64 `json:"percentage_off"`
	UserID        *uint   `json:"user_id" binding:"omitempty,min=1"`
}

// ListDiscounts handles GET /api/v1/discounts (admin)
func ListDiscounts(c *gin.Context) {
	discounts, err := services.GetDiscountService().List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", discounts)
}

// CreateDiscount handles POST /api/v1/discounts (admin)
func CreateDiscount(c *gin.Context) {
	var req CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	discount, err := services.GetDiscountService().Create(c.Request.Context(), services.CreateDiscountInput{
		Name:          req.Name,
		PercentageOff: req.PercentageOff,
		UserID:        req.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Created successfully.", discount)
}

// DeleteDiscount handles DELETE /api/v1/discounts/:id (admin)
func DeleteDiscount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := services.GetDiscountService().Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Deleted successfully.", nil)
}
