package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/carrental/car-rental-api/models"
	"github.com/carrental/car-rental-api/services"
	"github.com/gin-gonic/gin"
)

// CreateOrderRequest represents the request body for booking a car
type CreateOrderRequest struct {
	CarID      uint   `json:"car" binding:"required"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	CouponCode string `json:"coupon_code"`
}

// ReturnOrderRequest represents the optional body for returning a car
type ReturnOrderRequest struct {
	ReturnDate string `json:"return_date"`
}

// QuoteResponse is the price preview for a date range
type QuoteResponse struct {
	CarID           uint    `json:"car"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Days            int     `json:"days"`
	Price           string  `json:"price"`
	Available       bool    `json:"available"`
	PercentageOff   float64 `json:"percentage_off,omitempty"`
	DiscountedPrice string  `json:"discounted_price,omitempty"`
}

// CreateOrder handles POST /api/v1/orders. The order is created pending and
// unpaid together with a checkout session the client redirects to.
func CreateOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	start, end, err := services.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := services.GetAuthService().GetUser(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := services.GetOrderService().Create(ctx, services.CreateOrderInput{
		CarID:      req.CarID,
		User:       *user,
		StartDate:  start,
		EndDate:    end,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Order created successfully.", result)
}

// QuoteOrder handles POST /api/v1/orders/quote. It prices a date range and
// reports availability without creating anything.
func QuoteOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	start, end, err := services.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	available, err := services.GetAvailabilityService().IsAvailable(ctx, req.CarID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	car, err := services.GetCatalogService().GetCar(ctx, req.CarID)
	if err != nil {
		respondError(c, err)
		return
	}

	price := services.QuotePrice(car.Price, start, end)
	quote := QuoteResponse{
		CarID:     car.ID,
		StartDate: start.String(),
		EndDate:   end.String(),
		Days:      services.DayCount(start, end),
		Price:     price.StringFixed(2),
		Available: available,
	}

	discount, err := services.GetDiscountService().Validate(ctx, req.CouponCode, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if discount != nil {
		quote.PercentageOff = discount.PercentageOff
		quote.DiscountedPrice = services.ApplyDiscount(price, discount.PercentageOff).StringFixed(2)
	}

	respondSuccess(c, http.StatusOK, "", quote)
}

// GetOrder handles GET /api/v1/orders/:id (owner or admin)
func GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := services.GetOrderService().Get(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", order)
}

// CancelOrder handles POST /api/v1/orders/:id/cancel
func CancelOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := services.GetOrderService().Cancel(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Order canceled successfully.", order)
}

// ReturnOrder handles POST /api/v1/orders/:id/return. return_date defaults
// to today.
func ReturnOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ReturnOrderRequest
	// Chunked bodies report a length of -1
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondValidation(c, err)
			return
		}
	}

	var returnDate *models.Date
	if req.ReturnDate != "" {
		d, err := models.ParseDate(req.ReturnDate)
		if err != nil {
			respondError(c, services.ErrInvalidDateFormat)
			return
		}
		returnDate = &d
	}

	order, err := services.GetOrderService().Return(c.Request.Context(), id, actor, returnDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Car return successfully.", order)
}

// CreateFineCheckout handles POST /api/v1/orders/:id/fine-checkout
func CreateFineCheckout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	session, err := services.GetOrderService().CreateFineCheckout(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Fine checkout created.", session)
}

type listFunc func(svc *services.OrderService, c *gin.Context, userID uint) ([]models.Order, error)

func listOrders(list listFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		orders, err := list(services.GetOrderService(), c, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if orders == nil {
			orders = []models.Order{}
		}
		respondSuccess(c, http.StatusOK, "", orders)
	}
}

// ListBookings handles GET /api/v1/orders/bookings: orders not yet returned
var ListBookings = listOrders(func(svc *services.OrderService, c *gin.Context, userID uint) ([]models.Order, error) {
	return svc.ListBookings(c.Request.Context(), userID)
})

// ListBookingHistory handles GET /api/v1/orders/bookings-history: returned orders
var ListBookingHistory = listOrders(func(svc *services.OrderService, c *gin.Context, userID uint) ([]models.Order, error) {
	return svc.ListHistory(c.Request.Context(), userID)
})

// ListPendingFines handles GET /api/v1/orders/pending-fine
var ListPendingFines = listOrders(func(svc *services.OrderService, c *gin.Context, userID uint) ([]models.Order, error) {
	return svc.ListPendingFines(c.Request.Context(), userID)
})
