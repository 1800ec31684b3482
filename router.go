package main

import (
	"github.com/carrental/car-rental-api/config"
	"github.com/carrental/car-rental-api/controllers"
	"github.com/carrental/car-rental-api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// setupRouter registers every API route
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(zap.L()),
		cors.New(corsConfig(cfg.CORSAllowedOrigins)),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.GET("/metrics", gin.WrapH(promhttp.Handler()))

		auth := v1.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
			auth.POST("/refresh", controllers.RefreshToken)
			auth.POST("/password-reset", controllers.RequestPasswordReset)
			auth.POST("/password-reset/confirm", controllers.ConfirmPasswordReset)
		}

		v1.GET("/payments/config", controllers.GetPaymentConfig)
		v1.POST("/payments/webhook", controllers.PaymentWebhook)

		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		v1.GET("/cars", controllers.ListCars)
		v1.GET("/cars/:id", controllers.GetCar)
		v1.GET("/brands", controllers.ListBrands)
		v1.GET("/brands/:id", controllers.GetBrand)
		v1.GET("/types", controllers.ListTypes)
		v1.GET("/types/:id", controllers.GetType)

		authed := v1.Group("", middleware.EnsureValidToken(cfg))
		{
			authed.GET("/users/me", controllers.GetMyProfile)
			authed.PATCH("/users/me", controllers.UpdateMyProfile)
			authed.DELETE("/users/me", controllers.DeleteMyAccount)

			orders := authed.Group("/orders")
			{
				orders.POST("", controllers.CreateOrder)
				orders.POST("/quote", controllers.QuoteOrder)
				orders.GET("/bookings", controllers.ListBookings)
				orders.GET("/bookings-history", controllers.ListBookingHistory)
				orders.GET("/pending-fine", controllers.ListPendingFines)
				orders.GET("/:id", controllers.GetOrder)
				orders.POST("/:id/cancel", controllers.CancelOrder)
				orders.POST("/:id/return", controllers.ReturnOrder)
				orders.POST("/:id/fine-checkout", controllers.CreateFineCheckout)
			}

			admin := authed.Group("", middleware.RequireAdmin())
			{
				admin.POST("/brands", controllers.CreateBrand)
				admin.PATCH("/brands/:id", controllers.UpdateBrand)
				admin.DELETE("/brands/:id", controllers.DeleteBrand)

				admin.POST("/types", controllers.CreateType)
				admin.PATCH("/types/:id", controllers.UpdateType)
				admin.DELETE("/types/:id", controllers.DeleteType)

				admin.POST("/cars", controllers.CreateCar)
				admin.PATCH("/cars/:id", controllers.UpdateCar)
				admin.DELETE("/cars/:id", controllers.DeleteCar)
				admin.POST("/cars/:id/image", controllers.UploadCarImage)

				admin.GET("/discounts", controllers.ListDiscounts)
				admin.POST("/discounts", controllers.CreateDiscount)
				admin.DELETE("/discounts/:id", controllers.DeleteDiscount)
			}
		}
	}

	return router
}

// corsConfig allows every origin when the list is empty or contains "*"
func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "Stripe-Signature")

	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	for _, origin := range origins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}
