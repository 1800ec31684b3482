package controllers

import (
	"net/http"

	"github.com/carrental/car-rental-api/services"
	"github.com/gin-gonic/gin"
)

// RegisterRequest represents the request body for signing up
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	PhoneNumber string `json:"phone_number" binding:"required,len=10,numeric"`
	Password    string `json:"password" binding:"required"`
	Password2   string `json:"password2" binding:"required"`
}

// LoginRequest represents the request body for obtaining tokens
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request body for refreshing an access token
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// PasswordResetRequest represents the request body for requesting a reset link
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest represents the request body for setting a new password
type PasswordResetConfirmRequest struct {
	Token     string `json:"token" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Password2 string `json:"password2" binding:"required"`
}

// Register handles POST /api/v1/auth/register
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := services.GetAuthService().Register(c.Request.Context(), services.RegisterInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Password2:   req.Password2,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "User registered successfully.", user)
}

// Login handles POST /api/v1/auth/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	tokens, err := services.GetAuthService().Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Login successful.", tokens)
}

// RefreshToken handles POST /api/v1/auth/refresh
func RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	access, err := services.GetAuthService().Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Token refreshed.", gin.H{"access": access})
}

// RequestPasswordReset handles POST /api/v1/auth/password-reset. The response
// is the same whether or not the address belongs to an account.
func RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := services.GetAuthService().RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Password reset link sent.", nil)
}

// ConfirmPasswordReset handles POST /api/v1/auth/password-reset/confirm
func ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	err := services.GetAuthService().ConfirmPasswordReset(c.Request.Context(), req.Token, req.Password, req.Password2)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Password successfully reset.", nil)
}
