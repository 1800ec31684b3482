package testutil

import (
	"strconv"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/carrental/car-rental-api/config"
	"github.com/carrental/car-rental-api/middleware"
	"github.com/carrental/car-rental-api/models"
	"github.com/carrental/car-rental-api/services"
	"github.com/gin-gonic/gin"
)

// MockValidatedClaims creates the claims EnsureValidToken would store for user
func MockValidatedClaims(user models.User) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  "car-rental-api",
			Subject: strconv.FormatUint(uint64(user.ID), 10),
		},
		CustomClaims: &middleware.CustomClaims{
			Role:      user.Role(),
			TokenType: services.TokenTypeAccess,
		},
	}
}

// SetMockAuthContext sets up an authenticated context for user
func SetMockAuthContext(c *gin.Context, user models.User) {
	c.Set("user_id", user.ID)
	c.Set("validated_claims", MockValidatedClaims(user))
}

// MockAuth is a middleware that authenticates every request as user
func MockAuth(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetMockAuthContext(c, user)
		c.Next()
	}
}

// AccessToken signs a real access token for user with the config's secret
func AccessToken(t *testing.T, cfg *config.Config, user models.User) string {
	t.Helper()

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	token, err := tokens.IssueAccess(user)
	if err != nil {
		t.Fatalf("Failed to issue access token: %v", err)
	}
	return token
}

// BearerHeader formats token for the Authorization header
func BearerHeader(token string) string {
	return "Bearer " + token
}
