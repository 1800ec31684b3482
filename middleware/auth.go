package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/carrental/car-rental-api/config"
	"github.com/carrental/car-rental-api/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextUserID = "user_id"
	contextClaims = "validated_claims"
)

// CustomClaims contains the application claims carried by access tokens.
type CustomClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

// Validate rejects refresh tokens presented as bearer tokens.
func (c CustomClaims) Validate(ctx context.Context) error {
	if c.TokenType != "access" {
		return errors.New("token is not an access token")
	}
	return nil
}

// IsAdmin reports whether the token was issued to an administrator.
func (c CustomClaims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		zap.L().Fatal("failed to set up the jwt validator", zap.Error(err))
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		zap.L().Debug("rejected bearer token", zap.String("path", r.URL.Path), zap.Error(err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Authentication credentials were not provided or are invalid.","error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`))
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			userID, err := strconv.ParseUint(token.RegisteredClaims.Subject, 10, 64)
			if err != nil || userID == 0 {
				errorHandler(w, r, errors.New("subject is not a user id"))
				return
			}
			c.Set(contextUserID, uint(userID))
			c.Set(contextClaims, token)
			c.Request = r

			passed = true
			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// GetUserID extracts the authenticated user ID from the Gin context
func GetUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(contextUserID)
	if !exists {
		return 0, &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	id, ok := userID.(uint)
	if !ok {
		return 0, &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not numeric"}
	}

	return id, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(contextClaims)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// IsAdmin reports whether the authenticated caller holds the admin role
func IsAdmin(c *gin.Context) bool {
	claims, err := GetClaims(c)
	if err != nil {
		return false
	}
	custom, ok := claims.CustomClaims.(*CustomClaims)
	return ok && custom.IsAdmin()
}

// RequireAdmin is a middleware that only lets administrators through
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := GetClaims(c); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Could not retrieve token claims",
				"error": gin.H{
					"code":    "MISSING_CLAIMS",
					"message": "Could not retrieve token claims",
				},
			})
			return
		}

		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "You do not have permission to perform this action.",
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "You do not have permission to perform this action.",
				},
			})
			return
		}

		c.Next()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
