package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/carrental/car-rental-api/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MinPasswordLength = 8
	PasswordResetTTL  = time.Hour
)

// RegisterInput is a self-service sign-up
type RegisterInput struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Password    string
	Password2   string
}

// UpdateProfileInput holds optional profile changes
type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// AuthService handles accounts, credentials and password resets
type AuthService struct {
	db       *gorm.DB
	tokens   *TokenService
	mailer   Mailer
	resetURL string
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService creates an auth service. resetURL is the front-end page that
// receives the reset token as a query parameter.
func NewAuthService(db *gorm.DB, tokens *TokenService, mailer Mailer, resetURL string, logger *zap.Logger) *AuthService {
	return &AuthService{
		db:       db,
		tokens:   tokens,
		mailer:   mailer,
		resetURL: resetURL,
		logger:   logger,
		now:      time.Now,
	}
}

func checkPasswords(password, password2 string) error {
	if password != password2 {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a customer account
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := checkPasswords(in.Password, in.Password2); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        normalizeEmail(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return &user, nil
}

// Login checks credentials and issues a token pair
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.tokens.IssuePair(user)
}

// Refresh exchanges a refresh token for a new access token. The user must
// still exist so deleted accounts cannot keep minting tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", err
	}
	return s.tokens.IssueAccess(*user)
}

// GetUser loads an active user
func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the non-nil fields of in
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		updates["phone_number"] = *in.PhoneNumber
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetUser(ctx, userID)
}

// DeleteAccount soft-deletes a user who has no outstanding bookings
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		outstanding, err := HasOutstandingBookings(tx, "user_id", userID)
		if err != nil {
			return err
		}
		if outstanding {
			return ErrUserHasBookings
		}

		// Free the unique email for a future sign-up
		tombstone := fmt.Sprintf("deleted+%d+%s", user.ID, user.Email)
		if err := tx.Model(&user).Update("email", tombstone).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// RequestPasswordReset emails a single-use reset link when the address
// belongs to an account. Unknown addresses are ignored silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(PasswordResetTTL),
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user, s.resetLink(token.Token)); err != nil {
		s.logger.Error("password reset email failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) resetLink(token string) string {
	link, err := url.Parse(s.resetURL)
	if err != nil {
		return s.resetURL + "?token=" + url.QueryEscape(token)
	}
	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()
	return link.String()
}

// ConfirmPasswordReset sets a new password using a reset token
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password, password2 string) error {
	if err := checkPasswords(password, password2); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reset models.PasswordResetToken
		if err := tx.Where("token = ?", token).First(&reset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}
		if !reset.Usable(now) {
			return ErrInvalidResetToken
		}

		result := tx.Model(&models.User{}).Where("id = ?", reset.UserID).Update("password_hash", hash)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidResetToken
		}
		return tx.Model(&reset).Update("used_at", now).Error
	})
}

var authServiceInstance *AuthService

// GetAuthService returns the process-wide auth service
func GetAuthService() *AuthService {
	return authServiceInstance
}

// SetAuthService sets the process-wide auth service
func SetAuthService(s *AuthService) {
	authServiceInstance = s
}
