package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/carrental/car-rental-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuthService(t *testing.T) (*AuthService, *MockMailer) {
	t.Helper()
	mailer := NewMockMailer()
	svc := NewAuthService(newTestDB(t), newTestTokenService(), mailer, "https://app.example.com/reset?lang=en", zap.NewNop())
	return svc, mailer
}

func register(t *testing.T, svc *AuthService, email string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:       email,
		FirstName:   " Asha ",
		LastName:    "Rao",
		PhoneNumber: "9000000000",
		Password:    "correct-horse",
		Password2:   "correct-horse",
	})
	require.NoError(t, err)
	return user
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	user := register(t, svc, " Asha@Example.COM ")
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, "Asha", user.FirstName)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.Equal(t, models.RoleCustomer, user.Role())

	_, err := svc.Register(ctx, RegisterInput{Email: "ASHA@example.com", Password: "12345678", Password2: "12345678"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	pair, err := svc.Login(ctx, "ASHA@example.com", "correct-horse")
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	_, err = svc.Login(ctx, "asha@example.com", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	t.Run("deleted accounts cannot refresh", func(t *testing.T) {
		require.NoError(t, svc.DeleteAccount(ctx, user.ID))
		_, err := svc.Refresh(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)

		_, err = svc.Login(ctx, "asha@example.com", "correct-horse")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		// The address is free again
		register(t, svc, "asha@example.com")
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, mailer := newTestAuthService(t)
	ctx := context.Background()
	register(t, svc, "reset@example.com")

	require.NoError(t, svc.RequestPasswordReset(ctx, "RESET@example.com"))
	sent := mailer.SentOfKind("password_reset")
	require.Len(t, sent, 1)

	link, err := url.Parse(sent[0].Link)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", link.Host)
	assert.Equal(t, "en", link.Query().Get("lang"), "existing query parameters are kept")
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	assert.ErrorIs(t, svc.ConfirmPasswordReset(ctx, token, "short", "short"), ErrWeakPassword)
	assert.ErrorIs(t, svc.ConfirmPasswordReset(ctx, token, "new-password-1", "new-password-2"), ErrPasswordMismatch)
	assert.ErrorIs(t, svc.ConfirmPasswordReset(ctx, "unknown", "new-password", "new-password"), ErrInvalidResetToken)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token, "new-password", "new-password"))
	assert.ErrorIs(t, svc.ConfirmPasswordReset(ctx, token, "newer-password", "newer-password"), ErrInvalidResetToken)

	_, err = svc.Login(ctx, "reset@example.com", "new-password")
	assert.NoError(t, err)

	t.Run("expired token", func(t *testing.T) {
		require.NoError(t, svc.RequestPasswordReset(ctx, "reset@example.com"))
		sent := mailer.SentOfKind("password_reset")
		link, err := url.Parse(sent[len(sent)-1].Link)
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(PasswordResetTTL + time.Minute) }
		defer func() { svc.now = time.Now }()

		err = svc.ConfirmPasswordReset(ctx, link.Query().Get("token"), "late-password", "late-password")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	user := register(t, svc, "profile@example.com")

	last := "  Menon "
	updated, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Menon", updated.LastName)
	assert.Equal(t, "Asha", updated.FirstName)

	_, err = svc.UpdateProfile(ctx, 9999, UpdateProfileInput{LastName: &last})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
