package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

func newAuth(t *testing.T, stores repository.Stores) *service.AuthService {
	t.Helper()
	return service.NewAuthService(stores, config.SecurityConfig{
		JWTSecret:   "test-secret",
		JWTTTL:      time.Hour,
		MaxSessions: 2,
	}, zerolog.Nop())
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, newStores(t))

	registered, err := auth.Register(ctx, service.RegisterInput{
		Name:     "Ada",
		Email:    " Ada@Example.com ",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.Equal(t, models.UserRoleUser, registered.User.Role)
	assert.NotEmpty(t, registered.Token)

	_, err = auth.Register(ctx, service.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = auth.Login(ctx, service.LoginInput{Email: "ada@example.com", Password: "wrong!"})
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))

	login, err := auth.Login(ctx, service.LoginInput{Email: "ADA@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, claims, err := auth.Authenticate(ctx, login.Token, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)
	assert.Equal(t, login.SessionID, claims.SessionID)

	require.NoError(t, auth.Logout(ctx, login.SessionID))
	_, _, err = auth.Authenticate(ctx, login.Token, "127.0.0.1", "test")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	_, err := newAuth(t, newStores(t)).Register(context.Background(), service.RegisterInput{
		Name:     "A",
		Email:    "not-an-email",
		Password: "123",
		Role:     "root",
	})
	require.Error(t, err)
	appErr := apperr.From(err)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Len(t, appErr.Details, 4)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, newStores(t))

	first, err := auth.Register(ctx, service.RegisterInput{Name: "Grace", Email: "grace@example.com", Password: "hopper1"})
	require.NoError(t, err)
	second, err := auth.Login(ctx, service.LoginInput{Email: "grace@example.com", Password: "hopper1"})
	require.NoError(t, err)

	err = auth.ChangePassword(ctx, service.ChangePasswordInput{
		UserID:          first.User.ID,
		SessionID:       second.SessionID,
		CurrentPassword: "nope",
		NewPassword:     "cobol42",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, auth.ChangePassword(ctx, service.ChangePasswordInput{
		UserID:          first.User.ID,
		SessionID:       second.SessionID,
		CurrentPassword: "hopper1",
		NewPassword:     "cobol42",
	}))

	_, _, err = auth.Authenticate(ctx, first.Token, "", "")
	assert.Error(t, err, "other sessions are revoked")
	_, _, err = auth.Authenticate(ctx, second.Token, "", "")
	assert.NoError(t, err)

	_, err = auth.Login(ctx, service.LoginInput{Email: "grace@example.com", Password: "cobol42"})
	assert.NoError(t, err)
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	ctx := context.Background()
	stores := newStores(t)
	result, err := newAuth(t, stores).Register(ctx, service.RegisterInput{Name: "Linus", Email: "linus@example.com", Password: "kernel1"})
	require.NoError(t, err)

	other := service.NewAuthService(stores, config.SecurityConfig{JWTSecret: "other", JWTTTL: time.Hour}, zerolog.Nop())
	_, _, err = other.Authenticate(ctx, result.Token, "", "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRegisterAdminRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(t, newStores(t))

	_, err := auth.Register(ctx, service.RegisterInput{Name: "Mallory", Email: "mallory@example.com", Password: "secret1", Role: "admin"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	granted, err := auth.Register(ctx, service.RegisterInput{Name: "Margaret", Email: "margaret@example.com", Password: "secret1", Role: "ADMIN", ByAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, granted.User.Role)
}
