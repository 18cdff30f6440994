package admin_test

import (
	"context"
	"testing"

	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/admin"
	"github.com/3Eeeecho/supfile/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	user, err := env.Auth.Register(ctx, admin.RegisterRequest{
		Email:    "  Alice@Example.com ",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, config.DefaultQuota, user.StorageQuota)
	assert.Zero(t, user.StorageUsed)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "correct horse", *user.PasswordHash)

	result, err := env.Auth.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	claims, err := utils.ParseToken(result.Token, testutil.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.Auth.Login(ctx, "alice@example.com", "battery staple")
		assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)
		assert.Equal(t, xerr.KindUnauthorized, xerr.Kind(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := env.Auth.Login(ctx, "bob@example.com", "correct horse")
		assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.Auth.Register(ctx, admin.RegisterRequest{Email: "alice@EXAMPLE.com", Password: "another pw"})
		assert.ErrorIs(t, err, xerr.ErrEmailAlreadyExists)
		assert.Equal(t, xerr.KindConflict, xerr.Kind(err))
	})
}

func TestRegisterValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  admin.RegisterRequest
	}{
		{"invalid email", admin.RegisterRequest{Email: "not-an-email", Password: "secret123"}},
		{"short password", admin.RegisterRequest{Email: "carol@example.com", Password: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Auth.Register(ctx, tt.req)
			assert.ErrorIs(t, err, xerr.ErrValidationFailed)
		})
	}

	user, err := env.Auth.Register(ctx, admin.RegisterRequest{Email: "dave@example.com", Password: "secret123", Username: " Dave "})
	require.NoError(t, err)
	assert.Equal(t, "Dave", user.Username)
}

func TestGetUserProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 10)
	env.Upload(t, user.ID, nil, "a.txt", "1234")

	profile, err := env.Users.GetUserProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, profile.StorageUsed)
	assert.EqualValues(t, 10, profile.StorageQuota)
	assert.EqualValues(t, 6, profile.AvailableSpace)

	_, err = env.Users.GetUserProfile(ctx, "missing")
	assert.ErrorIs(t, err, xerr.ErrUserNotFound)
}
