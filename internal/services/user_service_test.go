package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusai/terminal-api/internal/models"
	pkgauth "github.com/nexusai/terminal-api/pkg/auth"
)

func TestUserService_GetProfile_Success(t *testing.T) {
	wallet := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	user := NewTestUser("user123", "satoshi", "satoshi@example.com")
	user.WalletAddress = &wallet

	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewUserService(repo, slog.Default())
	profile, err := svc.GetProfile(context.Background(), "user123")

	require.NoError(t, err)
	assert.Equal(t, "user123", profile.ID)
	assert.Equal(t, "satoshi", profile.Username)
	assert.Equal(t, wallet, profile.WalletAddress)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	svc := NewUserService(&MockUserRepository{}, slog.Default())

	profile, err := svc.GetProfile(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, profile)
}

func TestUserService_UpdateProfile_PartialFields(t *testing.T) {
	user := NewTestUser("user123", "satoshi", "satoshi@example.com")

	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateProfileFunc: func(ctx context.Context, id, username, email string) (*models.User, error) {
			// Empty input fields keep their current values.
			assert.Equal(t, "nakamoto", username)
			assert.Equal(t, "satoshi@example.com", email)
			updated := *user
			updated.Username = username
			return &updated, nil
		},
	}

	svc := NewUserService(repo, slog.Default())
	profile, err := svc.UpdateProfile(context.Background(), "user123", UpdateProfileInput{Username: "nakamoto"})

	require.NoError(t, err)
	assert.Equal(t, "nakamoto", profile.Username)
	assert.Equal(t, "satoshi@example.com", profile.Email)
}

func TestUserService_UpdateProfile_PasswordChange(t *testing.T) {
	user := NewTestUser("user123", "satoshi", "satoshi@example.com")

	var newHash string
	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateProfileFunc: func(ctx context.Context, id, username, email string) (*models.User, error) {
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			newHash = passwordHash
			return nil
		},
	}

	svc := NewUserService(repo, slog.Default())
	_, err := svc.UpdateProfile(context.Background(), "user123", UpdateProfileInput{Password: "FreshPassword123"})

	require.NoError(t, err)
	require.NotEmpty(t, newHash)
	assert.NoError(t, pkgauth.ComparePassword(newHash, "FreshPassword123"))
}

func TestUserService_UpdateProfile_WeakPassword(t *testing.T) {
	user := NewTestUser("user123", "satoshi", "satoshi@example.com")

	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateProfileFunc: func(ctx context.Context, id, username, email string) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewUserService(repo, slog.Default())
	profile, err := svc.UpdateProfile(context.Background(), "user123", UpdateProfileInput{Password: "short"})

	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.Nil(t, profile)
}

func TestUserService_UpdateProfile_EmailConflict(t *testing.T) {
	user := NewTestUser("user123", "satoshi", "satoshi@example.com")

	repo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateProfileFunc: func(ctx context.Context, id, username, email string) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}

	svc := NewUserService(repo, slog.Default())
	profile, err := svc.UpdateProfile(context.Background(), "user123", UpdateProfileInput{Email: "taken@example.com"})

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Nil(t, profile)
}
