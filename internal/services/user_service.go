package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nexusai/terminal-api/internal/models"
	pkgauth "github.com/nexusai/terminal-api/pkg/auth"
)

// UserRepository defines the interface for account data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetDigest(ctx context.Context, digest string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, id, username, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetSecret(ctx context.Context, id, digest string, plain *string, expiresAt time.Time) error
	ClearResetSecret(ctx context.Context, id string) error
	RedeemResetSecret(ctx context.Context, id, passwordHash string) (*models.User, error)
	BindWallet(ctx context.Context, id, address string) (*models.User, error)
}

// ProfileResponse is the account view returned to its owner
type ProfileResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// UpdateProfileInput carries the optional profile mutations; empty fields
// keep their current value.
type UpdateProfileInput struct {
	Username string
	Email    string
	Password string
}

// UserService handles profile business logic
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// GetProfile returns the caller's own profile
func (s *UserService) GetProfile(ctx context.Context, id string) (*ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("profile not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get profile", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userToProfile(user), nil
}

// UpdateProfile applies the non-wallet profile mutations. Wallet binding
// goes through WalletService so that signature verification and nonce
// rotation cannot be bypassed.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for update", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	username := user.Username
	if v := strings.TrimSpace(input.Username); v != "" {
		username = v
	}
	email := user.Email
	if v := strings.ToLower(strings.TrimSpace(input.Email)); v != "" {
		email = v
	}

	updated, err := s.repo.UpdateProfile(ctx, id, username, email)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update profile", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if input.Password != "" {
		if err := pkgauth.ValidatePassword(input.Password); err != nil {
			return nil, models.ErrBadRequest
		}
		hash, err := pkgauth.HashPassword(input.Password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
			s.logger.Error("failed to update password", slog.String("user_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	s.logger.Info("profile updated", slog.String("user_id", id))
	return userToProfile(updated), nil
}

// userToProfile converts a user model to the owner-facing view
func userToProfile(user *models.User) *ProfileResponse {
	resp := &ProfileResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
	if user.WalletAddress != nil {
		resp.WalletAddress = *user.WalletAddress
	}
	return resp
}
