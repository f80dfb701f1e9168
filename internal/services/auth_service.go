package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/models"
	pkgauth "github.com/nexusai/terminal-api/pkg/auth"
	"github.com/nexusai/terminal-api/pkg/logger"
)

// AuthResponse is returned on successful registration or login
type AuthResponse struct {
	User  *ProfileResponse `json:"user"`
	Token string           `json:"token"`
}

// AuthService handles registration and session establishment
type AuthService struct {
	repo   UserRepository
	tokens *auth.TokenManager
	audit  *logger.AuditLogger
	logger *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, tokens *auth.TokenManager, audit *logger.AuditLogger, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		audit:  audit,
		logger: log,
	}
}

// Register creates a new account and issues a session token
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.ErrBadRequest
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("registration conflict", slog.String("email", logger.SanitizedEmail(email)))
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tokens.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(logger.AuditEvent{EventType: "register", UserID: user.ID, Success: true})
	return &AuthResponse{User: userToProfile(user), Token: token}, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit.LogAuthAttempt(logger.AuditEvent{EventType: "login", Success: false, FailureReason: "unknown email"})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.audit.LogAuthAttempt(logger.AuditEvent{EventType: "login", UserID: user.ID, Success: false, FailureReason: "wrong password"})
		return nil, models.ErrUnauthorized
	}

	token, err := s.tokens.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(logger.AuditEvent{EventType: "login", UserID: user.ID, Success: true})
	return &AuthResponse{User: userToProfile(user), Token: token}, nil
}
