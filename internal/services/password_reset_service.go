package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/config"
	"github.com/nexusai/terminal-api/internal/models"
	pkgauth "github.com/nexusai/terminal-api/pkg/auth"
	"github.com/nexusai/terminal-api/pkg/logger"
)

const (
	// ResetSecretBytes is the entropy of the reset secret before hex encoding
	ResetSecretBytes = 20

	// ResetWindow is how long a reset secret stays redeemable
	ResetWindow = 10 * time.Minute
)

// PasswordResetService manages the reset-secret lifecycle: issue, dispatch,
// rollback on dispatch failure, and single-use redemption.
type PasswordResetService struct {
	repo   UserRepository
	email  EmailService
	tokens *auth.TokenManager
	cfg    *config.Config
	audit  *logger.AuditLogger
	logger *slog.Logger
	now    func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(repo UserRepository, email EmailService, tokens *auth.TokenManager, cfg *config.Config, audit *logger.AuditLogger, log *slog.Logger) *PasswordResetService {
	return &PasswordResetService{
		repo:   repo,
		email:  email,
		tokens: tokens,
		cfg:    cfg,
		audit:  audit,
		logger: log,
		now:    time.Now,
	}
}

// generateResetSecret returns the plaintext secret and its sha256 hex digest
func generateResetSecret() (plain, digest string, err error) {
	buf := make([]byte, ResetSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset secret: %w", err)
	}
	plain = hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(plain))
	return plain, hex.EncodeToString(sum[:]), nil
}

// RequestReset issues a fresh reset secret for the account with the given
// email and mails the recovery link. If dispatch fails the secret is cleared
// so the account holds no dangling secret.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up user for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	plain, digest, err := generateResetSecret()
	if err != nil {
		s.logger.Error("failed to generate reset secret", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// The plaintext is persisted only outside production, to support the
	// development-only retrieval endpoint.
	var storedPlain *string
	if !s.cfg.IsProduction() {
		storedPlain = &plain
	}

	expiresAt := s.now().Add(ResetWindow)
	if err := s.repo.SetResetSecret(ctx, user.ID, digest, storedPlain, expiresAt); err != nil {
		s.logger.Error("failed to store reset secret", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.audit.LogResetEvent(logger.AuditEvent{EventType: "requested", UserID: user.ID, Success: true})

	resetLink := fmt.Sprintf("%s/#/resetpassword/%s", strings.TrimRight(s.cfg.Email.ResetURLBase, "/"), plain)
	if err := s.email.SendPasswordReset(ctx, user.Email, resetLink); err != nil {
		s.logger.Error("reset email dispatch failed, rolling back secret",
			slog.String("user_id", user.ID), slog.Any("error", err))
		if clearErr := s.repo.ClearResetSecret(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to roll back reset secret", slog.String("user_id", user.ID), slog.Any("error", clearErr))
		}
		s.audit.LogResetEvent(logger.AuditEvent{EventType: "rolled_back", UserID: user.ID, Success: false, FailureReason: "email dispatch failed"})
		return models.ErrEmailDispatchFailed
	}

	s.audit.LogResetEvent(logger.AuditEvent{EventType: "dispatched", UserID: user.ID, Success: true})
	return nil
}

// RedeemReset exchanges a valid, unexpired reset secret for a new password
// and a fresh session token. The secret is consumed atomically with the
// password change, so a second redemption attempt fails.
func (s *PasswordResetService) RedeemReset(ctx context.Context, secret, newPassword string) (*AuthResponse, error) {
	if secret == "" {
		return nil, models.ErrResetInvalidOrExpired
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return nil, models.ErrBadRequest
	}

	sum := sha256.Sum256([]byte(secret))
	digest := hex.EncodeToString(sum[:])

	user, err := s.repo.GetByResetDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit.LogResetEvent(logger.AuditEvent{EventType: "redeem_failed", Success: false, FailureReason: "unknown secret"})
			return nil, models.ErrResetInvalidOrExpired
		}
		s.logger.Error("failed to look up reset secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Expired and unknown secrets are indistinguishable to the caller.
	if !user.HasActiveReset(s.now()) {
		s.audit.LogResetEvent(logger.AuditEvent{EventType: "redeem_failed", UserID: user.ID, Success: false, FailureReason: "expired secret"})
		return nil, models.ErrResetInvalidOrExpired
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	updated, err := s.repo.RedeemResetSecret(ctx, user.ID, hash)
	if err != nil {
		s.logger.Error("failed to redeem reset secret", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tokens.GenerateSessionToken(updated.ID)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogResetEvent(logger.AuditEvent{EventType: "redeemed", UserID: updated.ID, Success: true})
	return &AuthResponse{User: userToProfile(updated), Token: token}, nil
}

// PlainResetToken returns the stored plaintext reset secret for an account.
// Forbidden in production; development tooling only.
func (s *PasswordResetService) PlainResetToken(ctx context.Context, email string) (string, error) {
	if s.cfg.IsProduction() {
		return "", models.ErrForbidden
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	// Expiry is enforced at redemption, not here; the stored plaintext is
	// returned as long as the row still carries it.
	if user.ResetSecretPlain == nil {
		return "", models.ErrNotFound
	}
	return *user.ResetSecretPlain, nil
}
