package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nexusai/terminal-api/internal/models"
	"github.com/nexusai/terminal-api/internal/web3"
	"github.com/nexusai/terminal-api/pkg/logger"
)

// WalletMessagePrefix is the fixed first line of the challenge message a
// wallet must sign to prove ownership.
const WalletMessagePrefix = "Nexus AI Terminal Authentication"

// ChallengeMessage builds the canonical message for a nonce. Both the server
// and any signing client must produce this exact string.
func ChallengeMessage(nonce string) string {
	return fmt.Sprintf("%s\nNonce: %s", WalletMessagePrefix, nonce)
}

// WalletService handles nonce issuance and signature-verified wallet binding
type WalletService struct {
	repo   UserRepository
	audit  *logger.AuditLogger
	logger *slog.Logger
}

// NewWalletService creates a new WalletService
func NewWalletService(repo UserRepository, audit *logger.AuditLogger, log *slog.Logger) *WalletService {
	return &WalletService{
		repo:   repo,
		audit:  audit,
		logger: log,
	}
}

// Nonce returns the caller's current signing nonce
func (s *WalletService) Nonce(ctx context.Context, userID string) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.logger.Error("failed to get user for nonce", slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	return user.Nonce, nil
}

// BindWallet verifies that the signature over the current nonce's challenge
// message recovers the claimed address, then stores the address and rotates
// the nonce. A signature over a stale nonce recovers a different message and
// therefore a different address, so replays fail.
func (s *WalletService) BindWallet(ctx context.Context, userID, claimedAddress, signature string) (*ProfileResponse, error) {
	if !web3.IsHexAddress(claimedAddress) {
		return nil, models.ErrBadRequest
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for wallet bind", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	message := ChallengeMessage(user.Nonce)
	recovered, err := web3.RecoverAddress(message, signature)
	if err != nil {
		s.audit.LogWalletBind(logger.AuditEvent{EventType: "bind", UserID: userID, Success: false, FailureReason: "malformed signature"})
		return nil, models.ErrSignatureInvalid
	}

	if !web3.AddressesEqual(recovered, claimedAddress) {
		s.audit.LogWalletBind(logger.AuditEvent{EventType: "bind", UserID: userID, Success: false, FailureReason: "recovered address mismatch"})
		return nil, models.ErrSignatureMismatch
	}

	updated, err := s.repo.BindWallet(ctx, userID, claimedAddress)
	if err != nil {
		if errors.Is(err, models.ErrWalletAddressTaken) {
			s.audit.LogWalletBind(logger.AuditEvent{EventType: "bind", UserID: userID, Success: false, FailureReason: "address already bound"})
			return nil, models.ErrWalletAddressTaken
		}
		s.logger.Error("failed to bind wallet", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogWalletBind(logger.AuditEvent{EventType: "bind", UserID: userID, Success: true})
	return userToProfile(updated), nil
}
