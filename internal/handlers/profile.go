package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/models"
	"github.com/nexusai/terminal-api/internal/services"
	pkghttp "github.com/nexusai/terminal-api/pkg/http"
)

// UserServiceInterface defines the interface for profile business logic
type UserServiceInterface interface {
	GetProfile(ctx context.Context, id string) (*services.ProfileResponse, error)
	UpdateProfile(ctx context.Context, id string, input services.UpdateProfileInput) (*services.ProfileResponse, error)
}

// WalletServiceInterface defines the interface for wallet binding
type WalletServiceInterface interface {
	Nonce(ctx context.Context, userID string) (string, error)
	BindWallet(ctx context.Context, userID, claimedAddress, signature string) (*services.ProfileResponse, error)
}

// ProfileHandler handles the authenticated account surface
type ProfileHandler struct {
	users   UserServiceInterface
	wallets WalletServiceInterface
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(users UserServiceInterface, wallets WalletServiceInterface) *ProfileHandler {
	return &ProfileHandler{
		users:   users,
		wallets: wallets,
	}
}

// UpdateProfileRequest represents the request body for profile updates.
// All fields are optional; walletAddress requires signature.
type UpdateProfileRequest struct {
	Username      string `json:"username" validate:"omitempty,min=1,max=64"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"omitempty,min=8,max=72"`
	WalletAddress string `json:"walletAddress" validate:"omitempty,eth_addr"`
	Signature     string `json:"signature" validate:"omitempty"`
}

// NonceResponse carries the current wallet challenge nonce
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

// GetProfile returns the caller's profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.users.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile applies profile mutations. A wallet address is only accepted
// together with a signature over the current nonce's challenge message.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if req.WalletAddress != "" && req.Signature == "" {
		pkghttp.WriteBadRequest(w, "walletAddress requires a signature")
		return
	}

	// The bind runs first so a failed signature leaves the profile
	// untouched; nothing persists behind a 400.
	if req.WalletAddress != "" {
		if _, err := h.wallets.BindWallet(r.Context(), claims.UserID, req.WalletAddress, req.Signature); err != nil {
			switch {
			case errors.Is(err, models.ErrSignatureInvalid):
				pkghttp.WriteBadRequest(w, "Malformed signature")
			case errors.Is(err, models.ErrSignatureMismatch):
				pkghttp.WriteBadRequest(w, "Signature does not match wallet address")
			case errors.Is(err, models.ErrWalletAddressTaken):
				pkghttp.WriteConflict(w, "Wallet address already linked to another account")
			case errors.Is(err, models.ErrBadRequest):
				pkghttp.WriteBadRequest(w, "Invalid wallet address")
			default:
				pkghttp.WriteInternalError(w, "Internal server error")
			}
			return
		}
	}

	profile, err := h.users.UpdateProfile(r.Context(), claims.UserID, services.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Email already in use")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid profile details")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// GetNonce returns the caller's current wallet challenge nonce
func (h *ProfileHandler) GetNonce(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	nonce, err := h.wallets.Nonce(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, NonceResponse{Nonce: nonce})
}
