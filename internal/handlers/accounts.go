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

// AuthServiceInterface defines the interface for registration and login
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
}

// AccountsHandler handles account creation and session endpoints
type AccountsHandler struct {
	service      AuthServiceInterface
	cookies      auth.CookieConfig
	cookieMaxAge int
}

// NewAccountsHandler creates a new AccountsHandler
func NewAccountsHandler(service AuthServiceInterface, cookies auth.CookieConfig, cookieMaxAge int) *AccountsHandler {
	return &AccountsHandler{
		service:      service,
		cookies:      cookies,
		cookieMaxAge: cookieMaxAge,
	}
}

// RegisterRequest represents the request body for account creation
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles account creation
func (h *AccountsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteBadRequest(w, "An account with this email already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration details")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, resp.Token, h.cookieMaxAge, h.cookies)
	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles credential verification and session establishment
func (h *AccountsHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Authentication failed")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.SetSessionCookie(w, resp.Token, h.cookieMaxAge, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Logout clears the session cookie. Tokens are short-lived and stateless,
// so there is no server-side session to tear down.
func (h *AccountsHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
